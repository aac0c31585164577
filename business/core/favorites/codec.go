package favorites

import (
	"encoding/binary"
	"errors"
	"unicode/utf8"
)

// errShortBuffer is returned when the data ends before a field does.
var errShortBuffer = errors.New("unexpected end of data")

// encode appends the fields of the record to data. Integers are little
// endian, text is prefixed with its u32 byte length and the hobbies with
// their u32 count.
func (f Favorites) encode(data []byte) []byte {
	data = binary.LittleEndian.AppendUint64(data, f.Number)
	data = appendString(data, f.Color)

	data = binary.LittleEndian.AppendUint32(data, uint32(len(f.Hobbies)))
	for _, hobby := range f.Hobbies {
		data = appendString(data, hobby)
	}

	return data
}

func appendString(data []byte, s string) []byte {
	data = binary.LittleEndian.AppendUint32(data, uint32(len(s)))
	return append(data, s...)
}

// decode reads the fields of a record.
func decode(data []byte) (Favorites, error) {
	d := decoder{data: data}

	fav := d.readFavorites()
	if d.err != nil {
		return Favorites{}, d.err
	}

	return fav, nil
}

// =============================================================================

// decoder reads values from a buffer, remembering the first error so the
// caller can check once at the end.
type decoder struct {
	data []byte
	off  int
	err  error
}

// readFavorites reads a record. Lengths are checked against the bounds
// before anything is copied so oversized values are rejected without
// reading them. Text must be valid utf-8.
func (d *decoder) readFavorites() Favorites {
	number := d.readUint64()
	color := d.readString(MaxColorBytes, ErrColorTooLong)

	count := d.readUint32()
	if d.err == nil && count > MaxHobbies {
		d.err = ErrTooManyHobbies
	}
	if d.err != nil {
		return Favorites{}
	}

	hobbies := make([]string, 0, count)
	for i := uint32(0); i < count && d.err == nil; i++ {
		hobbies = append(hobbies, d.readString(MaxHobbyBytes, ErrHobbyTooLong))
	}

	return Favorites{
		Number:  number,
		Color:   color,
		Hobbies: hobbies,
	}
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}

	if len(d.data)-d.off < n {
		d.err = errShortBuffer
		return nil
	}

	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) readUint64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *decoder) readUint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) readString(limit int, tooLong error) string {
	n := d.readUint32()
	if d.err != nil {
		return ""
	}

	if n > uint32(limit) {
		d.err = tooLong
		return ""
	}

	b := d.take(int(n))
	if d.err == nil && !utf8.Valid(b) {
		d.err = ErrInvalidUTF8
		return ""
	}

	return string(b)
}

// remaining reports how many bytes have not been read.
func (d *decoder) remaining() int {
	return len(d.data) - d.off
}
