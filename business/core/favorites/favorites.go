// Package favorites implements the favorites program. Every identity owns a
// single fixed size record holding a favorite number, a color and a list of
// hobbies. The record lives at an address derived from the "favorites" tag
// and the identity, so only the identity itself can ever write it.
package favorites

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/ardanlabs/favorites/foundation/blockchain/database"
	"github.com/ardanlabs/favorites/foundation/blockchain/pda"
	"github.com/ethereum/go-ethereum/crypto"
)

// Seed is the fixed tag the record address is derived from.
const Seed = "favorites"

// Bounds on the record fields, in bytes of encoded text.
const (
	MaxColorBytes = 50
	MaxHobbies    = 5
	MaxHobbyBytes = 50
)

// Space reserved for a record. The discriminator header is followed by the
// maximum size of every field: the number, the length prefixed color and the
// count prefixed list of length prefixed hobbies.
const (
	DiscriminatorSize = 8
	InitSpace         = 8 + (4 + MaxColorBytes) + (4 + MaxHobbies*(4+MaxHobbyBytes))
	Space             = DiscriminatorSize + InitSpace
)

// ProgramID is the address the favorites program is registered under.
var ProgramID = database.BytesToAccountID(crypto.Keccak256([]byte("favorites program"))[12:])

// Set of error variables for the favorites program.
var (
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrColorTooLong     = fmt.Errorf("%w: color", ErrCapacityExceeded)
	ErrTooManyHobbies   = fmt.Errorf("%w: hobbies", ErrCapacityExceeded)
	ErrHobbyTooLong     = fmt.Errorf("%w: hobby", ErrCapacityExceeded)

	ErrUnauthorized           = errors.New("user must sign the transaction")
	ErrSeedsConstraint        = errors.New("favorites account is not the address derived from the user")
	ErrInvalidSystemProgram   = errors.New("invalid system program account")
	ErrDiscriminatorMismatch  = errors.New("account discriminator did not match")
	ErrUnknownInstruction     = errors.New("unknown instruction")
	ErrInstructionDidNotParse = errors.New("instruction data did not deserialize")
	ErrInvalidUTF8            = fmt.Errorf("%w: text is not valid utf-8", ErrInstructionDidNotParse)
	ErrNotFound               = errors.New("favorites not found")
)

// Discriminators identify the type of an account and the instruction being
// called. They are the first 8 bytes of the hash of the name.
var (
	accountDiscriminator      = discriminator("account:Favorites")
	setFavoritesDiscriminator = discriminator("global:set_favorites")
)

// =============================================================================

// Favorites represents the record stored for an identity.
type Favorites struct {
	Number  uint64   `json:"number"`
	Color   string   `json:"color"`
	Hobbies []string `json:"hobbies"`
}

// Validate checks the record fits the space reserved for it and its text
// is valid utf-8.
func (f Favorites) Validate() error {
	if len(f.Color) > MaxColorBytes {
		return fmt.Errorf("%w: got %d bytes, max %d", ErrColorTooLong, len(f.Color), MaxColorBytes)
	}

	if !utf8.ValidString(f.Color) {
		return fmt.Errorf("%w: color", ErrInvalidUTF8)
	}

	if len(f.Hobbies) > MaxHobbies {
		return fmt.Errorf("%w: got %d entries, max %d", ErrTooManyHobbies, len(f.Hobbies), MaxHobbies)
	}

	for i, hobby := range f.Hobbies {
		if len(hobby) > MaxHobbyBytes {
			return fmt.Errorf("%w: entry %d is %d bytes, max %d", ErrHobbyTooLong, i, len(hobby), MaxHobbyBytes)
		}

		if !utf8.ValidString(hobby) {
			return fmt.Errorf("%w: hobby entry %d", ErrInvalidUTF8, i)
		}
	}

	return nil
}

// MarshalBinary encodes the record in its account layout, starting with
// the account discriminator.
func (f Favorites) MarshalBinary() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	data := make([]byte, 0, Space)
	data = append(data, accountDiscriminator[:]...)

	return f.encode(data), nil
}

// UnmarshalBinary decodes a record from its account layout. Trailing bytes
// of the reservation are ignored.
func (f *Favorites) UnmarshalBinary(data []byte) error {
	if len(data) < DiscriminatorSize || [DiscriminatorSize]byte(data[:DiscriminatorSize]) != accountDiscriminator {
		return ErrDiscriminatorMismatch
	}

	fav, err := decode(data[DiscriminatorSize:])
	if err != nil {
		return err
	}

	*f = fav
	return nil
}

// =============================================================================

// Address returns the record address and bump seed for the specified user.
func Address(user database.AccountID) (database.AccountID, uint8, error) {
	return pda.FindProgramAddress([][]byte{[]byte(Seed), user.Bytes()}, ProgramID)
}

// Querier represents the behavior required to look up ledger accounts.
type Querier interface {
	QueryAccount(accountID database.AccountID) (database.Account, error)
}

// Query returns the record stored for the specified user.
func Query(q Querier, user database.AccountID) (Favorites, error) {
	address, _, err := Address(user)
	if err != nil {
		return Favorites{}, err
	}

	account, err := q.QueryAccount(address)
	if err != nil {
		if errors.Is(err, database.ErrAccountNotFound) {
			return Favorites{}, ErrNotFound
		}
		return Favorites{}, err
	}

	if !account.IsInitialized() || account.Owner != ProgramID {
		return Favorites{}, ErrNotFound
	}

	var fav Favorites
	if err := fav.UnmarshalBinary(account.Data); err != nil {
		return Favorites{}, err
	}

	return fav, nil
}

// =============================================================================

func discriminator(name string) [DiscriminatorSize]byte {
	hash := sha256.Sum256([]byte(name))
	return [DiscriminatorSize]byte(hash[:DiscriminatorSize])
}
