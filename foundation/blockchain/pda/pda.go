// Package pda derives program addresses. A program address is computed from
// a set of seeds and the id of the program that owns it, so the same inputs
// always produce the same address and no private key exists for it.
package pda

import (
	"errors"
	"math"

	"github.com/ardanlabs/favorites/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Limits on the seeds used to derive an address.
const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)

// marker separates derived addresses from any other keccak based address.
const marker = "ProgramDerivedAddress"

// viable decides whether a derived address can be used.
var viable = isViable

// Set of error variables for address derivation.
var (
	ErrMaxSeedLengthExceeded = errors.New("length of the seed is too long for address generation")
	ErrInvalidSeeds          = errors.New("provided seeds do not result in a valid address")
	ErrNoViableBump          = errors.New("unable to find a viable program address bump seed")
)

// CreateProgramAddress derives the address for the specified seeds and
// program id. It fails if the seeds are out of bounds or the result is not
// usable as a program address.
func CreateProgramAddress(seeds [][]byte, programID database.AccountID) (database.AccountID, error) {
	if len(seeds) > MaxSeeds {
		return "", ErrMaxSeedLengthExceeded
	}

	data := make([][]byte, 0, len(seeds)+2)
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return "", ErrMaxSeedLengthExceeded
		}
		data = append(data, seed)
	}
	data = append(data, programID.Bytes(), []byte(marker))

	// The address is the last 20 bytes of the hash, the same way an
	// identity address is taken from the hash of its public key.
	hash := crypto.Keccak256(data...)
	address := common.BytesToAddress(hash[12:])

	if !viable(address, programID) {
		return "", ErrInvalidSeeds
	}

	return database.AccountID(address.Hex()), nil
}

// FindProgramAddress searches for a viable program address starting with a
// bump seed of 255 and counting down. The first viable address and the bump
// that produced it are returned.
func FindProgramAddress(seeds [][]byte, programID database.AccountID) (database.AccountID, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return "", 0, ErrMaxSeedLengthExceeded
	}

	bumped := make([][]byte, len(seeds)+1)
	copy(bumped, seeds)

	for bump := math.MaxUint8; bump >= 0; bump-- {
		bumped[len(seeds)] = []byte{uint8(bump)}

		address, err := CreateProgramAddress(bumped, programID)
		switch {
		case err == nil:
			return address, uint8(bump), nil

		case errors.Is(err, ErrInvalidSeeds):
			continue

		default:
			return "", 0, err
		}
	}

	return "", 0, ErrNoViableBump
}

// isViable reports whether the address can be used for a program account.
// The zero address belongs to the system program and a program can't own
// an account at its own address.
func isViable(address common.Address, programID database.AccountID) bool {
	if address == (common.Address{}) {
		return false
	}

	return address != common.HexToAddress(string(programID))
}
