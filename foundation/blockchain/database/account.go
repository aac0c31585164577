package database

import (
	"bytes"
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrAccountNotFound is returned when an account does not exist in
// the database.
var ErrAccountNotFound = errors.New("account not found")

// Account represents information stored in the database for an individual
// account. Identity accounts only hold a balance and nonce. Program accounts
// are owned by a program and carry a fixed size data buffer the owning
// program is allowed to write into.
type Account struct {
	AccountID AccountID `json:"account"`
	Nonce     uint64    `json:"nonce"`
	Balance   uint64    `json:"balance"`
	Owner     AccountID `json:"owner,omitempty"`
	Data      []byte    `json:"data,omitempty"`
}

// newAccount constructs a new account value for use.
func newAccount(accountID AccountID, balance uint64) Account {
	return Account{
		AccountID: accountID,
		Balance:   balance,
	}
}

// IsInitialized reports whether the account has been allocated by a program.
func (a Account) IsInitialized() bool {
	return a.Owner != "" || len(a.Data) > 0
}

// Clone returns a deep copy of the account so the data buffer can be
// modified without touching the original.
func (a Account) Clone() Account {
	if a.Data != nil {
		a.Data = bytes.Clone(a.Data)
	}
	return a
}

// =============================================================================

// AccountID represents an account id that is used to sign transactions and is
// associated with transactions on the ledger. This is the last 20 bytes of the
// public key for identities or a derived address for program accounts.
type AccountID string

// ToAccountID converts a hex-encoded string to an account and validates the
// hex-encoded string is formatted correctly.
func ToAccountID(hex string) (AccountID, error) {
	a := AccountID(hex)
	if !a.IsAccountID() {
		return "", errors.New("invalid account format")
	}

	// Normalize to the checksum form so the same account always maps to
	// the same key.
	return AccountID(common.HexToAddress(hex).Hex()), nil
}

// BytesToAccountID converts a 20 byte address into an account id.
func BytesToAccountID(b []byte) AccountID {
	return AccountID(common.BytesToAddress(b).Hex())
}

// PublicKeyToAccountID converts the public key to an account value.
func PublicKeyToAccountID(pk ecdsa.PublicKey) AccountID {
	return AccountID(crypto.PubkeyToAddress(pk).String())
}

// IsAccountID verifies whether the underlying data represents a valid
// hex-encoded account.
func (a AccountID) IsAccountID() bool {
	return common.IsHexAddress(string(a))
}

// IsChecksummed verifies the account is a valid address written in its
// checksum form.
func (a AccountID) IsChecksummed() bool {
	return a.IsAccountID() && common.HexToAddress(string(a)).Hex() == string(a)
}

// Bytes returns the 20 byte address the account id represents.
func (a AccountID) Bytes() []byte {
	return common.HexToAddress(string(a)).Bytes()
}
