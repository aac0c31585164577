package program

import (
	"fmt"

	"github.com/ardanlabs/favorites/foundation/blockchain/database"
	"github.com/ardanlabs/favorites/foundation/blockchain/genesis"
)

// Context is handed to a program for the duration of one instruction. It
// provides access to the instruction's accounts and the system facilities.
type Context struct {
	ProgramID database.AccountID
	Signer    database.AccountID

	genesis  genesis.Genesis
	metas    []database.AccountMeta
	accounts []*database.Account
	logs     []string
}

// Len returns the number of accounts the instruction listed.
func (c *Context) Len() int {
	return len(c.metas)
}

// Meta returns the account meta at the specified index.
func (c *Context) Meta(idx int) (database.AccountMeta, error) {
	if idx < 0 || idx >= len(c.metas) {
		return database.AccountMeta{}, fmt.Errorf("%w: index %d", ErrNotEnoughAccounts, idx)
	}

	return c.metas[idx], nil
}

// Account returns a copy of the account at the specified index.
func (c *Context) Account(idx int) (database.Account, error) {
	if idx < 0 || idx >= len(c.accounts) {
		return database.Account{}, fmt.Errorf("%w: index %d", ErrNotEnoughAccounts, idx)
	}

	return c.accounts[idx].Clone(), nil
}

// Log records an informational trace for the instruction.
func (c *Context) Log(format string, args ...any) {
	c.logs = append(c.logs, fmt.Sprintf(format, args...))
}

// CreateAccount asks the system program to allocate space bytes for the
// account at newIdx, assign it to owner and fund it with the minimum balance
// taken from the account at payerIdx. The payer must have signed and both
// accounts must be writable.
func (c *Context) CreateAccount(payerIdx int, newIdx int, space uint64, owner database.AccountID) error {
	if !c.hasSystemProgram() {
		return ErrMissingSystemProgram
	}

	payerMeta, err := c.Meta(payerIdx)
	if err != nil {
		return err
	}

	newMeta, err := c.Meta(newIdx)
	if err != nil {
		return err
	}

	if !payerMeta.IsSigner {
		return fmt.Errorf("%w: payer %s", ErrMissingSignature, payerMeta.AccountID)
	}

	if !payerMeta.IsWritable {
		return fmt.Errorf("%w: payer %s", ErrNotWritable, payerMeta.AccountID)
	}

	if !newMeta.IsWritable {
		return fmt.Errorf("%w: %s", ErrNotWritable, newMeta.AccountID)
	}

	payer := c.accounts[payerIdx]
	account := c.accounts[newIdx]

	if payer == account {
		return fmt.Errorf("%w: %s", ErrAccountAlreadyInUse, account.AccountID)
	}

	if account.IsInitialized() {
		return fmt.Errorf("%w: %s", ErrAccountAlreadyInUse, account.AccountID)
	}

	rent := c.genesis.MinimumBalance(space)
	if payer.Balance < rent {
		return fmt.Errorf("%w: account %s, balance %d, needed %d", ErrInsufficientFunds, payer.AccountID, payer.Balance, rent)
	}

	c.Log("Program %s invoke: create account %s, space %d, rent %d", SystemProgramID, account.AccountID, space, rent)

	payer.Balance -= rent
	account.Balance += rent
	account.Owner = owner
	account.Data = make([]byte, space)

	return nil
}

// WriteData overwrites the data of the account at the specified index. Only
// writable accounts owned by the executing program can be written and the
// data can't exceed the space reserved when the account was created. Any
// bytes past the new data are zeroed.
func (c *Context) WriteData(idx int, data []byte) error {
	meta, err := c.Meta(idx)
	if err != nil {
		return err
	}

	if !meta.IsWritable {
		return fmt.Errorf("%w: %s", ErrNotWritable, meta.AccountID)
	}

	account := c.accounts[idx]

	if account.Owner != c.ProgramID {
		return fmt.Errorf("%w: %s", ErrIllegalOwner, meta.AccountID)
	}

	if len(data) > len(account.Data) {
		return fmt.Errorf("%w: reserved %d, needed %d", ErrAccountDataTooSmall, len(account.Data), len(data))
	}

	n := copy(account.Data, data)
	clear(account.Data[n:])

	return nil
}

// =============================================================================

// hasSystemProgram reports whether the instruction listed the system program.
func (c *Context) hasSystemProgram() bool {
	for _, meta := range c.metas {
		if meta.AccountID == SystemProgramID {
			return true
		}
	}

	return false
}

// writable returns copies of the writable accounts for commit.
func (c *Context) writable() []database.Account {
	var accounts []database.Account
	done := make(map[database.AccountID]bool)

	for i, meta := range c.metas {
		if !meta.IsWritable || done[meta.AccountID] {
			continue
		}

		done[meta.AccountID] = true

		// Accounts that were never funded or allocated stay out of the
		// database.
		account := c.accounts[i]
		if !account.IsInitialized() && account.Balance == 0 && account.Nonce == 0 {
			continue
		}

		accounts = append(accounts, account.Clone())
	}

	return accounts
}
