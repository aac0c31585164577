// Package program provides the runtime that executes instructions against
// the programs registered with the ledger. The runtime hands a program
// working copies of the accounts an instruction lists and only returns them
// for commit when the program succeeds, so a failed instruction never
// leaves partial state behind.
package program

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/favorites/foundation/blockchain/database"
	"github.com/ardanlabs/favorites/foundation/blockchain/genesis"
)

// SystemProgramID is the id of the built in program that allocates accounts.
const SystemProgramID = database.AccountID("0x0000000000000000000000000000000000000000")

// Set of error variables for the runtime.
var (
	ErrProgramNotFound      = errors.New("program not found")
	ErrMissingSignature     = errors.New("missing required signature")
	ErrNotWritable          = errors.New("account is not writable")
	ErrAccountAlreadyInUse  = errors.New("account already in use")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrIllegalOwner         = errors.New("account is not owned by the executing program")
	ErrAccountDataTooSmall  = errors.New("account data too small")
	ErrNotEnoughAccounts    = errors.New("not enough account keys given to the instruction")
	ErrMissingSystemProgram = errors.New("system program account missing")
)

// Program represents the behavior required to be implemented by an on-chain
// program.
type Program interface {
	ID() database.AccountID
	Process(ctx *Context, data []byte) error
}

// Accounts represents the behavior required to load accounts for an
// instruction.
type Accounts interface {
	Query(accountID database.AccountID) (database.Account, error)
}

// Result is what a successful execution hands back for commit.
type Result struct {
	Accounts []database.Account
	Logs     []string
}

// =============================================================================

// Runtime executes instructions against the registered programs.
type Runtime struct {
	genesis  genesis.Genesis
	programs map[database.AccountID]Program
}

// New constructs a runtime with the specified programs registered.
func New(genesis genesis.Genesis, programs ...Program) *Runtime {
	rt := Runtime{
		genesis:  genesis,
		programs: make(map[database.AccountID]Program, len(programs)),
	}

	for _, prg := range programs {
		rt.programs[prg.ID()] = prg
	}

	return &rt
}

// Execute runs the transaction's instruction on behalf of the signer. The
// logs are returned even when the instruction fails.
func (rt *Runtime) Execute(accounts Accounts, signer database.AccountID, tx database.Tx) (Result, error) {
	prg, exists := rt.programs[tx.ProgramID]
	if !exists {
		return Result{}, fmt.Errorf("%w: %s", ErrProgramNotFound, tx.ProgramID)
	}

	// A transaction carries one signature. Any account flagged as a signer
	// must be the account that produced it.
	for _, meta := range tx.Accounts {
		if meta.IsSigner && meta.AccountID != signer {
			return Result{}, fmt.Errorf("%w: %s", ErrMissingSignature, meta.AccountID)
		}
	}

	ctx := Context{
		ProgramID: tx.ProgramID,
		Signer:    signer,
		genesis:   rt.genesis,
		metas:     tx.Accounts,
		accounts:  make([]*database.Account, len(tx.Accounts)),
	}

	// Load working copies. The same account listed twice shares a copy so
	// writes through either index are seen by both.
	seen := make(map[database.AccountID]*database.Account, len(tx.Accounts))
	for i, meta := range tx.Accounts {
		if acct, exists := seen[meta.AccountID]; exists {
			ctx.accounts[i] = acct
			continue
		}

		account, err := accounts.Query(meta.AccountID)
		switch {
		case errors.Is(err, database.ErrAccountNotFound):
			account = database.Account{AccountID: meta.AccountID}

		case err != nil:
			return Result{}, fmt.Errorf("loading account %s: %w", meta.AccountID, err)
		}

		ctx.accounts[i] = &account
		seen[meta.AccountID] = &account
	}

	ctx.Log("Program %s invoke", tx.ProgramID)

	if err := prg.Process(&ctx, tx.Data); err != nil {
		ctx.Log("Program %s failed: %s", tx.ProgramID, err)
		return Result{Logs: ctx.logs}, err
	}

	ctx.Log("Program %s success", tx.ProgramID)

	return Result{
		Accounts: ctx.writable(),
		Logs:     ctx.logs,
	}, nil
}
