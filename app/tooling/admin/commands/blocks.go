package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/favorites/foundation/blockchain/database"
)

// Ledger represents the behavior required to inspect the ledger.
type Ledger interface {
	QueryAccount(accountID database.AccountID) (database.Account, error)
	QueryBlocksByAccount(accountID database.AccountID) ([]database.Block, error)
	RetrieveAccounts() map[database.AccountID]database.Account
	RetrieveLatestBlock() database.Block
}

// Blocks prints the blocks of the ledger, optionally only those holding a
// transaction that touches the specified account.
func Blocks(w io.Writer, args conf.Args, ledger Ledger) error {
	var accountID database.AccountID
	if account := args.Num(1); account != "" {
		var err error
		if accountID, err = database.ToAccountID(account); err != nil {
			return err
		}
	}

	blocks, err := ledger.QueryBlocksByAccount(accountID)
	if err != nil {
		return err
	}

	for _, block := range blocks {
		fmt.Fprintf(w, "Block %d  Hash: %s  Prev: %s  Time: %d\n", block.Header.Number, block.Hash(), block.Header.PrevBlockHash, block.Header.TimeStamp)

		for _, tx := range block.Trans {
			fmt.Fprintf(w, "  Tx %s  Program: %s  Sig: %s\n", tx, tx.ProgramID, tx.SignatureString())
			fmt.Fprintf(w, "    %s\n", strings.Join(tx.Logs, "\n    "))
		}
	}

	return nil
}
