package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/favorites/business/core/favorites"
	"github.com/ardanlabs/favorites/foundation/blockchain/database"
)

// Records prints every favorites record in the ledger, or only the record
// of the specified user.
func Records(w io.Writer, args conf.Args, ledger Ledger) error {
	if user := args.Num(1); user != "" {
		userID, err := database.ToAccountID(user)
		if err != nil {
			return err
		}

		fav, err := favorites.Query(ledger, userID)
		if err != nil {
			return err
		}

		printRecord(w, userID, fav)
		return nil
	}

	// Records only hold the program as their owner, so identities are
	// found by deriving the address of every known account.
	accounts := ledger.RetrieveAccounts()

	users := make([]database.AccountID, 0, len(accounts))
	for accountID, account := range accounts {
		if account.Owner == "" {
			users = append(users, accountID)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	for _, user := range users {
		fav, err := favorites.Query(ledger, user)
		switch {
		case errors.Is(err, favorites.ErrNotFound):
			continue

		case err != nil:
			return fmt.Errorf("user %s: %w", user, err)
		}
		printRecord(w, user, fav)
	}

	return nil
}

// Verify checks every recorded transaction is proven by the merkle root of
// its block header and reports the latest block the journal replayed to.
func Verify(w io.Writer, ledger Ledger) error {
	blocks, err := ledger.QueryBlocksByAccount("")
	if err != nil {
		return err
	}

	for _, block := range blocks {
		for _, tx := range block.Trans {
			proof, order, err := block.ProveTx(tx)
			if err != nil {
				return fmt.Errorf("blk[%d]: tx[%s]: %w", block.Header.Number, tx, err)
			}

			if err := block.Header.VerifyTx(tx, proof, order); err != nil {
				return fmt.Errorf("blk[%d]: tx[%s]: %w", block.Header.Number, tx, err)
			}
		}
	}

	latest := ledger.RetrieveLatestBlock()
	fmt.Fprintf(w, "journal ok: %d blocks, latest hash %s, %d accounts\n", latest.Header.Number, latest.Hash(), len(ledger.RetrieveAccounts()))
	return nil
}

func printRecord(w io.Writer, user database.AccountID, fav favorites.Favorites) {
	fmt.Fprintf(w, "User: %s  Number: %d  Color: %s  Hobbies: [%s]\n", user, fav.Number, fav.Color, strings.Join(fav.Hobbies, ", "))
}
