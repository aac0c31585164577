package state

import (
	"fmt"

	"github.com/ardanlabs/favorites/foundation/blockchain/database"
	"github.com/ardanlabs/favorites/foundation/blockchain/program"
)

// SubmitTransaction accepts a signed transaction, executes it and records it
// in a new block. The transaction is applied in full or not at all.
func (s *State) SubmitTransaction(signedTx database.SignedTx) (database.BlockTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: SubmitTransaction: started: tx[%s]", signedTx)
	defer s.evHandler("state: SubmitTransaction: completed")

	fromID, result, err := s.execute(signedTx)
	for _, log := range result.Logs {
		s.evHandler("state: SubmitTransaction: program: %s", log)
	}
	if err != nil {
		s.evHandler("state: SubmitTransaction: ERROR: %s", err)
		return database.BlockTx{}, err
	}

	tx := database.NewBlockTx(signedTx, result.Logs)
	block, err := database.NewBlock(s.db.LatestBlock(), []database.BlockTx{tx})
	if err != nil {
		s.evHandler("state: SubmitTransaction: ERROR: %s", err)
		return database.BlockTx{}, err
	}

	// The block must be on storage before the accounts change so a failure
	// here leaves the ledger exactly as it was.
	if err := s.db.Write(block); err != nil {
		s.evHandler("state: SubmitTransaction: ERROR: writing block: %s", err)
		return database.BlockTx{}, fmt.Errorf("writing block: %w", err)
	}

	if err := s.db.Commit(fromID, signedTx.Nonce, result.Accounts); err != nil {
		return database.BlockTx{}, err
	}
	s.db.UpdateLatestBlock(block)

	s.evHandler("state: SubmitTransaction: blk[%d]: hash[%s]", block.Header.Number, block.Hash())

	return tx, nil
}

// =============================================================================

// execute validates and runs the transaction against working copies of the
// accounts. Nothing is committed. The caller must hold the state lock.
func (s *State) execute(signedTx database.SignedTx) (database.AccountID, program.Result, error) {
	if err := signedTx.Validate(); err != nil {
		return "", program.Result{}, err
	}

	if signedTx.ChainID != s.genesis.ChainID {
		return "", program.Result{}, fmt.Errorf("invalid chain id, got[%d] exp[%d]", signedTx.ChainID, s.genesis.ChainID)
	}

	fromID, err := signedTx.FromAccount()
	if err != nil {
		return "", program.Result{}, fmt.Errorf("invalid signature: %w", err)
	}

	if err := s.db.ValidateNonce(fromID, signedTx.Nonce); err != nil {
		return "", program.Result{}, err
	}

	result, err := s.runtime.Execute(s.db, fromID, signedTx.Tx)
	if err != nil {
		return "", result, err
	}

	return fromID, result, nil
}
