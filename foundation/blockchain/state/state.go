// Package state is the core API for the ledger and implements all the
// business rules and processing.
package state

import (
	"fmt"
	"sync"

	"github.com/ardanlabs/favorites/foundation/blockchain/database"
	"github.com/ardanlabs/favorites/foundation/blockchain/genesis"
	"github.com/ardanlabs/favorites/foundation/blockchain/program"
)

// EventHandler defines a function that is called when events
// occur in the processing of transactions and blocks.
type EventHandler func(v string, args ...any)

// =============================================================================

// Config represents the configuration required to start the ledger.
type Config struct {
	Genesis   genesis.Genesis
	Storage   database.Storage
	Programs  []program.Program
	EvHandler EventHandler
}

// State manages the ledger database.
type State struct {
	mu sync.Mutex

	evHandler EventHandler
	genesis   genesis.Genesis
	db        *database.Database
	runtime   *program.Runtime
}

// New constructs a new ledger for data management. Every block already in
// storage is replayed through the runtime to rebuild the accounts.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	// Access the storage for the ledger and apply the genesis balances.
	db, err := database.New(cfg.Genesis, cfg.Storage)
	if err != nil {
		return nil, err
	}

	state := State{
		evHandler: ev,
		genesis:   cfg.Genesis,
		db:        db,
		runtime:   program.New(cfg.Genesis, cfg.Programs...),
	}

	ev("state: New: replay: started")

	if err := state.replay(); err != nil {
		return nil, fmt.Errorf("replaying blocks: %w", err)
	}

	ev("state: New: replay: completed: latest blk[%d]", db.LatestBlock().Header.Number)

	return &state, nil
}

// Shutdown cleanly brings the ledger down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.db.Close()

	return nil
}

// Truncate resets the ledger both in storage and in memory.
func (s *State) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Reset()
}

// =============================================================================

// replay re-executes every stored block in order, validating the chain
// along the way.
func (s *State) replay() error {
	var latestBlock database.Block

	iter := s.db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return err
		}

		if err := block.ValidateBlock(latestBlock, s.evHandler); err != nil {
			return err
		}

		for _, tx := range block.Trans {
			fromID, result, err := s.execute(tx.SignedTx)
			if err != nil {
				return fmt.Errorf("blk[%d]: tx[%s]: %w", block.Header.Number, tx, err)
			}

			if err := s.db.Commit(fromID, tx.Nonce, result.Accounts); err != nil {
				return fmt.Errorf("blk[%d]: tx[%s]: %w", block.Header.Number, tx, err)
			}
		}

		latestBlock = block
		s.db.UpdateLatestBlock(block)
	}

	return nil
}
