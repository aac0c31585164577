// Package database handles all the lower level support for maintaining the
// ledger in storage and maintaining an in memory database of account
// information.
package database

import (
	"fmt"
	"sync"

	"github.com/ardanlabs/favorites/foundation/blockchain/genesis"
)

// Storage interface represents the behavior required to be implemented by any
// package providing support for reading and writing the ledger blocks.
type Storage interface {
	Write(blockData BlockData) error
	GetBlock(num uint64) (BlockData, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// =============================================================================

// DatabaseIterator walks the stored blocks converting them into database
// blocks.
type DatabaseIterator struct {
	iterator Iterator
}

// Next retrieves the next block from storage.
func (di *DatabaseIterator) Next() (Block, error) {
	blockData, err := di.iterator.Next()
	if err != nil {
		return Block{}, err
	}

	return ToBlock(blockData)
}

// Done returns the end of chain value.
func (di *DatabaseIterator) Done() bool {
	return di.iterator.Done()
}

// =============================================================================

// Database manages data related to accounts who have transacted on the ledger.
type Database struct {
	mu sync.RWMutex

	genesis     genesis.Genesis
	latestBlock Block
	accounts    map[AccountID]Account

	storage Storage
}

// New constructs a new database and applies the account genesis information.
// Blocks already in storage are not applied here since that requires the
// program runtime. The state package replays them.
func New(genesis genesis.Genesis, storage Storage) (*Database, error) {
	db := Database{
		genesis: genesis,
		storage: storage,
	}

	accounts, err := genesisAccounts(genesis)
	if err != nil {
		return nil, err
	}
	db.accounts = accounts

	return &db, nil
}

// Close closes the open blocks storage.
func (db *Database) Close() {
	db.storage.Close()
}

// Reset re-initalizes the database back to the genesis state.
func (db *Database) Reset() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.storage.Reset(); err != nil {
		return err
	}

	accounts, err := genesisAccounts(db.genesis)
	if err != nil {
		return err
	}

	db.latestBlock = Block{}
	db.accounts = accounts

	return nil
}

// Query returns a copy of the specified account.
func (db *Database) Query(accountID AccountID) (Account, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	account, exists := db.accounts[accountID]
	if !exists {
		return Account{}, ErrAccountNotFound
	}

	return account.Clone(), nil
}

// CopyAccounts makes a copy of the current accounts in the database.
func (db *Database) CopyAccounts() map[AccountID]Account {
	db.mu.RLock()
	defer db.mu.RUnlock()

	accounts := make(map[AccountID]Account, len(db.accounts))
	for accountID, account := range db.accounts {
		accounts[accountID] = account.Clone()
	}
	return accounts
}

// ValidateNonce validates the nonce for the specified transaction is larger
// than the last nonce used by the account who signed the transaction.
func (db *Database) ValidateNonce(fromID AccountID, nonce uint64) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	from := db.accounts[fromID]
	if nonce <= from.Nonce {
		return fmt.Errorf("invalid nonce, current %d, provided %d", from.Nonce, nonce)
	}

	return nil
}

// Commit applies the result of a successful transaction. The modified accounts
// replace what is in the database and the signer's nonce is moved forward.
// Either everything is applied or, if the nonce is stale, nothing is.
func (db *Database) Commit(fromID AccountID, nonce uint64, changed []Account) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if from := db.accounts[fromID]; nonce <= from.Nonce {
		return fmt.Errorf("invalid nonce, current %d, provided %d", from.Nonce, nonce)
	}

	for _, account := range changed {
		db.accounts[account.AccountID] = account.Clone()
	}

	// The signer may not have been part of the changed set, or may be seen
	// for the first time.
	from := db.accounts[fromID]
	from.AccountID = fromID
	from.Nonce = nonce
	db.accounts[fromID] = from

	return nil
}

// UpdateLatestBlock provides safe access to update the latest block.
func (db *Database) UpdateLatestBlock(block Block) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.latestBlock = block
}

// LatestBlock returns the latest block.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.latestBlock
}

// Write adds a new block to the chain.
func (db *Database) Write(block Block) error {
	return db.storage.Write(NewBlockData(block))
}

// ForEach returns an iterator to walk through all the blocks
// starting with block number 1.
func (db *Database) ForEach() DatabaseIterator {
	return DatabaseIterator{iterator: db.storage.ForEach()}
}

// GetBlock searches the ledger storage to locate and return the
// contents of the specified block by number.
func (db *Database) GetBlock(num uint64) (Block, error) {
	blockData, err := db.storage.GetBlock(num)
	if err != nil {
		return Block{}, err
	}
	return ToBlock(blockData)
}

// =============================================================================

// genesisAccounts constructs the starting set of accounts.
func genesisAccounts(genesis genesis.Genesis) (map[AccountID]Account, error) {
	accounts := make(map[AccountID]Account, len(genesis.Balances))
	for accountStr, balance := range genesis.Balances {
		accountID, err := ToAccountID(accountStr)
		if err != nil {
			return nil, fmt.Errorf("genesis account %q: %w", accountStr, err)
		}
		accounts[accountID] = newAccount(accountID, balance)
	}

	return accounts, nil
}
