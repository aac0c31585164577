package database

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/favorites/foundation/blockchain/merkle"
	"github.com/ardanlabs/favorites/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrEndOfChain is returned by iterators once the last block has been read.
var ErrEndOfChain = errors.New("end of chain")

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number        uint64 `json:"number"`          // Block number in the chain.
	PrevBlockHash string `json:"prev_block_hash"` // Hash of the previous block in the chain.
	TimeStamp     uint64 `json:"timestamp"`       // Time the block was produced in milliseconds.
	TransRoot     string `json:"trans_root"`      // Merkle root of the transactions recorded in this block.
}

// Block represents a group of transactions batched together.
type Block struct {
	Header BlockHeader
	Trans  []BlockTx
}

// NewBlock constructs the block that follows the previous block and records
// the specified transactions.
func NewBlock(prevBlock Block, trans []BlockTx) (Block, error) {

	// When producing the first block, the previous block's hash will be zero.
	prevBlockHash := signature.ZeroHash
	if prevBlock.Header.Number > 0 {
		prevBlockHash = prevBlock.Hash()
	}

	// The timestamp must always move forward, even when two blocks are
	// produced inside the same millisecond.
	timeStamp := uint64(time.Now().UTC().UnixMilli())
	if timeStamp <= prevBlock.Header.TimeStamp {
		timeStamp = prevBlock.Header.TimeStamp + 1
	}

	// The root of a merkle tree over the transactions goes into the header
	// so the header alone commits to every transaction.
	tree, err := merkle.NewTree(trans)
	if err != nil {
		return Block{}, fmt.Errorf("building transaction tree: %w", err)
	}

	block := Block{
		Header: BlockHeader{
			Number:        prevBlock.Header.Number + 1,
			PrevBlockHash: prevBlockHash,
			TimeStamp:     timeStamp,
			TransRoot:     tree.RootHex(),
		},
		Trans: trans,
	}

	return block, nil
}

// Hash returns the unique hash for the Block.
func (b Block) Hash() string {
	if b.Header.Number == 0 {
		return signature.ZeroHash
	}

	// Hashing the block header and not the whole block. The header carries
	// the hash of the transactions so the chain can be checked with headers
	// alone.
	return signature.Hash(b.Header)
}

// ValidateBlock takes a block and validates it to be included into the ledger.
func (b Block) ValidateBlock(previousBlock Block, evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.Header.Number)

	nextNumber := previousBlock.Header.Number + 1
	if b.Header.Number != nextNumber {
		return fmt.Errorf("this block is not the next number, got %d, exp %d", b.Header.Number, nextNumber)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", b.Header.Number)

	if b.Header.PrevBlockHash != previousBlock.Hash() {
		return fmt.Errorf("parent block hash doesn't match our known parent, got %s, exp %s", b.Header.PrevBlockHash, previousBlock.Hash())
	}

	if previousBlock.Header.TimeStamp > 0 {
		evHandler("database: ValidateBlock: validate: blk[%d]: check: block's timestamp is greater than parent block's timestamp", b.Header.Number)

		if b.Header.TimeStamp <= previousBlock.Header.TimeStamp {
			return fmt.Errorf("block timestamp is before parent block, parent %d, block %d", previousBlock.Header.TimeStamp, b.Header.TimeStamp)
		}
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: merkle root does match transactions", b.Header.Number)

	tree, err := merkle.NewTree(b.Trans)
	if err != nil {
		return fmt.Errorf("building transaction tree: %w", err)
	}

	if root := tree.RootHex(); b.Header.TransRoot != root {
		return fmt.Errorf("merkle root does not match transactions, got %s, exp %s", root, b.Header.TransRoot)
	}

	return nil
}

// ProveTx returns the merkle proof that the transaction is recorded in the
// block. The proof is checked against the header's root with VerifyTx.
func (b Block) ProveTx(tx BlockTx) ([][]byte, []int, error) {
	tree, err := merkle.NewTree(b.Trans)
	if err != nil {
		return nil, nil, err
	}

	return tree.Proof(tx)
}

// VerifyTx checks the proof leads from the transaction to the header's root.
func (h BlockHeader) VerifyTx(tx BlockTx, proof [][]byte, order []int) error {
	leaf, err := tx.Hash()
	if err != nil {
		return err
	}

	root, err := hexutil.Decode(h.TransRoot)
	if err != nil {
		return fmt.Errorf("decoding merkle root: %w", err)
	}

	return merkle.VerifyProof(leaf, proof, order, root, sha256.New)
}

// =============================================================================

// BlockData represents what can be serialized to disk and over the network.
type BlockData struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"block"`
	Trans  []BlockTx   `json:"trans"`
}

// NewBlockData constructs block data from a block.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  block.Trans,
	}
}

// ToBlock converts a storage block into a database block. The stored hash
// must match the header it was written with.
func ToBlock(blockData BlockData) (Block, error) {
	block := Block{
		Header: blockData.Header,
		Trans:  blockData.Trans,
	}

	if hash := block.Hash(); hash != blockData.Hash {
		return Block{}, fmt.Errorf("block %d hash mismatch, got %s, exp %s", blockData.Header.Number, hash, blockData.Hash)
	}

	return block, nil
}
