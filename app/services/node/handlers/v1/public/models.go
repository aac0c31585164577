package public

import (
	"math/big"

	"github.com/ardanlabs/favorites/business/core/favorites"
	"github.com/ardanlabs/favorites/foundation/blockchain/database"
	"github.com/ardanlabs/favorites/foundation/nameservice"
)

type accountMeta struct {
	AccountID  string `json:"account" validate:"required,account"`
	IsSigner   bool   `json:"is_signer"`
	IsWritable bool   `json:"is_writable"`
}

// signedTx is the transaction a wallet submits.
type signedTx struct {
	ChainID   uint16        `json:"chain_id" validate:"required"`
	Nonce     uint64        `json:"nonce" validate:"required"`
	ProgramID string        `json:"program_id" validate:"required,account"`
	Accounts  []accountMeta `json:"accounts" validate:"required,dive"`
	Data      []byte        `json:"data"`
	V         *big.Int      `json:"v" validate:"required"`
	R         *big.Int      `json:"r" validate:"required"`
	S         *big.Int      `json:"s" validate:"required"`
}

func toSignedTx(stx signedTx) database.SignedTx {
	metas := make([]database.AccountMeta, len(stx.Accounts))
	for i, meta := range stx.Accounts {
		metas[i] = database.AccountMeta{
			AccountID:  database.AccountID(meta.AccountID),
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
		}
	}

	return database.SignedTx{
		Tx: database.Tx{
			ChainID:   stx.ChainID,
			Nonce:     stx.Nonce,
			ProgramID: database.AccountID(stx.ProgramID),
			Accounts:  metas,
			Data:      stx.Data,
		},
		V: stx.V,
		R: stx.R,
		S: stx.S,
	}
}

type tx struct {
	FromAccount database.AccountID     `json:"from"`
	FromName    string                 `json:"from_name"`
	ChainID     uint16                 `json:"chain_id"`
	Nonce       uint64                 `json:"nonce"`
	ProgramID   database.AccountID     `json:"program_id"`
	Accounts    []database.AccountMeta `json:"accounts"`
	Data        []byte                 `json:"data"`
	TimeStamp   uint64                 `json:"timestamp"`
	Logs        []string               `json:"logs"`
	Sig         string                 `json:"sig"`
}

func toTx(blkTx database.BlockTx, ns *nameservice.NameService) tx {
	account, _ := blkTx.FromAccount()

	return tx{
		FromAccount: account,
		FromName:    ns.Lookup(account),
		ChainID:     blkTx.ChainID,
		Nonce:       blkTx.Nonce,
		ProgramID:   blkTx.ProgramID,
		Accounts:    blkTx.Accounts,
		Data:        blkTx.Data,
		TimeStamp:   blkTx.TimeStamp,
		Logs:        blkTx.Logs,
		Sig:         blkTx.SignatureString(),
	}
}

type block struct {
	Number        uint64 `json:"number"`
	Hash          string `json:"hash"`
	PrevBlockHash string `json:"prev_block_hash"`
	TimeStamp     uint64 `json:"timestamp"`
	TransRoot     string `json:"trans_root"`
	Transactions  []tx   `json:"txs"`
}

func toBlocks(dbBlocks []database.Block, ns *nameservice.NameService) []block {
	blocks := make([]block, len(dbBlocks))
	for j, blk := range dbBlocks {
		trans := make([]tx, len(blk.Trans))
		for i, blkTx := range blk.Trans {
			trans[i] = toTx(blkTx, ns)
		}

		blocks[j] = block{
			Number:        blk.Header.Number,
			Hash:          blk.Hash(),
			PrevBlockHash: blk.Header.PrevBlockHash,
			TimeStamp:     blk.Header.TimeStamp,
			TransRoot:     blk.Header.TransRoot,
			Transactions:  trans,
		}
	}

	return blocks
}

type info struct {
	Account database.AccountID `json:"account"`
	Name    string             `json:"name"`
	Nonce   uint64             `json:"nonce"`
	Balance uint64             `json:"balance"`
	Owner   database.AccountID `json:"owner,omitempty"`
	Space   int                `json:"space"`
}

type actInfo struct {
	LatestBlock string `json:"latest_block"`
	Accounts    []info `json:"accounts"`
}

type favoritesInfo struct {
	User    database.AccountID  `json:"user"`
	Name    string              `json:"name"`
	Address database.AccountID  `json:"address"`
	Bump    uint8               `json:"bump"`
	Record  favorites.Favorites `json:"favorites"`
}

type addressInfo struct {
	User    database.AccountID `json:"user"`
	Address database.AccountID `json:"address"`
	Bump    uint8              `json:"bump"`
	Space   int                `json:"space"`
	Rent    uint64             `json:"rent"`
}
