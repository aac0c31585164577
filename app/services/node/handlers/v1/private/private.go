// Package private maintains the group of handlers for operator access.
package private

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ardanlabs/favorites/business/web/errs"
	"github.com/ardanlabs/favorites/foundation/blockchain/database"
	"github.com/ardanlabs/favorites/foundation/blockchain/state"
	"github.com/ardanlabs/favorites/foundation/nameservice"
	"github.com/ardanlabs/favorites/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latestBlock := h.State.RetrieveLatestBlock()

	status := struct {
		Hash     string `json:"latest_block_hash"`
		Number   uint64 `json:"latest_block_number"`
		ChainID  uint16 `json:"chain_id"`
		Accounts int    `json:"accounts"`
	}{
		Hash:     latestBlock.Hash(),
		Number:   latestBlock.Header.Number,
		ChainID:  h.State.RetrieveGenesis().ChainID,
		Accounts: len(h.State.RetrieveAccounts()),
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// BlocksByNumber returns all the blocks based on the specified to/from values.
// Either end can be given as latest.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latest := strconv.FormatUint(h.State.RetrieveLatestBlock().Header.Number, 10)

	fromStr := web.Param(r, "from")
	if fromStr == "latest" || fromStr == "" {
		fromStr = latest
	}

	toStr := web.Param(r, "to")
	if toStr == "latest" || toStr == "" {
		toStr = latest
	}

	from, err := strconv.ParseUint(fromStr, 10, 64)
	if err != nil {
		return errs.BadRequest(err)
	}
	to, err := strconv.ParseUint(toStr, 10, 64)
	if err != nil {
		return errs.BadRequest(err)
	}

	if from > to {
		return errs.BadRequest(fmt.Errorf("from %d is greater than to %d", from, to))
	}

	blocks := h.State.QueryBlocksByNumber(from, to)
	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blockData := make([]database.BlockData, len(blocks))
	for i, block := range blocks {
		blockData[i] = database.NewBlockData(block)
	}

	return web.Respond(ctx, w, blockData, http.StatusOK)
}
