// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/ardanlabs/favorites/business/core/favorites"
	"github.com/ardanlabs/favorites/business/sys/validate"
	"github.com/ardanlabs/favorites/business/web/errs"
	"github.com/ardanlabs/favorites/foundation/blockchain/database"
	"github.com/ardanlabs/favorites/foundation/blockchain/state"
	"github.com/ardanlabs/favorites/foundation/events"
	"github.com/ardanlabs/favorites/foundation/nameservice"
	"github.com/ardanlabs/favorites/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitTransaction executes a signed transaction and records it in a new
// block.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var stx signedTx
	if err := web.Decode(r, &stx); err != nil {
		return errs.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
	}

	if err := validate.Check(stx); err != nil {
		return err
	}

	signedTx := toSignedTx(stx)

	h.Log.Infow("submit tran", "traceid", v.TraceID, "from:nonce", signedTx, "program", signedTx.ProgramID)

	blkTx, err := h.State.SubmitTransaction(signedTx)
	if err != nil {
		return errs.BadRequest(err)
	}

	return web.Respond(ctx, w, toTx(blkTx, h.NS), http.StatusOK)
}

// Favorites returns the favorites stored for the specified user.
func (h Handlers) Favorites(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	user, err := h.NS.Resolve(web.Param(r, "account"))
	if err != nil {
		return errs.BadRequest(err)
	}

	fav, err := favorites.Query(h.State, user)
	if err != nil {
		if errors.Is(err, favorites.ErrNotFound) {
			return errs.NotFound(fmt.Errorf("%w: %s", err, user))
		}
		return fmt.Errorf("query: user[%s]: %w", user, err)
	}

	address, bump, err := favorites.Address(user)
	if err != nil {
		return err
	}

	resp := favoritesInfo{
		User:    user,
		Name:    h.NS.Lookup(user),
		Address: address,
		Bump:    bump,
		Record:  fav,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Address returns the address the favorites of the specified user are
// stored at and what it costs to create it.
func (h Handlers) Address(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	user, err := h.NS.Resolve(web.Param(r, "account"))
	if err != nil {
		return errs.BadRequest(err)
	}

	address, bump, err := favorites.Address(user)
	if err != nil {
		return err
	}

	resp := addressInfo{
		User:    user,
		Address: address,
		Bump:    bump,
		Space:   favorites.Space,
		Rent:    h.State.RetrieveGenesis().MinimumBalance(favorites.Space),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Accounts returns the current state of all accounts or the one specified.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	account := web.Param(r, "account")

	var dbAccounts map[database.AccountID]database.Account
	switch account {
	case "":
		dbAccounts = h.State.RetrieveAccounts()

	default:
		accountID, err := h.NS.Resolve(account)
		if err != nil {
			return errs.BadRequest(err)
		}

		dbAccount, err := h.State.QueryAccount(accountID)
		if err != nil {
			if errors.Is(err, database.ErrAccountNotFound) {
				return errs.NotFound(fmt.Errorf("%w: %s", err, accountID))
			}
			return err
		}
		dbAccounts = map[database.AccountID]database.Account{accountID: dbAccount}
	}

	acts := make([]info, 0, len(dbAccounts))
	for accountID, dbAccount := range dbAccounts {
		act := info{
			Account: accountID,
			Name:    h.NS.Lookup(accountID),
			Nonce:   dbAccount.Nonce,
			Balance: dbAccount.Balance,
			Owner:   dbAccount.Owner,
			Space:   len(dbAccount.Data),
		}
		acts = append(acts, act)
	}

	sort.Slice(acts, func(i, j int) bool {
		return acts[i].Account < acts[j].Account
	})

	ai := actInfo{
		LatestBlock: h.State.RetrieveLatestBlock().Hash(),
		Accounts:    acts,
	}

	return web.Respond(ctx, w, ai, http.StatusOK)
}

// BlocksByAccount returns all the blocks holding a transaction that touches
// the specified account.
func (h Handlers) BlocksByAccount(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var accountID database.AccountID

	if account := web.Param(r, "account"); account != "" {
		var err error
		accountID, err = h.NS.Resolve(account)
		if err != nil {
			return errs.BadRequest(err)
		}
	}

	dbBlocks, err := h.State.QueryBlocksByAccount(accountID)
	if err != nil {
		return err
	}

	if len(dbBlocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, toBlocks(dbBlocks, h.NS), http.StatusOK)
}

// BlocksByNumber returns the blocks in the specified range. Either end can
// be given as latest, which resolves to the latest block number before the
// range is checked.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latest := h.State.RetrieveLatestBlock().Header.Number

	from, err := blockNumber(web.Param(r, "from"), latest)
	if err != nil {
		return errs.BadRequest(err)
	}

	to, err := blockNumber(web.Param(r, "to"), latest)
	if err != nil {
		return errs.BadRequest(err)
	}

	if from > to {
		return errs.BadRequest(fmt.Errorf("from %d is greater than to %d", from, to))
	}

	dbBlocks := h.State.QueryBlocksByNumber(from, to)
	if len(dbBlocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, toBlocks(dbBlocks, h.NS), http.StatusOK)
}

func blockNumber(s string, latest uint64) (uint64, error) {
	if s == "latest" || s == "" {
		return latest, nil
	}

	return strconv.ParseUint(s, 10, 64)
}
