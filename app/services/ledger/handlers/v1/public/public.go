// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/docledger/business/sys/validate"
	"github.com/ardanlabs/docledger/business/web/errs"
	"github.com/ardanlabs/docledger/foundation/events"
	"github.com/ardanlabs/docledger/foundation/ledger/database"
	"github.com/ardanlabs/docledger/foundation/ledger/proof"
	"github.com/ardanlabs/docledger/foundation/ledger/state"
	"github.com/ardanlabs/docledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
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
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitDocument adds a new document to the pending set.
func (h Handlers) SubmitDocument(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var nd NewDocument
	if err := web.Decode(r, &nd); err != nil {
		if validate.IsFieldErrors(err) {
			return err
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	doc, err := h.State.SubmitDocument(nd.Title, nd.Description)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit document", "traceid", v.TraceID, "title", doc.Title)

	resp := submitted{
		Message:  "document will be added to the next block",
		Document: doc,
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// SealBlock seals the pending documents into a new block.
func (h Handlers) SealBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.SealBlock(ctx)
	if err != nil {
		switch {
		case errors.Is(err, state.ErrSealInProgress),
			errors.Is(err, database.ErrStoreWriteConflict):
			return errs.NewTrusted(err, http.StatusConflict)

		case errors.Is(err, database.ErrStoreUnavailable),
			errors.Is(err, proof.ErrProofSearchTimeout),
			errors.Is(err, proof.ErrProofSearchExhausted):
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		}
		return fmt.Errorf("seal block: %w", err)
	}

	resp := sealed{
		Message: fmt.Sprintf("block %d sealed", block.Index),
		Block:   block,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Chain returns every block in the ledger.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.ReadChain(), http.StatusOK)
}

// Verify checks the linkage and proofs of the whole chain.
func (h Handlers) Verify(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.State.Verify(); err != nil {
		return errs.NewTrusted(err, http.StatusInternalServerError)
	}

	resp := verified{
		Status: "chain is valid",
		Length: h.State.ReadChain().Length,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// QueryBlock returns the block at the specified index.
func (h Handlers) QueryBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	index, err := strconv.ParseUint(web.Param(r, "index"), 10, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid block index: %w", err), http.StatusBadRequest)
	}

	block, err := h.State.QueryBlock(index)
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// Pending returns the documents waiting for the next block.
func (h Handlers) Pending(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryPending(), http.StatusOK)
}
