// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/docledger/app/services/ledger/handlers/v1/public"
	"github.com/ardanlabs/docledger/foundation/events"
	"github.com/ardanlabs/docledger/foundation/ledger/state"
	"github.com/ardanlabs/docledger/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodPost, version, "/documents", pbl.SubmitDocument)
	app.Handle(http.MethodGet, version, "/documents/pending", pbl.Pending)
	app.Handle(http.MethodPost, version, "/blocks/seal", pbl.SealBlock)
	app.Handle(http.MethodGet, version, "/blocks/:index", pbl.QueryBlock)
	app.Handle(http.MethodGet, version, "/chain", pbl.Chain)
	app.Handle(http.MethodGet, version, "/chain/verify", pbl.Verify)
}
