package handlers

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/ardanlabs/docledger/foundation/web"
)

type index struct {
	page []byte
}

// newIndex renders the index page once with the ledger endpoints it
// talks to.
func newIndex(build string, ledgerURL string) (*index, error) {
	u, err := url.Parse(ledgerURL)
	if err != nil {
		return nil, fmt.Errorf("parse ledger url: %w", err)
	}

	wsScheme := "ws"
	if u.Scheme == "https" {
		wsScheme = "wss"
	}

	tmpl, err := template.ParseFS(assets, "assets/index.html")
	if err != nil {
		return nil, err
	}

	data := struct {
		Build     string
		ChainURL  string
		EventsURL string
	}{
		Build:     build,
		ChainURL:  u.JoinPath("v1", "chain").String(),
		EventsURL: (&url.URL{Scheme: wsScheme, Host: u.Host, Path: "/v1/events"}).String(),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}

	return &index{page: buf.Bytes()}, nil
}

func (ig *index) handler(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	web.SetStatusCode(ctx, http.StatusOK)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(ig.page)

	return nil
}
