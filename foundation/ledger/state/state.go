// Package state is the core API for the ledger and implements all the
// business rules for submitting documents and sealing blocks.
package state

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardanlabs/docledger/foundation/ledger/database"
	"github.com/ardanlabs/docledger/foundation/ledger/mempool"
	"github.com/prometheus/client_golang/prometheus"
)

// EventHandler defines a function that is called when events
// occur in the processing of documents and blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing background support for the ledger.
type Worker interface {
	Shutdown()
	SignalSeal()
}

// =============================================================================

// Config represents the configuration required to start the ledger.
type Config struct {
	Storage          database.Storage
	SealTimeout      time.Duration
	MaxProofAttempts uint64
	SealBatch        int
	Registerer       prometheus.Registerer
	EvHandler        EventHandler
}

// State manages the ledger. It owns the in memory chain and the pending
// documents.
type State struct {
	evHandler        EventHandler
	sealTimeout      time.Duration
	maxProofAttempts uint64
	sealBatch        int

	mu      sync.RWMutex
	chain   []database.Block
	sealing atomic.Bool

	mempool *mempool.Mempool
	storage database.Storage
	metrics *metrics

	Worker Worker
}

// New loads and verifies the stored chain. When storage is empty the genesis
// block is created and persisted before the ledger is returned.
func New(cfg Config) (*State, error) {
	if cfg.Storage == nil {
		return nil, errors.New("storage is required")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	mtr, err := newMetrics(cfg.Registerer)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	// Load all existing blocks from storage into memory for processing.
	blocks, err := cfg.Storage.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}

	ev("state: New: loaded blocks[%d]", len(blocks))

	if err := database.VerifyChain(blocks); err != nil {
		return nil, fmt.Errorf("verify stored chain: %w", err)
	}

	if len(blocks) == 0 {
		genesis := database.NewGenesis(time.Now())
		if err := cfg.Storage.Append(genesis); err != nil {
			return nil, fmt.Errorf("write genesis block: %w", err)
		}

		ev("state: New: genesis block created: hash[%s]", genesis.Hash())
		blocks = []database.Block{genesis}
	}

	state := State{
		evHandler:        ev,
		sealTimeout:      cfg.SealTimeout,
		maxProofAttempts: cfg.MaxProofAttempts,
		sealBatch:        cfg.SealBatch,

		chain:   blocks,
		mempool: mempool.New(),
		storage: cfg.Storage,
		metrics: mtr,
	}

	mtr.chainLength.Set(float64(len(blocks)))

	// The Worker is not set here. The call to worker.Run will assign itself
	// when background sealing is enabled.

	return &state, nil
}

// Shutdown cleanly brings the ledger down. Pending documents that were never
// sealed are lost.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	if n := s.mempool.Count(); n > 0 {
		s.evHandler("state: shutdown: WARNING: dropping pending documents[%d]", n)
	}

	return s.storage.Close()
}
