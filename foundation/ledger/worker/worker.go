// Package worker implements background sealing for the ledger.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/docledger/foundation/ledger/state"
)

// Worker manages the background seal workflow for the ledger.
type Worker struct {
	state     *state.State
	wg        sync.WaitGroup
	ticker    *time.Ticker
	shut      chan struct{}
	startSeal chan bool
	cancel    context.CancelFunc
	evHandler state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts the sealing goroutine. A zero interval disables the ticker, leaving
// only explicit signals.
func Run(st *state.State, interval time.Duration, evHandler state.EventHandler) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	w := Worker{
		state:     st,
		shut:      make(chan struct{}),
		startSeal: make(chan bool, 1),
		cancel:    cancel,
		evHandler: evHandler,
	}

	if interval > 0 {
		w.ticker = time.NewTicker(interval)
	}

	// Register this worker with the state package.
	st.Worker = &w

	w.wg.Add(1)
	hasStarted := make(chan bool)

	go func() {
		defer w.wg.Done()
		hasStarted <- true
		w.sealOperations(ctx)
	}()

	<-hasStarted

	return &w
}

// Shutdown terminates the goroutine performing work. A seal in progress is
// cancelled.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	if w.ticker != nil {
		w.evHandler("worker: shutdown: stop ticker")
		w.ticker.Stop()
	}

	w.evHandler("worker: shutdown: cancel sealing")
	w.cancel()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalSeal starts a seal operation. If there is already a signal pending
// in the channel, just return since a seal will start.
func (w *Worker) SignalSeal() {
	select {
	case w.startSeal <- true:
	default:
	}
	w.evHandler("worker: SignalSeal: seal signaled")
}

// =============================================================================

// sealOperations waits for a tick or a signal and seals pending documents.
func (w *Worker) sealOperations(ctx context.Context) {
	w.evHandler("worker: sealOperations: G started")
	defer w.evHandler("worker: sealOperations: G completed")

	var tick <-chan time.Time
	if w.ticker != nil {
		tick = w.ticker.C
	}

	for {
		select {
		case <-tick:
			if !w.isShutdown() {
				w.runSealOperation(ctx)
			}
		case <-w.startSeal:
			if !w.isShutdown() {
				w.runSealOperation(ctx)
			}
		case <-w.shut:
			w.evHandler("worker: sealOperations: received shut signal")
			return
		}
	}
}

// runSealOperation seals a block when documents are pending.
func (w *Worker) runSealOperation(ctx context.Context) {
	length := w.state.QueryPendingLength()
	if length == 0 {
		return
	}

	w.evHandler("worker: runSealOperation: SEAL: started: docs[%d]", length)
	defer w.evHandler("worker: runSealOperation: SEAL: completed")

	t := time.Now()
	block, err := w.state.SealBlock(ctx)
	duration := time.Since(t)

	if err != nil {
		switch {
		case errors.Is(err, state.ErrSealInProgress):
			w.evHandler("worker: runSealOperation: SEAL: WARNING: seal already running")
		case ctx.Err() != nil:
			w.evHandler("worker: runSealOperation: SEAL: CANCEL: complete")
		default:
			w.evHandler("worker: runSealOperation: SEAL: ERROR: %s", err)
		}
		return
	}

	w.evHandler("worker: runSealOperation: SEAL: blk[%d]: duration[%v]", block.Index, duration)
}

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
