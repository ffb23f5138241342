package worker_test

import (
	"testing"
	"time"

	"github.com/ardanlabs/docledger/foundation/ledger/database/storage/memory"
	"github.com/ardanlabs/docledger/foundation/ledger/state"
	"github.com/ardanlabs/docledger/foundation/ledger/worker"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newState(t *testing.T) *state.State {
	t.Helper()

	return newBatchState(t, 0)
}

func newBatchState(t *testing.T, batch int) *state.State {
	t.Helper()

	strg, err := memory.New()
	if err != nil {
		t.Fatalf("unable to construct memory storage: %s", err)
	}

	st, err := state.New(state.Config{Storage: strg, SealBatch: batch})
	if err != nil {
		t.Fatalf("unable to construct state: %s", err)
	}

	return st
}

func waitLength(st *state.State, length int) bool {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if st.ReadChain().Length == length {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestSignalSeal(t *testing.T) {
	t.Log("Given the need to seal documents in the background.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen signaling a seal.", testID)
		{
			st := newState(t)
			w := worker.Run(st, 0, func(v string, args ...any) { t.Logf(v, args...) })
			defer w.Shutdown()

			w.SignalSeal()
			time.Sleep(50 * time.Millisecond)
			if st.ReadChain().Length != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould not seal with nothing pending.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not seal with nothing pending.", success, testID)

			st.SubmitDocument("Deed", "Transfer of title")
			w.SignalSeal()

			if !waitLength(st, 2) {
				t.Fatalf("\t%s\tTest %d:\tShould seal the pending document.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould seal the pending document.", success, testID)
		}
	}
}

func TestAutoSeal(t *testing.T) {
	t.Log("Given the need to seal documents on an interval.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the ticker fires.", testID)
		{
			st := newState(t)
			worker.Run(st, 20*time.Millisecond, func(v string, args ...any) {})

			st.SubmitDocument("Deed", "Transfer of title")

			if !waitLength(st, 2) {
				t.Fatalf("\t%s\tTest %d:\tShould seal on the ticker.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould seal on the ticker.", success, testID)

			if err := st.Shutdown(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould shutdown the worker through state: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould shutdown the worker through state.", success, testID)
		}
	}
}

func TestBatchSeal(t *testing.T) {
	t.Log("Given the need to seal once enough documents are pending.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the batch size is two.", testID)
		{
			st := newBatchState(t, 2)
			w := worker.Run(st, 0, func(v string, args ...any) { t.Logf(v, args...) })
			defer w.Shutdown()

			st.SubmitDocument("Deed", "Transfer of title")
			time.Sleep(50 * time.Millisecond)
			if st.ReadChain().Length != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould not seal below the batch size.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not seal below the batch size.", success, testID)

			st.SubmitDocument("Will", "Last will")

			if !waitLength(st, 2) {
				t.Fatalf("\t%s\tTest %d:\tShould seal when the batch is reached.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould seal when the batch is reached.", success, testID)

			block, err := st.QueryBlock(2)
			if err != nil || len(block.Documents) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould seal both documents, got %+v.", failed, testID, block.Documents)
			}
			t.Logf("\t%s\tTest %d:\tShould seal both documents.", success, testID)
		}
	}
}
