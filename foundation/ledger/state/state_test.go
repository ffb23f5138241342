package state_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/docledger/foundation/ledger/database"
	"github.com/ardanlabs/docledger/foundation/ledger/database/storage/disk"
	"github.com/ardanlabs/docledger/foundation/ledger/database/storage/memory"
	"github.com/ardanlabs/docledger/foundation/ledger/proof"
	"github.com/ardanlabs/docledger/foundation/ledger/state"
	"github.com/prometheus/client_golang/prometheus"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

// faultyStorage fails every Append after the first ok calls.
type faultyStorage struct {
	database.Storage
	mu sync.Mutex
	ok int
}

func (f *faultyStorage) Append(block database.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ok <= 0 {
		return fmt.Errorf("%w: disk gone", database.ErrStoreUnavailable)
	}
	f.ok--

	return f.Storage.Append(block)
}

// heldStorage blocks Append for non genesis blocks until release is closed.
type heldStorage struct {
	database.Storage
	entered chan struct{}
	release chan struct{}
}

func (h *heldStorage) Append(block database.Block) error {
	if block.Index > 1 {
		close(h.entered)
		<-h.release
	}
	return h.Storage.Append(block)
}

func newState(t *testing.T, strg database.Storage) *state.State {
	t.Helper()

	st, err := state.New(state.Config{
		Storage:    strg,
		Registerer: prometheus.NewRegistry(),
		EvHandler:  func(v string, args ...any) { t.Logf(v, args...) },
	})
	if err != nil {
		t.Fatalf("unable to construct state: %s", err)
	}

	return st
}

func newMemory(t *testing.T) database.Storage {
	t.Helper()

	strg, err := memory.New()
	if err != nil {
		t.Fatalf("unable to construct memory storage: %s", err)
	}

	return strg
}

// =============================================================================

func TestGenesis(t *testing.T) {
	t.Log("Given the need to start a ledger on empty storage.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a new ledger.", testID)
		{
			st := newState(t, newMemory(t))

			chain := st.ReadChain()
			if chain.Length != 1 || len(chain.Blocks) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould have only the genesis block, got %d.", failed, testID, chain.Length)
			}
			t.Logf("\t%s\tTest %d:\tShould have only the genesis block.", success, testID)

			genesis := chain.Blocks[0]
			if genesis.Index != 1 || genesis.Proof != database.GenesisProof || genesis.PreviousHash != database.GenesisHash || len(genesis.Documents) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould have the genesis values, got %+v.", failed, testID, genesis)
			}
			t.Logf("\t%s\tTest %d:\tShould have the genesis values.", success, testID)

			if err := st.Verify(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould verify the chain: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould verify the chain.", success, testID)
		}
	}
}

func TestSubmitValidation(t *testing.T) {
	type table struct {
		name        string
		title       string
		description string
		err         error
	}

	tt := []table{
		{name: "valid", title: "Deed", description: "Transfer of title"},
		{name: "no-title", title: "", description: "Transfer of title", err: state.ErrInvalidDocument},
		{name: "blank-title", title: "   ", description: "Transfer of title", err: state.ErrInvalidDocument},
		{name: "no-description", title: "Deed", description: "", err: state.ErrInvalidDocument},
	}

	t.Log("Given the need to validate submitted documents.")
	{
		st := newState(t, newMemory(t))

		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling document %q.", testID, tst.name)
				{
					_, err := st.SubmitDocument(tst.title, tst.description)
					if !errors.Is(err, tst.err) {
						t.Fatalf("\t%s\tTest %d:\tShould get error %v, got %v.", failed, testID, tst.err, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get the expected error.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}

		if n := len(st.QueryPending()); n != 1 {
			t.Fatalf("\t%s\tShould hold only the valid document, got %d.", failed, n)
		}
		t.Logf("\t%s\tShould hold only the valid document.", success)

		if st.ReadChain().Length != 1 {
			t.Fatalf("\t%s\tShould not change the chain on submit.", failed)
		}
		t.Logf("\t%s\tShould not change the chain on submit.", success)
	}
}

func TestSealDocument(t *testing.T) {
	t.Log("Given the need to seal a submitted document.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen sealing the Deed document.", testID)
		{
			st := newState(t, newMemory(t))
			genesis := st.RetrieveLatestBlock()

			if _, err := st.SubmitDocument("Deed", "Transfer of title"); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to submit: %s", failed, testID, err)
			}

			block, err := st.SealBlock(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to seal: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to seal.", success, testID)

			if block.Index != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould have index 2, got %d.", failed, testID, block.Index)
			}
			t.Logf("\t%s\tTest %d:\tShould have index 2.", success, testID)

			if len(block.Documents) != 1 || block.Documents[0].Title != "Deed" || block.Documents[0].Description != "Transfer of title" {
				t.Fatalf("\t%s\tTest %d:\tShould carry the Deed document, got %+v.", failed, testID, block.Documents)
			}
			t.Logf("\t%s\tTest %d:\tShould carry the Deed document.", success, testID)

			if block.PreviousHash != genesis.Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould link to the genesis hash.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould link to the genesis hash.", success, testID)

			if block.Proof != 533 || !proof.Validate(genesis.Proof, block.Proof) {
				t.Fatalf("\t%s\tTest %d:\tShould have a valid proof, got %d.", failed, testID, block.Proof)
			}
			t.Logf("\t%s\tTest %d:\tShould have a valid proof.", success, testID)

			if n := len(st.QueryPending()); n != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould have no pending documents, got %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould have no pending documents.", success, testID)
		}
	}
}

func TestSealMany(t *testing.T) {
	t.Log("Given the need to seal blocks with nothing pending.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen sealing three times.", testID)
		{
			const seals = 3

			st := newState(t, newMemory(t))

			for i := 0; i < seals; i++ {
				block, err := st.SealBlock(context.Background())
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to seal: %s", failed, testID, err)
				}
				if len(block.Documents) != 0 {
					t.Fatalf("\t%s\tTest %d:\tShould seal an empty block.", failed, testID)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould be able to seal empty blocks.", success, testID)

			chain := st.ReadChain()
			if chain.Length != seals+1 {
				t.Fatalf("\t%s\tTest %d:\tShould have %d blocks, got %d.", failed, testID, seals+1, chain.Length)
			}
			t.Logf("\t%s\tTest %d:\tShould have %d blocks.", success, testID, seals+1)

			if err := database.VerifyChain(chain.Blocks); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould verify the chain: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould verify the chain.", success, testID)

			if _, err := st.QueryBlock(seals + 2); !errors.Is(err, state.ErrBlockNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould not find a block past the tip.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not find a block past the tip.", success, testID)
		}
	}
}

func TestSealStoreFailure(t *testing.T) {
	t.Log("Given the need to keep documents when storage fails.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen storage rejects the block.", testID)
		{
			strg := faultyStorage{Storage: newMemory(t), ok: 1}
			st := newState(t, &strg)

			st.SubmitDocument("a", "1")
			st.SubmitDocument("b", "2")

			_, err := st.SealBlock(context.Background())
			if !errors.Is(err, database.ErrStoreUnavailable) {
				t.Fatalf("\t%s\tTest %d:\tShould get a store error, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get a store error.", success, testID)

			if st.ReadChain().Length != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould not grow the chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not grow the chain.", success, testID)

			pending := st.QueryPending()
			if len(pending) != 2 || pending[0].Title != "a" || pending[1].Title != "b" {
				t.Fatalf("\t%s\tTest %d:\tShould restore the documents in order, got %+v.", failed, testID, pending)
			}
			t.Logf("\t%s\tTest %d:\tShould restore the documents in order.", success, testID)

			strg.mu.Lock()
			strg.ok = 1
			strg.mu.Unlock()

			block, err := st.SealBlock(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould seal after storage recovers: %s", failed, testID, err)
			}
			if block.Index != 2 || len(block.Documents) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould seal the restored documents, got %+v.", failed, testID, block)
			}
			t.Logf("\t%s\tTest %d:\tShould seal the restored documents after recovery.", success, testID)
		}
	}
}

func TestSealProofAborted(t *testing.T) {
	t.Log("Given the need to abort a proof search.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the attempt cap is too small.", testID)
		{
			st, err := state.New(state.Config{
				Storage:          newMemory(t),
				MaxProofAttempts: 10,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould construct state: %s", failed, testID, err)
			}

			st.SubmitDocument("Deed", "Transfer of title")

			if _, err := st.SealBlock(context.Background()); !errors.Is(err, proof.ErrProofSearchExhausted) {
				t.Fatalf("\t%s\tTest %d:\tShould exhaust the search, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould exhaust the search.", success, testID)

			if len(st.QueryPending()) != 1 || st.ReadChain().Length != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the ledger untouched.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the ledger untouched.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the context is cancelled.", testID)
		{
			st := newState(t, newMemory(t))

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			if _, err := st.SealBlock(ctx); !errors.Is(err, proof.ErrProofSearchTimeout) {
				t.Fatalf("\t%s\tTest %d:\tShould time out, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould time out.", success, testID)
		}
	}
}

func TestSealInProgress(t *testing.T) {
	t.Log("Given the need to run one seal at a time.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a second seal starts during the first.", testID)
		{
			strg := heldStorage{
				Storage: newMemory(t),
				entered: make(chan struct{}),
				release: make(chan struct{}),
			}
			st := newState(t, &strg)

			st.SubmitDocument("first", "1")

			errCh := make(chan error, 1)
			go func() {
				_, err := st.SealBlock(context.Background())
				errCh <- err
			}()

			<-strg.entered

			if _, err := st.SealBlock(context.Background()); !errors.Is(err, state.ErrSealInProgress) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the second seal, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the second seal.", success, testID)

			if _, err := st.SubmitDocument("second", "2"); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept submits while sealing: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould accept submits while sealing.", success, testID)

			close(strg.release)

			select {
			case err := <-errCh:
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould complete the first seal: %s", failed, testID, err)
				}
			case <-time.After(5 * time.Second):
				t.Fatalf("\t%s\tTest %d:\tShould complete the first seal in time.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould complete the first seal.", success, testID)

			block, _ := st.QueryBlock(2)
			if len(block.Documents) != 1 || block.Documents[0].Title != "first" {
				t.Fatalf("\t%s\tTest %d:\tShould seal only the first document, got %+v.", failed, testID, block.Documents)
			}
			t.Logf("\t%s\tTest %d:\tShould seal only the first document.", success, testID)

			pending := st.QueryPending()
			if len(pending) != 1 || pending[0].Title != "second" {
				t.Fatalf("\t%s\tTest %d:\tShould keep the second document pending, got %+v.", failed, testID, pending)
			}
			t.Logf("\t%s\tTest %d:\tShould keep the second document pending.", success, testID)
		}
	}
}

func TestReload(t *testing.T) {
	t.Log("Given the need to restart a ledger from disk.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen reopening the same directory.", testID)
		{
			dir := filepath.Join(t.TempDir(), "blocks")

			strg, err := disk.New(dir)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould open disk storage: %s", failed, testID, err)
			}

			st := newState(t, strg)
			st.SubmitDocument("Deed", "Transfer of title")
			if _, err := st.SealBlock(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould seal: %s", failed, testID, err)
			}
			want := st.ReadChain()

			if err := st.Shutdown(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould shutdown: %s", failed, testID, err)
			}

			strg, err = disk.New(dir)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould reopen disk storage: %s", failed, testID, err)
			}

			st = newState(t, strg)
			defer st.Shutdown()

			got := st.ReadChain()
			if got.Length != want.Length {
				t.Fatalf("\t%s\tTest %d:\tShould reload %d blocks, got %d.", failed, testID, want.Length, got.Length)
			}
			for i := range got.Blocks {
				if got.Blocks[i].Hash() != want.Blocks[i].Hash() {
					t.Fatalf("\t%s\tTest %d:\tShould reload block %d unchanged.", failed, testID, i+1)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould reload the chain unchanged.", success, testID)
		}
	}
}

func TestConcurrentSubmit(t *testing.T) {
	t.Log("Given the need to accept documents from many callers.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen submitting while sealing.", testID)
		{
			const writers = 4
			const perWriter = 25

			st := newState(t, newMemory(t))

			var wg sync.WaitGroup
			wg.Add(writers)
			for w := 0; w < writers; w++ {
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						st.SubmitDocument(fmt.Sprintf("%d-%d", w, i), "x")
					}
				}(w)
			}

			for i := 0; i < 2; i++ {
				if _, err := st.SealBlock(context.Background()); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould seal: %s", failed, testID, err)
				}
			}
			wg.Wait()

			seen := make(map[string]int)
			for _, block := range st.ReadChain().Blocks {
				for _, doc := range block.Documents {
					seen[doc.Title]++
				}
			}
			for _, doc := range st.QueryPending() {
				seen[doc.Title]++
			}

			if len(seen) != writers*perWriter {
				t.Fatalf("\t%s\tTest %d:\tShould account for every document, got %d.", failed, testID, len(seen))
			}
			for title, n := range seen {
				if n != 1 {
					t.Fatalf("\t%s\tTest %d:\tShould see %s once, got %d.", failed, testID, title, n)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould account for every document exactly once.", success, testID)
		}
	}
}
