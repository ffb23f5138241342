package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ardanlabs/docledger/foundation/ledger/database"
	"github.com/ardanlabs/docledger/foundation/ledger/proof"
)

// Set of errors returned by the ledger operations.
var (
	ErrInvalidDocument = errors.New("invalid document")
	ErrSealInProgress  = errors.New("seal in progress")
)

// =============================================================================

// SubmitDocument adds a new document to the set waiting for the next block.
// When a worker is registered and the pending set reaches the seal batch
// size, the worker is signaled to seal.
func (s *State) SubmitDocument(title string, description string) (database.Document, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	switch {
	case title == "":
		return database.Document{}, fmt.Errorf("%w: title is required", ErrInvalidDocument)
	case description == "":
		return database.Document{}, fmt.Errorf("%w: description is required", ErrInvalidDocument)
	}

	doc := s.mempool.Submit(title, description)

	pending := s.mempool.Count()

	s.metrics.documents.Inc()
	s.metrics.pending.Set(float64(pending))
	s.evHandler("state: SubmitDocument: title[%s]", doc.Title)

	if s.Worker != nil && s.sealBatch > 0 && pending >= s.sealBatch {
		s.evHandler("state: SubmitDocument: signal seal: docs[%d]", pending)
		s.Worker.SignalSeal()
	}

	return doc, nil
}

// SealBlock solves the proof for the next block, attaches every pending
// document to it and appends it to the chain. Only one seal runs at a time,
// a concurrent call fails with ErrSealInProgress. The block only becomes
// part of the in memory chain once storage accepts it. If storage fails the
// documents go back to the front of the pending set.
func (s *State) SealBlock(ctx context.Context) (database.Block, error) {
	if !s.sealing.CompareAndSwap(false, true) {
		s.metrics.failure(ErrSealInProgress)
		return database.Block{}, ErrSealInProgress
	}
	defer s.sealing.Store(false)

	s.evHandler("state: SealBlock: started")
	defer s.evHandler("state: SealBlock: completed")

	prevBlock := s.RetrieveLatestBlock()

	if s.sealTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.sealTimeout)
		defer cancel()
	}

	s.evHandler("state: SealBlock: perform POW: prevBlk[%d]: prevProof[%d]", prevBlock.Index, prevBlock.Proof)

	// An aborted search happens before the drain, so the pending documents
	// are untouched.
	start := time.Now()
	prf, err := proof.Search(ctx, prevBlock.Proof, s.maxProofAttempts, proof.EventHandler(s.evHandler))
	s.metrics.proofDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.failure(err)
		return database.Block{}, fmt.Errorf("seal block %d: %w", prevBlock.Index+1, err)
	}

	docs := s.mempool.DrainAll()
	block := database.NewBlock(prevBlock, time.Now(), docs, prf)

	s.evHandler("state: SealBlock: write to storage: blk[%d]: docs[%d]", block.Index, len(docs))

	if err := s.storage.Append(block); err != nil {
		s.mempool.Restore(docs)
		s.metrics.failure(err)
		s.evHandler("state: SealBlock: ERROR: blk[%d]: restored docs[%d]: %s", block.Index, len(docs), err)
		return database.Block{}, fmt.Errorf("append block %d: %w", block.Index, err)
	}

	s.mu.Lock()
	{
		s.chain = append(s.chain, block)
		s.metrics.chainLength.Set(float64(len(s.chain)))
	}
	s.mu.Unlock()

	s.metrics.seals.Inc()
	s.metrics.pending.Set(float64(s.mempool.Count()))

	// Send an event about this new block.
	s.blockEvent(block)

	return block.Copy(), nil
}

// =============================================================================

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockJSON, err := json.Marshal(block)
	if err != nil {
		blockJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"hash":%q,"block":%s}`, block.Hash(), string(blockJSON))
}
