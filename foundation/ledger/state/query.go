package state

import (
	"errors"

	"github.com/ardanlabs/docledger/foundation/ledger/database"
)

// ErrBlockNotFound is returned when a block index is outside the chain.
var ErrBlockNotFound = errors.New("block not found")

// Chain is a snapshot of the ledger.
type Chain struct {
	Blocks []database.Block `json:"chain"`
	Length int              `json:"length"`
}

// ReadChain returns a copy of every committed block.
func (s *State) ReadChain() Chain {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blocks := make([]database.Block, len(s.chain))
	for i, block := range s.chain {
		blocks[i] = block.Copy()
	}

	return Chain{
		Blocks: blocks,
		Length: len(blocks),
	}
}

// RetrieveLatestBlock returns a copy of the last block in the chain.
func (s *State) RetrieveLatestBlock() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain[len(s.chain)-1].Copy()
}

// QueryBlock returns the block with the specified index.
func (s *State) QueryBlock(index uint64) (database.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index == 0 || index > uint64(len(s.chain)) {
		return database.Block{}, ErrBlockNotFound
	}

	return s.chain[index-1].Copy(), nil
}

// QueryPending returns the documents waiting for the next block.
func (s *State) QueryPending() []database.Document {
	return s.mempool.Copy()
}

// Verify checks the in memory chain.
func (s *State) Verify() error {
	return database.VerifyChain(s.ReadChain().Blocks)
}

// QueryPendingLength returns the number of documents waiting for the next
// block.
func (s *State) QueryPendingLength() int {
	return s.mempool.Count()
}
