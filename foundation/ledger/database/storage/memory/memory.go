// Package memory implements the ability to read and write blocks to memory
// using a slice.
package memory

import (
	"fmt"
	"sync"

	"github.com/ardanlabs/docledger/foundation/ledger/database"
)

// Memory represents the storage implementation for reading and storing
// blocks in memory using a slice. This implements the database.Storage
// interface.
type Memory struct {
	mu     sync.RWMutex
	blocks []database.Block
}

// New constructs a Memory value for use.
func New() (*Memory, error) {
	return &Memory{}, nil
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Append stores a copy of the block in memory.
func (m *Memory) Append(block database.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := uint64(len(m.blocks))
	if block.Index <= l {
		return fmt.Errorf("%w: block %d already exists", database.ErrStoreWriteConflict, block.Index)
	}
	if block.Index != l+1 {
		return fmt.Errorf("%w: block %d is out of order, exp %d", database.ErrStoreWriteConflict, block.Index, l+1)
	}

	m.blocks = append(m.blocks, block.Copy())

	return nil
}

// LoadAll returns a copy of every block in order.
func (m *Memory) LoadAll() ([]database.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blocks := make([]database.Block, len(m.blocks))
	for i, block := range m.blocks {
		blocks[i] = block.Copy()
	}

	return blocks, nil
}
