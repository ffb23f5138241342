// Package mempool maintains the documents waiting to be sealed into a block.
package mempool

import (
	"sync"
	"time"

	"github.com/ardanlabs/docledger/foundation/ledger/database"
)

// Mempool represents the ordered set of pending documents.
type Mempool struct {
	mu   sync.Mutex
	docs []database.Document
	now  func() time.Time
}

// New constructs a new, empty mempool.
func New() *Mempool {
	return &Mempool{
		now: time.Now,
	}
}

// Count returns the current number of pending documents.
func (mp *Mempool) Count() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return len(mp.docs)
}

// Submit stamps a new document with the current time and adds it to the end
// of the pool.
func (mp *Mempool) Submit(title string, description string) database.Document {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	doc := database.Document{
		Title:       title,
		Description: description,
		SubmittedAt: mp.now().UTC(),
	}
	mp.docs = append(mp.docs, doc)

	return doc
}

// DrainAll empties the pool and returns its prior contents in submission
// order.
func (mp *Mempool) DrainAll() []database.Document {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	docs := mp.docs
	mp.docs = nil

	if docs == nil {
		docs = []database.Document{}
	}

	return docs
}

// Restore puts drained documents back at the front of the pool, ahead of any
// document submitted since the drain.
func (mp *Mempool) Restore(docs []database.Document) {
	if len(docs) == 0 {
		return
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	restored := make([]database.Document, 0, len(docs)+len(mp.docs))
	restored = append(restored, docs...)
	restored = append(restored, mp.docs...)

	mp.docs = restored
}

// Copy returns the pending documents without removing them.
func (mp *Mempool) Copy() []database.Document {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	cpy := make([]database.Document, len(mp.docs))
	copy(cpy, mp.docs)

	return cpy
}
