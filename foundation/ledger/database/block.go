package database

import (
	"fmt"
	"time"

	"github.com/ardanlabs/docledger/foundation/ledger/hasher"
)

// GenesisHash is the previous hash stored in the genesis block. It is part of
// the storage contract and must not change.
const GenesisHash = "0"

// GenesisProof is the fixed proof of the genesis block. The genesis block is
// never searched for.
const GenesisProof int64 = 1

// =============================================================================

// Document represents a single record submitted to the ledger.
type Document struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Block represents a group of documents sealed together.
type Block struct {
	Index        uint64     `json:"index"`
	CreatedAt    time.Time  `json:"created_at"`
	Documents    []Document `json:"documents"`
	Proof        int64      `json:"proof"`
	PreviousHash string     `json:"previous_hash"`
}

// NewGenesis constructs the first block of a chain.
func NewGenesis(now time.Time) Block {
	return Block{
		Index:        1,
		CreatedAt:    now.UTC(),
		Documents:    []Document{},
		Proof:        GenesisProof,
		PreviousHash: GenesisHash,
	}
}

// NewBlock constructs the block that follows the previous block.
func NewBlock(prevBlock Block, now time.Time, docs []Document, proof int64) Block {
	if docs == nil {
		docs = []Document{}
	}

	return Block{
		Index:        prevBlock.Index + 1,
		CreatedAt:    now.UTC(),
		Documents:    docs,
		Proof:        proof,
		PreviousHash: prevBlock.Hash(),
	}
}

// Hash returns the digest of the canonical form of the block. The record
// holds only strings, integers and lists of those, which always encode, so
// the digest never fails. A failure here is a programming error.
func (b Block) Hash() string {
	hash, err := hasher.Digest(b.record())
	if err != nil {
		panic(fmt.Sprintf("database: hash blk[%d]: %s", b.Index, err))
	}

	return hash
}

// Copy returns a block that shares no memory with the original.
func (b Block) Copy() Block {
	docs := make([]Document, len(b.Documents))
	copy(docs, b.Documents)
	b.Documents = docs

	return b
}

// record builds the canonical record for hashing. Timestamps are rendered as
// UTC RFC 3339 text with nanoseconds, which is lossless for every year the
// JSON encoding accepts and independent of the time location.
func (b Block) record() map[string]any {
	docs := make([]map[string]any, len(b.Documents))
	for i, doc := range b.Documents {
		docs[i] = map[string]any{
			"title":        doc.Title,
			"description":  doc.Description,
			"submitted_at": canonicalTime(doc.SubmittedAt),
		}
	}

	return map[string]any{
		"index":         b.Index,
		"created_at":    canonicalTime(b.CreatedAt),
		"documents":     docs,
		"proof":         b.Proof,
		"previous_hash": b.PreviousHash,
	}
}

// canonicalTime renders the instant the same way for any location.
func canonicalTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
