// Package database defines the ledger data model, the contract a storage
// medium must honor, and verification of a chain of blocks.
package database

import "errors"

// Set of errors a Storage implementation wraps.
var (
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrStoreWriteConflict = errors.New("store write conflict")
)

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the ledger. The contract
// is append only, there is no way to update or remove a block.
type Storage interface {

	// LoadAll returns every stored block ordered by index.
	LoadAll() ([]Block, error)

	// Append durably stores one block. A block whose index already exists
	// must be rejected with ErrStoreWriteConflict. Nothing is persisted when
	// an error is returned.
	Append(block Block) error

	// Close releases the medium.
	Close() error
}
