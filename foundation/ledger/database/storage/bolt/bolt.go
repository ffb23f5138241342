// Package bolt implements the ability to read and write blocks to a bbolt
// database file.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/docledger/foundation/ledger/database"
	bolt "go.etcd.io/bbolt"
)

var bucketBlocks = []byte("blocks")

// errExists is used inside the update transaction to roll it back.
var errExists = errors.New("exists")

// Bolt represents the storage implementation for reading and storing blocks
// in a single bbolt file. This implements the database.Storage interface.
type Bolt struct {
	db *bolt.DB
}

// New opens or creates the database file at the path.
func New(dbPath string) (*Bolt, error) {
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open bolt: %s", database.ErrStoreUnavailable, err)
	}

	f := func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBlocks)
		return err
	}

	if err := db.Update(f); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create bucket: %s", database.ErrStoreUnavailable, err)
	}

	return &Bolt{db: db}, nil
}

// Close releases the database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Append stores the block inside a single update transaction.
func (b *Bolt) Append(block database.Block) error {
	data, err := json.Marshal(block)
	if err != nil {
		return err
	}

	key := blockKey(block.Index)

	f := func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketBlocks)
		if bkt.Get(key) != nil {
			return errExists
		}
		return bkt.Put(key, data)
	}

	if err := b.db.Update(f); err != nil {
		if errors.Is(err, errExists) {
			return fmt.Errorf("%w: block %d already exists", database.ErrStoreWriteConflict, block.Index)
		}
		return fmt.Errorf("%w: %s", database.ErrStoreUnavailable, err)
	}

	return nil
}

// LoadAll walks the bucket in key order.
func (b *Bolt) LoadAll() ([]database.Block, error) {
	var blocks []database.Block

	f := func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlocks).ForEach(func(k, v []byte) error {
			var block database.Block
			if err := json.Unmarshal(v, &block); err != nil {
				return fmt.Errorf("decode block %d: %w", binary.BigEndian.Uint64(k), err)
			}
			if block.Documents == nil {
				block.Documents = []database.Document{}
			}
			blocks = append(blocks, block)
			return nil
		})
	}

	if err := b.db.View(f); err != nil {
		return nil, fmt.Errorf("%w: %s", database.ErrStoreUnavailable, err)
	}

	return blocks, nil
}

// blockKey forms the key for the specified block number.
func blockKey(num uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, num)
	return key
}
