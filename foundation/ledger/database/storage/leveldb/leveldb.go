// Package leveldb implements the ability to read and write blocks to a
// LevelDB key value store.
package leveldb

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ardanlabs/docledger/foundation/ledger/database"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// blockPrefix namespaces the block keys inside the store.
var blockPrefix = []byte("blk:")

// LevelDB represents the storage implementation for reading and storing
// blocks in LevelDB. Keys are the prefix followed by the big endian block
// number so iteration returns blocks in order. This implements the
// database.Storage interface.
type LevelDB struct {
	mu sync.Mutex
	db *leveldb.DB
}

// New opens or creates the LevelDB database at the path.
func New(dbPath string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open leveldb: %s", database.ErrStoreUnavailable, err)
	}

	return &LevelDB{db: db}, nil
}

// Close releases the database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

// Append stores the block with a synced write.
func (l *LevelDB) Append(block database.Block) error {
	data, err := json.Marshal(block)
	if err != nil {
		return err
	}

	key := blockKey(block.Index)

	// The existence check and the write must not interleave with another
	// append for the same key.
	l.mu.Lock()
	defer l.mu.Unlock()

	exists, err := l.db.Has(key, nil)
	if err != nil {
		return fmt.Errorf("%w: %s", database.ErrStoreUnavailable, err)
	}
	if exists {
		return fmt.Errorf("%w: block %d already exists", database.ErrStoreWriteConflict, block.Index)
	}

	if err := l.db.Put(key, data, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("%w: %s", database.ErrStoreUnavailable, err)
	}

	return nil
}

// LoadAll iterates the block keys in order.
func (l *LevelDB) LoadAll() ([]database.Block, error) {
	iter := l.db.NewIterator(util.BytesPrefix(blockPrefix), nil)
	defer iter.Release()

	var blocks []database.Block
	for iter.Next() {
		var block database.Block
		if err := json.Unmarshal(iter.Value(), &block); err != nil {
			return nil, fmt.Errorf("decode block key %x: %w", iter.Key(), err)
		}
		if block.Documents == nil {
			block.Documents = []database.Document{}
		}
		blocks = append(blocks, block)
	}

	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("%w: %s", database.ErrStoreUnavailable, err)
	}

	return blocks, nil
}

// blockKey forms the key for the specified block number.
func blockKey(num uint64) []byte {
	key := make([]byte, len(blockPrefix)+8)
	copy(key, blockPrefix)
	binary.BigEndian.PutUint64(key[len(blockPrefix):], num)
	return key
}
