// Package disk implements the ability to read and write blocks to disk
// using a file per block.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ardanlabs/docledger/foundation/ledger/database"
)

// Disk represents the storage implementation for reading and storing blocks
// in their own separate files on disk. This implements the database.Storage
// interface.
type Disk struct {
	dbPath string
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: %s", database.ErrStoreUnavailable, err)
	}

	return &Disk{dbPath: dbPath}, nil
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each new block and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// Append takes the specified block and stores it on disk in a file labeled
// with the block number. The block is first written to a temporary file and
// then linked into place, so a reader never sees a partial block and an
// existing block is never replaced.
func (d *Disk) Append(block database.Block) error {

	// Marshal the block for writing to disk in a more human readable format.
	data, err := json.MarshalIndent(block, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.dbPath, "block-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %s", database.ErrStoreUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %s", database.ErrStoreUnavailable, err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %s", database.ErrStoreUnavailable, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %s", database.ErrStoreUnavailable, err)
	}

	// Link fails when the target exists, which gives us the duplicate check
	// and the publish step in one atomic call.
	if err := os.Link(tmp.Name(), d.getPath(block.Index)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: block %d already exists", database.ErrStoreWriteConflict, block.Index)
		}
		return fmt.Errorf("%w: %s", database.ErrStoreUnavailable, err)
	}

	return nil
}

// LoadAll reads blocks starting with block number 1 until the first missing
// block file. A block file numbered past that gap means blocks were removed
// and the chain is reported as invalid.
func (d *Disk) LoadAll() ([]database.Block, error) {
	var blocks []database.Block

	for num := uint64(1); ; num++ {
		block, err := d.getBlock(num)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				if err := d.checkGap(num); err != nil {
					return nil, err
				}
				return blocks, nil
			}
			return nil, fmt.Errorf("%w: block %d: %s", database.ErrStoreUnavailable, num, err)
		}

		blocks = append(blocks, block)
	}
}

// checkGap fails if any block file exists with a number after the missing
// block.
func (d *Disk) checkGap(missing uint64) error {
	entries, err := os.ReadDir(d.dbPath)
	if err != nil {
		return fmt.Errorf("%w: %s", database.ErrStoreUnavailable, err)
	}

	for _, entry := range entries {
		name, found := strings.CutSuffix(entry.Name(), ".json")
		if !found || entry.IsDir() {
			continue
		}

		num, err := strconv.ParseUint(name, 10, 64)
		if err != nil {
			continue
		}

		if num > missing {
			return fmt.Errorf("%w: block %d is missing but block %d exists", database.ErrChainInvalid, missing, num)
		}
	}

	return nil
}

// getBlock opens and decodes the file for the specified block number.
func (d *Disk) getBlock(num uint64) (database.Block, error) {
	f, err := os.Open(d.getPath(num))
	if err != nil {
		return database.Block{}, err
	}
	defer f.Close()

	var block database.Block
	if err := json.NewDecoder(f).Decode(&block); err != nil {
		return database.Block{}, err
	}

	if block.Documents == nil {
		block.Documents = []database.Document{}
	}

	return block, nil
}

// getPath forms the path to the specified block.
func (d *Disk) getPath(blockNum uint64) string {
	name := strconv.FormatUint(blockNum, 10)
	return filepath.Join(d.dbPath, fmt.Sprintf("%s.json", name))
}
