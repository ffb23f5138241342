// Package storage constructs the configured ledger storage backend.
package storage

import (
	"fmt"

	"github.com/ardanlabs/docledger/foundation/ledger/database"
	"github.com/ardanlabs/docledger/foundation/ledger/database/storage/bolt"
	"github.com/ardanlabs/docledger/foundation/ledger/database/storage/disk"
	"github.com/ardanlabs/docledger/foundation/ledger/database/storage/leveldb"
	"github.com/ardanlabs/docledger/foundation/ledger/database/storage/memory"
	"github.com/ardanlabs/docledger/foundation/ledger/database/storage/sqldb"
	"github.com/pressly/goose/v3"
)

// Set of supported storage kinds.
const (
	KindMemory   = "memory"
	KindDisk     = "disk"
	KindLevelDB  = "leveldb"
	KindBolt     = "bolt"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
)

// Config represents the settings needed to open a backend. Path is used by
// the file based kinds and DSN by the SQL kinds.
type Config struct {
	Kind string
	Path string
	DSN  string
	Log  goose.Logger
}

// Open constructs the storage for the configured kind.
func Open(cfg Config) (database.Storage, error) {
	switch cfg.Kind {
	case KindMemory:
		return memory.New()

	case KindDisk:
		return disk.New(cfg.Path)

	case KindLevelDB:
		return leveldb.New(cfg.Path)

	case KindBolt:
		return bolt.New(cfg.Path)

	case KindSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.Path
		}
		return sqldb.New(sqldb.Config{Driver: sqldb.DriverSQLite, DSN: dsn, Log: cfg.Log})

	case KindPostgres:
		return sqldb.New(sqldb.Config{Driver: sqldb.DriverPostgres, DSN: cfg.DSN, Log: cfg.Log})
	}

	return nil, fmt.Errorf("unknown storage kind %q", cfg.Kind)
}
