// Package sqldb implements the ability to read and write blocks to a
// relational database. SQLite and PostgreSQL are supported.
package sqldb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/docledger/foundation/ledger/database"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// queryTimeout bounds every call made against the database.
const queryTimeout = 10 * time.Second

// Config is the required properties to use the database.
type Config struct {
	Driver string
	DSN    string
	Log    goose.Logger
}

// SQL represents the storage implementation for reading and storing blocks
// in the blocks and documents tables. This implements the database.Storage
// interface.
type SQL struct {
	db *sql.DB
}

// New opens the database, checks the connection, and applies the schema
// migrations.
func New(cfg Config) (*SQL, error) {
	switch cfg.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %s", database.ErrStoreUnavailable, err)
	}

	// SQLite allows a single writer.
	if cfg.Driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping: %s", database.ErrStoreUnavailable, err)
	}

	if err := migrate(db, cfg); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %s", database.ErrStoreUnavailable, err)
	}

	return &SQL{db: db}, nil
}

// Close releases the connection pool.
func (s *SQL) Close() error {
	return s.db.Close()
}

// Append stores the block and its documents in one transaction.
func (s *SQL) Append(block database.Block) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %s", database.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM blocks WHERE idx = $1`, block.Index).Scan(&exists)
	switch {
	case err == nil:
		return fmt.Errorf("%w: block %d already exists", database.ErrStoreWriteConflict, block.Index)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: lookup: %s", database.ErrStoreUnavailable, err)
	}

	const qBlock = `
	INSERT INTO blocks (idx, created_at, proof, previous_hash)
	VALUES ($1, $2, $3, $4)`

	if _, err := tx.ExecContext(ctx, qBlock, block.Index, block.CreatedAt.UnixNano(), block.Proof, block.PreviousHash); err != nil {
		return wrapWriteErr(block.Index, err)
	}

	const qDoc = `
	INSERT INTO documents (block_idx, position, title, description, submitted_at)
	VALUES ($1, $2, $3, $4, $5)`

	for i, doc := range block.Documents {
		if _, err := tx.ExecContext(ctx, qDoc, block.Index, i, doc.Title, doc.Description, doc.SubmittedAt.UnixNano()); err != nil {
			return wrapWriteErr(block.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapWriteErr(block.Index, err)
	}

	return nil
}

// LoadAll reads the blocks ordered by index with their documents in
// submission order.
func (s *SQL) LoadAll() ([]database.Block, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	const qBlocks = `
	SELECT idx, created_at, proof, previous_hash
	FROM blocks
	ORDER BY idx`

	rows, err := s.db.QueryContext(ctx, qBlocks)
	if err != nil {
		return nil, fmt.Errorf("%w: query blocks: %s", database.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var blocks []database.Block
	position := make(map[uint64]int)

	for rows.Next() {
		var block database.Block
		var createdAt int64
		if err := rows.Scan(&block.Index, &createdAt, &block.Proof, &block.PreviousHash); err != nil {
			return nil, fmt.Errorf("%w: scan block: %s", database.ErrStoreUnavailable, err)
		}
		block.CreatedAt = time.Unix(0, createdAt).UTC()
		block.Documents = []database.Document{}

		position[block.Index] = len(blocks)
		blocks = append(blocks, block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read blocks: %s", database.ErrStoreUnavailable, err)
	}

	const qDocs = `
	SELECT block_idx, title, description, submitted_at
	FROM documents
	ORDER BY block_idx, position`

	docRows, err := s.db.QueryContext(ctx, qDocs)
	if err != nil {
		return nil, fmt.Errorf("%w: query documents: %s", database.ErrStoreUnavailable, err)
	}
	defer docRows.Close()

	for docRows.Next() {
		var idx uint64
		var submittedAt int64
		var doc database.Document
		if err := docRows.Scan(&idx, &doc.Title, &doc.Description, &submittedAt); err != nil {
			return nil, fmt.Errorf("%w: scan document: %s", database.ErrStoreUnavailable, err)
		}
		doc.SubmittedAt = time.Unix(0, submittedAt).UTC()

		i, exists := position[idx]
		if !exists {
			return nil, fmt.Errorf("document references unknown block %d", idx)
		}
		blocks[i].Documents = append(blocks[i].Documents, doc)
	}
	if err := docRows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read documents: %s", database.ErrStoreUnavailable, err)
	}

	return blocks, nil
}

// =============================================================================

// migrate brings the schema up to date using the embedded migrations.
func migrate(db *sql.DB, cfg Config) error {
	if cfg.Log != nil {
		goose.SetLogger(cfg.Log)
	}

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(cfg.Driver); err != nil {
		return err
	}

	return goose.Up(db, "migrations")
}

// wrapWriteErr classifies a failed write. A primary key violation means
// another writer stored the same block first.
func wrapWriteErr(index uint64, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: block %d: %s", database.ErrStoreWriteConflict, index, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: block %d: %s", database.ErrStoreWriteConflict, index, err)
	}

	return fmt.Errorf("%w: block %d: %s", database.ErrStoreUnavailable, index, err)
}
