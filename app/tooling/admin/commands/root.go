// Package commands contains the admin commands for inspecting a ledger store.
package commands

import (
	"github.com/ardanlabs/docledger/foundation/ledger/database"
	"github.com/ardanlabs/docledger/foundation/ledger/database/storage"
	"github.com/ardanlabs/docledger/foundation/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// storeConfig holds the flags shared by every command.
type storeConfig struct {
	kind string
	path string
	dsn  string
}

// Execute builds the command tree and runs it.
func Execute(build string, log *zap.SugaredLogger) error {
	var cfg storeConfig

	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Inspect and verify a document ledger store.",
		Version:       build,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfg.kind, "kind", "k", storage.KindDisk, "Storage kind: memory, disk, leveldb, bolt, sqlite, postgres.")
	rootCmd.PersistentFlags().StringVarP(&cfg.path, "path", "p", "zblock/blocks", "Path for the file based storage kinds.")
	rootCmd.PersistentFlags().StringVar(&cfg.dsn, "dsn", "", "Connection string for the SQL storage kinds.")

	open := func() (database.Storage, error) {
		return storage.Open(storage.Config{
			Kind: cfg.kind,
			Path: cfg.path,
			DSN:  cfg.dsn,
			Log:  logger.Goose(log),
		})
	}

	rootCmd.AddCommand(
		verifyCmd(open),
		blocksCmd(open),
		blockCmd(open),
	)

	return rootCmd.Execute()
}

// opener constructs the configured storage.
type opener func() (database.Storage, error)

// withStorage opens the storage, runs fn and closes the storage.
func withStorage(open opener, fn func(strg database.Storage) error) error {
	strg, err := open()
	if err != nil {
		return err
	}
	defer strg.Close()

	return fn(strg)
}
