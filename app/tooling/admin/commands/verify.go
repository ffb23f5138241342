package commands

import (
	"fmt"
	"io"

	"github.com/ardanlabs/docledger/foundation/ledger/database"
	"github.com/spf13/cobra"
)

func verifyCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify hash linkage and proofs of every stored block.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(open, func(strg database.Storage) error {
				return Verify(cmd.OutOrStdout(), strg)
			})
		},
	}
}

// Verify loads every block from storage and checks the chain.
func Verify(w io.Writer, strg database.Storage) error {
	blocks, err := strg.LoadAll()
	if err != nil {
		return fmt.Errorf("load blocks: %w", err)
	}

	if len(blocks) == 0 {
		fmt.Fprintln(w, "storage is empty")
		return nil
	}

	if err := database.VerifyChain(blocks); err != nil {
		return err
	}

	latest := blocks[len(blocks)-1]
	fmt.Fprintf(w, "chain is valid: blocks[%d] latest hash[%s]\n", len(blocks), latest.Hash())

	return nil
}
