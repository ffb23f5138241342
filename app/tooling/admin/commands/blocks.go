package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/ardanlabs/docledger/foundation/ledger/database"
	"github.com/spf13/cobra"
)

func blocksCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "blocks",
		Short: "List every stored block.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(open, func(strg database.Storage) error {
				return Blocks(cmd.OutOrStdout(), strg)
			})
		},
	}
}

func blockCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "block <index>",
		Short: "Print a stored block as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid block index %q: %w", args[0], err)
			}

			return withStorage(open, func(strg database.Storage) error {
				return Block(cmd.OutOrStdout(), strg, index)
			})
		},
	}
}

// Blocks writes a one line summary for every stored block.
func Blocks(w io.Writer, strg database.Storage) error {
	blocks, err := strg.LoadAll()
	if err != nil {
		return fmt.Errorf("load blocks: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tCREATED\tDOCS\tPROOF\tHASH")
	for _, block := range blocks {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", block.Index, block.CreatedAt.UTC().Format(time.RFC3339), len(block.Documents), block.Proof, block.Hash())
	}

	return tw.Flush()
}

// Block writes the block with the specified index as JSON.
func Block(w io.Writer, strg database.Storage, index uint64) error {
	blocks, err := strg.LoadAll()
	if err != nil {
		return fmt.Errorf("load blocks: %w", err)
	}

	if index == 0 || index > uint64(len(blocks)) {
		return fmt.Errorf("block %d not found: blocks[%d]", index, len(blocks))
	}

	out := struct {
		Hash  string         `json:"hash"`
		Block database.Block `json:"block"`
	}{
		Hash:  blocks[index-1].Hash(),
		Block: blocks[index-1],
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}
