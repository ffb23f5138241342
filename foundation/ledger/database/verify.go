package database

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/docledger/foundation/ledger/proof"
)

// ErrChainInvalid is returned when a chain fails verification.
var ErrChainInvalid = errors.New("chain invalid")

// VerifyChain walks the blocks from the genesis block and checks the rules
// that make the chain tamper evident. An empty chain is valid.
func VerifyChain(blocks []Block) error {
	if len(blocks) == 0 {
		return nil
	}

	if err := validateGenesis(blocks[0]); err != nil {
		return err
	}

	for i := 1; i < len(blocks); i++ {
		if err := blocks[i].ValidateBlock(blocks[i-1]); err != nil {
			return err
		}
	}

	return nil
}

// ValidateBlock checks the block is a valid successor of the previous block.
func (b Block) ValidateBlock(prevBlock Block) error {
	if b.Index != prevBlock.Index+1 {
		return fmt.Errorf("%w: blk[%d]: not the next index, exp %d", ErrChainInvalid, b.Index, prevBlock.Index+1)
	}

	if hash := prevBlock.Hash(); b.PreviousHash != hash {
		return fmt.Errorf("%w: blk[%d]: previous hash doesn't match, got %s, exp %s", ErrChainInvalid, b.Index, b.PreviousHash, hash)
	}

	if !proof.Validate(prevBlock.Proof, b.Proof) {
		return fmt.Errorf("%w: blk[%d]: proof %d does not solve previous proof %d", ErrChainInvalid, b.Index, b.Proof, prevBlock.Proof)
	}

	return nil
}

// validateGenesis checks the fixed values of the first block.
func validateGenesis(b Block) error {
	switch {
	case b.Index != 1:
		return fmt.Errorf("%w: genesis index is %d", ErrChainInvalid, b.Index)
	case b.Proof != GenesisProof:
		return fmt.Errorf("%w: genesis proof is %d", ErrChainInvalid, b.Proof)
	case b.PreviousHash != GenesisHash:
		return fmt.Errorf("%w: genesis previous hash is %q", ErrChainInvalid, b.PreviousHash)
	case len(b.Documents) != 0:
		return fmt.Errorf("%w: genesis holds %d documents", ErrChainInvalid, len(b.Documents))
	}

	return nil
}
