// Package proof implements the proof of work puzzle used to seal blocks.
package proof

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ardanlabs/docledger/foundation/ledger/hasher"
)

// Difficulty is the number of leading zero hex characters a solution hash
// must have. This is part of the storage contract and must not change.
const Difficulty = 4

// Set of errors returned by Search.
var (
	ErrProofSearchTimeout   = errors.New("proof search timed out")
	ErrProofSearchExhausted = errors.New("proof search exhausted")
)

// checkEvery is how many attempts pass between context checks.
const checkEvery = 1024

var prefix = strings.Repeat("0", Difficulty)

// EventHandler defines a function that is called when events occur
// during the search.
type EventHandler func(v string, args ...any)

// =============================================================================

// Find searches for the proof that follows the previous proof. The search is
// unbounded and always returns the same answer for the same input.
func Find(previous int64) int64 {
	p, _ := Search(context.Background(), previous, 0, nil)
	return p
}

// Search performs the same search as Find, but it can be cancelled through the
// context and capped with maxAttempts. A maxAttempts of zero means no cap.
func Search(ctx context.Context, previous int64, maxAttempts uint64, ev EventHandler) (int64, error) {
	if ev == nil {
		ev = func(string, ...any) {}
	}

	ev("proof: Search: started: previous[%d]", previous)

	prev := big.NewInt(previous)
	prevSq := new(big.Int).Mul(prev, prev)

	candidate := big.NewInt(1)
	one := big.NewInt(1)
	work := new(big.Int)

	if ctx.Err() != nil {
		ev("proof: Search: CANCELLED: before start")
		return 0, ErrProofSearchTimeout
	}

	var attempts uint64
	for {
		attempts++

		if attempts%checkEvery == 0 {
			if ctx.Err() != nil {
				ev("proof: Search: CANCELLED: attempts[%d]", attempts)
				return 0, ErrProofSearchTimeout
			}
		}

		if maxAttempts > 0 && attempts > maxAttempts {
			ev("proof: Search: EXHAUSTED: attempts[%d]", maxAttempts)
			return 0, ErrProofSearchExhausted
		}

		work.Mul(candidate, candidate)
		work.Sub(work, prevSq)

		if isSolved(work) {
			ev("proof: Search: SOLVED: proof[%d]: attempts[%d]", candidate.Int64(), attempts)
			return candidate.Int64(), nil
		}

		candidate.Add(candidate, one)
	}
}

// Validate reports whether proof is a valid successor of previous.
func Validate(previous, proof int64) bool {
	p := big.NewInt(proof)
	q := big.NewInt(previous)

	work := new(big.Int).Mul(p, p)
	work.Sub(work, new(big.Int).Mul(q, q))

	return isSolved(work)
}

// isSolved hashes the decimal form of the value and checks the prefix.
func isSolved(value *big.Int) bool {
	return strings.HasPrefix(hasher.Sum([]byte(value.String())), prefix)
}
