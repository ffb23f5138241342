// Package hasher provides the canonical serialization and digest used to
// link blocks in the ledger.
package hasher

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Size is the length of a digest rendered as hex.
const Size = 64

// Canonical returns the deterministic JSON form of the value. Object keys are
// sorted lexicographically at every level and numbers keep their exact
// textual form, so two structurally equal records produce the same bytes
// regardless of field order.
func Canonical(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	// Round trip through the generic form. Maps are always encoded with
	// sorted keys and UseNumber keeps integers from becoming floats.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Sum returns the SHA-256 of the data as 64 lowercase hex characters.
func Sum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Digest returns the hash of the canonical form of the value.
func Digest(value any) (string, error) {
	data, err := Canonical(value)
	if err != nil {
		return "", err
	}

	return Sum(data), nil
}
