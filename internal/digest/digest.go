// Package digest computes the BLAKE3 content hashes that address every
// artifact in a build and every entry in the incremental cache.
package digest

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// prefix names the algorithm in the textual form so that manifests stay
// readable if the hash function ever changes.
const prefix = "blake3:"

// Hash is a 32-byte BLAKE3 digest.
type Hash [32]byte

// Sum returns the digest of data.
func Sum(data []byte) Hash {
	return Hash(blake3.Sum256(data))
}

// String renders the hash as "blake3:<hex>".
func (h Hash) String() string {
	return prefix + h.Hex()
}

// Hex returns the bare lowercase hex encoding.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first n hex characters, clamped to the full length.
func (h Hash) Short(n int) string {
	s := h.Hex()
	if n <= 0 || n > len(s) {
		return s
	}
	return s[:n]
}

// IsZero reports whether h is the zero value.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Parse reads a hash in either "blake3:<hex>" or bare hex form.
func Parse(s string) (Hash, error) {
	var h Hash
	raw, err := hex.DecodeString(strings.TrimPrefix(s, prefix))
	if err != nil {
		return h, fmt.Errorf("digest: invalid hash %q: %w", s, err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("digest: invalid hash %q: expected %d bytes, got %d", s, len(h), len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

// Builder hashes a sequence of fields. Every field is length-prefixed so
// that ("ab", "c") and ("a", "bc") never produce the same digest.
type Builder struct {
	hasher *blake3.Hasher
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{hasher: blake3.New()}
}

// String adds a string field.
func (b *Builder) String(s string) *Builder {
	return b.Bytes([]byte(s))
}

// Bytes adds a byte field.
func (b *Builder) Bytes(p []byte) *Builder {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(p)))
	b.hasher.Write(length[:])
	b.hasher.Write(p)
	return b
}

// Hash adds another digest as a field.
func (b *Builder) Hash(h Hash) *Builder {
	return b.Bytes(h[:])
}

// Sum returns the digest of all fields written so far.
func (b *Builder) Sum() Hash {
	var h Hash
	copy(h[:], b.hasher.Sum(nil))
	return h
}
