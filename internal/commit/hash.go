package commit

import (
	"fmt"
	"strconv"
	"time"
)

const (
	// ProtocolVersion identifies the digest and serialization rules below.
	// Changing the hash algorithm or any preimage rule requires a new version.
	ProtocolVersion = 1

	// HashAlgorithm is the digest pinned by ProtocolVersion.
	HashAlgorithm = "keccak-256"

	// TimestampLayout is the commitAt text form: UTC with milliseconds.
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

// Hasher computes a fixed-size digest. Implementations must be pure.
type Hasher interface {
	Hash(data []byte) []byte
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses s, accepting only the exact TimestampLayout form so
// that the text hashed by the issuer is reproduced byte for byte.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp: %w", err)
	}
	if FormatTimestamp(t) != s {
		return time.Time{}, fmt.Errorf("parse timestamp: %q is not in canonical form", s)
	}
	return t, nil
}

// preimagePrefix returns serialize(data) || commitAt, to which the miner
// appends the decimal nonce.
func preimagePrefix(serialized []byte, commitAt time.Time) []byte {
	ts := FormatTimestamp(commitAt)
	buf := make([]byte, 0, len(serialized)+len(ts)+20)
	buf = append(buf, serialized...)
	return append(buf, ts...)
}

// Digest computes hash(serialized || commitAt || nonce).
func Digest(h Hasher, serialized []byte, commitAt time.Time, nonce uint64) []byte {
	buf := preimagePrefix(serialized, commitAt)
	return h.Hash(strconv.AppendUint(buf, nonce, 10))
}
