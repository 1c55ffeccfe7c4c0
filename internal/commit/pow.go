package commit

import (
	"context"
	"fmt"
	"strconv"
)

// MaxDifficulty is the number of hex nibbles in a 256-bit digest.
const MaxDifficulty = 64

// MineOptions bounds a proof-of-work search.
type MineOptions struct {
	// MaxAttempts stops the search after this many nonces. Zero means no limit.
	MaxAttempts uint64
}

// MineResult is the outcome of a successful search.
type MineResult struct {
	Nonce    uint64
	Digest   []byte
	Attempts uint64
}

// SatisfiesDifficulty reports whether the hex form of digest starts with
// difficulty '0' characters.
func SatisfiesDifficulty(digest []byte, difficulty int) bool {
	if difficulty < 0 || difficulty > 2*len(digest) {
		return false
	}
	for i := 0; i < difficulty; i++ {
		nibble := digest[i/2] & 0x0f
		if i%2 == 0 {
			nibble = digest[i/2] >> 4
		}
		if nibble != 0 {
			return false
		}
	}
	return true
}

// Mine searches nonces 1, 2, 3, ... for the first one whose digest
// hash(prefix || nonce) satisfies difficulty. The returned nonce is therefore
// the smallest satisfying one. ctx is checked between iterations.
func Mine(ctx context.Context, h Hasher, prefix []byte, difficulty int, opts MineOptions) (MineResult, error) {
	if difficulty < 0 || difficulty > MaxDifficulty {
		return MineResult{}, fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidDifficulty, difficulty, MaxDifficulty)
	}

	buf := make([]byte, len(prefix), len(prefix)+20)
	copy(buf, prefix)
	done := ctx.Done()

	for nonce := uint64(1); ; nonce++ {
		tried := nonce - 1
		select {
		case <-done:
			return MineResult{Attempts: tried}, fmt.Errorf("%w after %d attempts: %w", ErrMiningCancelled, tried, ctx.Err())
		default:
		}
		if opts.MaxAttempts > 0 && tried >= opts.MaxAttempts {
			return MineResult{Attempts: tried}, fmt.Errorf("%w (%d)", ErrMaxAttempts, opts.MaxAttempts)
		}

		buf = strconv.AppendUint(buf[:len(prefix)], nonce, 10)
		digest := h.Hash(buf)
		if SatisfiesDifficulty(digest, difficulty) {
			return MineResult{Nonce: nonce, Digest: digest, Attempts: nonce}, nil
		}
	}
}
