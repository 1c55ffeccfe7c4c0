package commit

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/systemshift/memex-commit/internal/metrics"
)

// VerifyCommit reports whether c is well formed, meets difficulty and was
// signed by the key it declares. It never panics and never modifies c.
func (e *Engine) VerifyCommit(c *Commit, difficulty int) bool {
	return e.Verify(c, difficulty) == nil
}

// Verify is VerifyCommit with the reason for a rejection. Outcomes are
// recorded in the engine's metrics.
func (e *Engine) Verify(c *Commit, difficulty int) error {
	err := e.Check(c, difficulty)
	e.cfg.Metrics.Verification(result(err))
	if err != nil {
		e.logger.Debug("commit rejected", "difficulty", difficulty, "err", err)
	}
	return err
}

// VerifyJSON decodes a wire commit and verifies it. Objects that are not
// exactly the six commit fields are rejected.
func (e *Engine) VerifyJSON(raw []byte, difficulty int) bool {
	var c Commit
	if err := json.Unmarshal(raw, &c); err != nil {
		e.cfg.Metrics.Verification(result(err))
		e.logger.Debug("commit rejected", "difficulty", difficulty, "err", err)
		return false
	}
	return e.VerifyCommit(&c, difficulty)
}

// Check runs the verification steps in order and returns the first failure:
// schema, then proof of work, then signer recovery and comparison.
func (e *Engine) Check(c *Commit, difficulty int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: provider panic: %v", ErrInvalidSignature, r)
		}
	}()

	if c == nil {
		return fmt.Errorf("%w: nil commit", ErrMalformedCommit)
	}
	if difficulty < 0 || difficulty > MaxDifficulty {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidDifficulty, difficulty, MaxDifficulty)
	}
	if c.CommitAt.IsZero() || c.PublicKey == "" || c.Signature == "" {
		return fmt.Errorf("%w: missing commitAt, publicKey or signature", ErrMalformedCommit)
	}

	// 1. schema
	if !c.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidPayloadSchema, c.Type)
	}
	if err := ValidatePayload(c.Data); err != nil {
		return err
	}
	if c.Data.Type() != c.Type {
		return fmt.Errorf("%w: data is %s, commit says %s", ErrInvalidPayloadSchema, c.Data.Type(), c.Type)
	}

	// 2. proof of work, re-derived from the commit contents
	if c.Nonce < 1 {
		return fmt.Errorf("%w: nonce must be at least 1", ErrDifficultyNotMet)
	}
	serialized, err := Serialize(c.Data)
	if err != nil {
		return fmt.Errorf("%w: serialize: %v", ErrInvalidPayloadSchema, err)
	}
	digest := Digest(e.provider, serialized, c.CommitAt, c.Nonce)
	if !SatisfiesDifficulty(digest, difficulty) {
		return fmt.Errorf("%w: digest %x at difficulty %d", ErrDifficultyNotMet, digest, difficulty)
	}

	// 3. signer
	signer, err := RecoverSigner(e.provider, c.Signature, digest)
	if err != nil {
		return err
	}
	if signer != c.PublicKey {
		return fmt.Errorf("%w: signed by %s, commit says %s", ErrSignerMismatch, signer, c.PublicKey)
	}
	return nil
}

func result(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, ErrInvalidPayloadSchema):
		return metrics.ResultSchema
	case errors.Is(err, ErrDifficultyNotMet):
		return metrics.ResultDifficulty
	case errors.Is(err, ErrInvalidSignature):
		return metrics.ResultSignature
	case errors.Is(err, ErrSignerMismatch):
		return metrics.ResultMismatch
	default:
		return metrics.ResultMalformed
	}
}
