package commit

import "errors"

var (
	// ErrInvalidPayloadSchema means the payload does not match the shape
	// required by its type tag, or the tag itself is unknown.
	ErrInvalidPayloadSchema = errors.New("invalid payload schema")

	// ErrDifficultyNotMet means the re-derived digest lacks the required
	// leading zero nibbles.
	ErrDifficultyNotMet = errors.New("difficulty not met")

	// ErrInvalidSignature means the signature is malformed or no public key
	// can be recovered from it.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrSignerMismatch means the recovered public key differs from the one
	// the commit declares.
	ErrSignerMismatch = errors.New("signer mismatch")

	// ErrCommitCreationFailed means the signing primitive rejected the
	// private key or digest.
	ErrCommitCreationFailed = errors.New("commit creation failed")

	// ErrMalformedCommit means the wire object is not exactly the six
	// commit fields with well-formed values.
	ErrMalformedCommit = errors.New("malformed commit")

	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrMiningCancelled   = errors.New("mining cancelled")
	ErrMaxAttempts       = errors.New("mining attempt limit reached")
)
