package commit

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/systemshift/memex-commit/internal/log"
	"github.com/systemshift/memex-commit/internal/metrics"
)

// Config holds the guard rails and collaborators of an Engine.
type Config struct {
	// MaxAttempts caps the nonces tried per commit. Zero means no cap.
	MaxAttempts uint64

	// Timeout caps the wall-clock time of one mining run. Zero means none.
	Timeout time.Duration

	// Workers bounds CreateCommits parallelism. Zero means runtime.NumCPU().
	Workers int

	// Metrics may be nil.
	Metrics *metrics.CommitMetrics

	// Now overrides the clock used for commitAt.
	Now func() time.Time
}

// Engine creates and verifies commits. It holds no per-call state and is
// safe for concurrent use.
type Engine struct {
	provider Provider
	cfg      Config
	logger   *log.Logger
}

// NewEngine returns an engine over provider.
func NewEngine(provider Provider, cfg Config, logger *log.Logger) *Engine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Engine{
		provider: provider,
		cfg:      cfg,
		logger:   logger.WithModule("commit"),
	}
}

// CreateCommit mines and signs payload with privateKey at difficulty.
// Signing and key failures wrap ErrCommitCreationFailed. Mining stops with
// ErrMiningCancelled or ErrMaxAttempts when a guard rail trips.
func (e *Engine) CreateCommit(ctx context.Context, privateKey []byte, payload Payload, difficulty int) (*Commit, error) {
	c, err := e.createCommit(ctx, privateKey, payload, difficulty)
	typ := "unknown"
	if !isNilPayload(payload) {
		typ = string(payload.Type())
	}
	if err != nil {
		e.cfg.Metrics.CommitCreated(typ, "error")
		return nil, err
	}
	e.cfg.Metrics.CommitCreated(typ, "ok")
	return c, nil
}

func (e *Engine) createCommit(ctx context.Context, privateKey []byte, payload Payload, difficulty int) (*Commit, error) {
	if err := ValidatePayload(payload); err != nil {
		return nil, err
	}
	publicKey, err := PublicKeyHex(e.provider, privateKey)
	if err != nil {
		return nil, err
	}
	serialized, err := Serialize(payload)
	if err != nil {
		return nil, fmt.Errorf("serialize payload: %w", err)
	}
	// The commit owns a copy; later edits to payload by the caller do not
	// reach it.
	data, err := DecodePayload(payload.Type(), serialized)
	if err != nil {
		return nil, fmt.Errorf("copy payload: %w", err)
	}
	commitAt := e.cfg.Now().UTC().Truncate(time.Millisecond)

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := Mine(ctx, e.provider, preimagePrefix(serialized, commitAt), difficulty, MineOptions{
		MaxAttempts: e.cfg.MaxAttempts,
	})
	elapsed := time.Since(start)
	e.cfg.Metrics.ObserveMining(difficulty, res.Attempts, elapsed)
	if err != nil {
		e.logger.Warn("mining stopped",
			"type", payload.Type(),
			"difficulty", difficulty,
			"attempts", res.Attempts,
			"err", err,
		)
		return nil, err
	}
	e.logger.Debug("mined nonce",
		"type", payload.Type(),
		"difficulty", difficulty,
		"nonce", res.Nonce,
		"elapsed", elapsed,
	)

	signature, err := Sign(e.provider, privateKey, res.Digest)
	if err != nil {
		return nil, err
	}

	return &Commit{
		CommitAt:  commitAt,
		Data:      data,
		PublicKey: publicKey,
		Signature: signature,
		Type:      data.Type(),
		Nonce:     res.Nonce,
	}, nil
}

// CreateCommits creates one commit per payload in parallel, bounded by
// Config.Workers. Results keep the order of payloads. The first failure
// cancels the remaining searches.
func (e *Engine) CreateCommits(ctx context.Context, privateKey []byte, payloads []Payload, difficulty int) ([]*Commit, error) {
	commits := make([]*Commit, len(payloads))
	eg, mineCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.cfg.Workers)

	for i, payload := range payloads {
		eg.Go(func() error {
			c, err := e.CreateCommit(mineCtx, privateKey, payload, difficulty)
			if err != nil {
				return fmt.Errorf("payload %d: %w", i, err)
			}
			commits[i] = c
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return commits, nil
}
