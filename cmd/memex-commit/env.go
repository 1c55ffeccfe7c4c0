package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/systemshift/memex-commit/internal/cipher"
	"github.com/systemshift/memex-commit/internal/commit"
	"github.com/systemshift/memex-commit/internal/config"
	"github.com/systemshift/memex-commit/internal/log"
	"github.com/systemshift/memex-commit/internal/metrics"
	"github.com/systemshift/memex-commit/internal/store"
)

// env is what every subcommand runs against.
type env struct {
	cfg    *config.Config
	logger *log.Logger
	engine *commit.Engine
	store  *store.CommitStore

	closers []func()
}

func setup(cmd *cobra.Command) (*env, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.InitConfig(configFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	e := &env{cfg: cfg}
	if e.logger, err = e.newLogger(cmd.ErrOrStderr()); err != nil {
		return nil, err
	}

	m := metrics.NewDefaultCommitMetrics()
	if cfg.Metrics.PullEndpoint != "" {
		e.startPullService(cmd.Context(), prometheus.DefaultGatherer)
	}

	engineCfg := cfg.Mining.EngineConfig()
	engineCfg.Metrics = m
	e.engine = commit.NewEngine(cipher.Secp256k1{}, engineCfg, e.logger)

	if e.store, err = store.Open(cfg.Store.Dir); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *env) newLogger(stderr io.Writer) (*log.Logger, error) {
	var format log.Format
	if err := format.Set(e.cfg.Log.Format); err != nil {
		return nil, err
	}
	var level log.Level
	if err := level.Set(e.cfg.Log.Level); err != nil {
		return nil, err
	}

	w := stderr
	if e.cfg.Log.File != "" {
		f, err := os.OpenFile(e.cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		e.closers = append(e.closers, func() { f.Close() })
		w = f
	}
	return log.NewLogger("memex-commit", w, format, level)
}

func (e *env) startPullService(ctx context.Context, gatherer prometheus.Gatherer) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	svc := metrics.NewPullService(e.cfg.Metrics.PullEndpoint, gatherer, e.logger)
	go func() {
		defer close(done)
		if err := svc.Run(ctx); err != nil {
			e.logger.Error("metrics service failed", "err", err)
		}
	}()
	e.closers = append(e.closers, func() {
		cancel()
		<-done
	})
}

// Close stops background services and closes the log file, newest first.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// identity loads the signing identity, generating one on first use.
func (e *env) identity() (*cipher.Identity, error) {
	id, created, err := cipher.LoadOrCreateIdentity(e.cfg.Identity.Path)
	if err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}
	if created {
		e.logger.Info("generated new identity",
			"path", e.cfg.Identity.Path,
			"did", id.DID,
			"petname", cipher.Petname(id.PublicKey),
		)
	}
	return id, nil
}

// runEnv adapts a subcommand body that needs an env.
func runEnv(fn func(cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(cmd, e, args)
	}
}
