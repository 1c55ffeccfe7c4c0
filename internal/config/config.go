// Package config enables config file parsing.
package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/systemshift/memex-commit/internal/cipher"
	"github.com/systemshift/memex-commit/internal/commit"
	"github.com/systemshift/memex-commit/internal/log"
)

const (
	// EnvPrefix scopes the environment variables read into the config.
	EnvPrefix = "MEMEX_COMMIT_"

	DefaultDifficulty = 4
	DefaultStoreDir   = ".mx/commits"
)

// Config contains the CLI configuration.
type Config struct {
	Log      LogConfig      `koanf:"log"`
	Mining   MiningConfig   `koanf:"mining"`
	Store    StoreConfig    `koanf:"store"`
	Identity IdentityConfig `koanf:"identity"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
		Mining: MiningConfig{
			Difficulty: DefaultDifficulty,
			Workers:    runtime.NumCPU(),
		},
		Store: StoreConfig{
			Dir: DefaultStoreDir,
		},
		Identity: IdentityConfig{
			Path: defaultIdentityPath(),
		},
	}
}

// Validate checks every section and reports all problems at once.
func (cfg *Config) Validate() error {
	var err error
	if e := cfg.Log.Validate(); e != nil {
		err = multierr.Append(err, fmt.Errorf("log: %w", e))
	}
	if e := cfg.Mining.Validate(); e != nil {
		err = multierr.Append(err, fmt.Errorf("mining: %w", e))
	}
	if e := cfg.Store.Validate(); e != nil {
		err = multierr.Append(err, fmt.Errorf("store: %w", e))
	}
	if e := cfg.Identity.Validate(); e != nil {
		err = multierr.Append(err, fmt.Errorf("identity: %w", e))
	}
	if e := cfg.Metrics.Validate(); e != nil {
		err = multierr.Append(err, fmt.Errorf("metrics: %w", e))
	}
	return err
}

// LogConfig contains the logging configuration.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
	// File redirects log output. Empty means stderr.
	File string `koanf:"file"`
}

// Validate validates the logging configuration.
func (cfg *LogConfig) Validate() error {
	var format log.Format
	if err := format.Set(cfg.Format); err != nil {
		return err
	}
	var level log.Level
	return level.Set(cfg.Level)
}

// MiningConfig bounds proof-of-work searches.
type MiningConfig struct {
	Difficulty int `koanf:"difficulty"`

	// MaxAttempts caps nonces per commit; zero is unbounded.
	MaxAttempts uint64 `koanf:"max_attempts"`

	// Timeout caps one search; zero is unbounded.
	Timeout time.Duration `koanf:"timeout"`

	Workers int `koanf:"workers"`
}

// Validate validates the mining configuration.
func (cfg *MiningConfig) Validate() error {
	var err error
	if cfg.Difficulty < 0 || cfg.Difficulty > commit.MaxDifficulty {
		err = multierr.Append(err, fmt.Errorf("difficulty %d not in [0, %d]", cfg.Difficulty, commit.MaxDifficulty))
	}
	if cfg.Timeout < 0 {
		err = multierr.Append(err, fmt.Errorf("negative timeout %s", cfg.Timeout))
	}
	if cfg.Workers < 1 {
		err = multierr.Append(err, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers))
	}
	return err
}

// EngineConfig maps the mining section onto the engine's guard rails.
func (cfg *MiningConfig) EngineConfig() commit.Config {
	return commit.Config{
		MaxAttempts: cfg.MaxAttempts,
		Timeout:     cfg.Timeout,
		Workers:     cfg.Workers,
	}
}

// StoreConfig locates the commit store.
type StoreConfig struct {
	Dir string `koanf:"dir"`
}

// Validate validates the store configuration.
func (cfg *StoreConfig) Validate() error {
	if cfg.Dir == "" {
		return fmt.Errorf("empty store dir")
	}
	return nil
}

// IdentityConfig locates the signing identity.
type IdentityConfig struct {
	Path string `koanf:"path"`
}

// Validate validates the identity configuration.
func (cfg *IdentityConfig) Validate() error {
	if cfg.Path == "" {
		return fmt.Errorf("empty identity path")
	}
	return nil
}

// MetricsConfig contains the metrics configuration.
type MetricsConfig struct {
	// PullEndpoint is the listen address for Prometheus scrapes. Empty
	// disables the endpoint.
	PullEndpoint string `koanf:"pull_endpoint"`
}

// Validate validates the metrics configuration.
func (cfg *MetricsConfig) Validate() error {
	if cfg.PullEndpoint != "" && !strings.Contains(cfg.PullEndpoint, ":") {
		return fmt.Errorf("malformed Prometheus pull endpoint '%s'", cfg.PullEndpoint)
	}
	return nil
}

// flagKeys maps the short global flags onto their config keys. Flags not
// listed here are already named by their key.
var flagKeys = map[string]string{
	"difficulty": "mining.difficulty",
	"data":       "store.dir",
	"identity":   "identity.path",
}

// InitConfig builds the configuration from defaults, then the yaml file at
// path (skipped when path is empty), then MEMEX_COMMIT_* environment
// variables, then flags the user set explicitly. flags may be nil.
func InitConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	var sources []koanf.Provider
	if path != "" {
		sources = append(sources, file.Provider(path))
	}
	return loadConfig(flags, sources...)
}

func loadConfig(flags *pflag.FlagSet, files ...koanf.Provider) (*Config, error) {
	k := koanf.New(".")

	for _, f := range files {
		if err := k.Load(f, yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	// `__` is used as a hierarchy delimiter.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, interface{}) {
			// Flag defaults mirror Default(); only explicit flags override.
			if f := flags.Lookup(key); f == nil || !f.Changed {
				return "", nil
			}
			if mapped, ok := flagKeys[key]; ok {
				key = mapped
			}
			if !known(key) {
				return "", nil
			}
			return key, value
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// known reports whether key belongs to one of the config sections, so that
// command-specific flags stay out of the config.
func known(key string) bool {
	section, _, ok := strings.Cut(key, ".")
	if !ok {
		return false
	}
	switch section {
	case "log", "mining", "store", "identity", "metrics":
		return true
	}
	return false
}

func defaultIdentityPath() string {
	if p := cipher.DefaultIdentityPath(); p != "" {
		return p
	}
	return filepath.Join(".mx", "identity.json")
}
