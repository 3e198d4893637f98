package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/imyousuf/rubyagent/internal/config"
	"github.com/imyousuf/rubyagent/internal/discover"
	"github.com/imyousuf/rubyagent/internal/indexer"
	"github.com/imyousuf/rubyagent/internal/logging"
	"github.com/imyousuf/rubyagent/internal/store"
)

// loadConfig loads and validates the configuration, then installs the
// configured logger as the slog default.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	installLogger(cfg)
	return cfg, nil
}

func installLogger(cfg *config.Config) *slog.Logger {
	lc := logging.Config{
		Level:  logging.Level(cfg.LogLevel),
		Format: logging.Format(cfg.LogFormat),
		Output: os.Stderr,
	}
	if verbose {
		lc.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(lc)
	slog.SetDefault(logger)
	return logger
}

// openStore opens the run store, or returns nil when it is disabled.
func openStore(cfg *config.Config) (*store.Store, error) {
	if !cfg.Store.Enabled {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open analysis store: %w", err)
	}
	return st, nil
}

// openExistingStore opens the run store for reading and fails when none
// has been written yet.
func openExistingStore(cfg *config.Config) (*store.Store, error) {
	if _, err := os.Stat(cfg.Store.Path); err != nil {
		return nil, fmt.Errorf("no analysis store at %s; run 'rubyagent analyze' first", cfg.Store.Path)
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open analysis store: %w", err)
	}
	return st, nil
}

func newIndexer(cfg *config.Config, st *store.Store, p *progressReporter) (*indexer.Indexer, error) {
	icfg := indexer.Config{
		Filter: discover.Options{
			Exclude:          cfg.Exclude,
			RespectGitIgnore: cfg.RespectGitIgnore,
		},
		Workers:   cfg.Workers,
		CacheSize: cfg.CacheSize,
		Store:     st,
		Logger:    slog.Default(),
	}
	if p != nil {
		icfg.OnFiles = p.start
		icfg.Progress = p.tick
	}
	return indexer.New(icfg)
}
