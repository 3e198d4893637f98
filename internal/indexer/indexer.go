// Package indexer runs analyses end to end: discovery through the shared
// source cache, both analyzer passes, output files, run history and
// metrics. It also keeps outputs current while watching a tree.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/imyousuf/rubyagent/internal/analyzer"
	"github.com/imyousuf/rubyagent/internal/discover"
	"github.com/imyousuf/rubyagent/internal/export"
	"github.com/imyousuf/rubyagent/internal/metrics"
	"github.com/imyousuf/rubyagent/internal/store"
	"github.com/imyousuf/rubyagent/internal/watcher"
)

// Config holds configuration for the Indexer.
type Config struct {
	Filter    discover.Options
	Workers   int
	CacheSize int
	// Store, when set, receives every successful run.
	Store    *store.Store
	Logger   *slog.Logger
	Progress func(phase analyzer.Phase, path string)
	OnFiles  func(files []string)
}

// Outcome is everything one Run produced.
type Outcome struct {
	Result   *analyzer.Result
	Paths    export.Paths
	Run      *store.Run
	Duration time.Duration
}

// RunID returns the stored run id, or "" when no store is configured.
func (o *Outcome) RunID() string {
	if o.Run == nil {
		return ""
	}
	return o.Run.ID
}

// Stats holds counters since the Indexer was created.
type Stats struct {
	Runs        int       `json:"runs"`
	Failures    int       `json:"failures"`
	LastRoot    string    `json:"last_root,omitempty"`
	LastRunTime time.Time `json:"last_run_time"`
	LastClasses int       `json:"last_classes"`
	LastFiles   int       `json:"last_files"`
	// Errors holds the messages of the most recent failures, oldest first,
	// at most MaxRecentErrors of them.
	Errors []string `json:"errors,omitempty"`
}

// MaxRecentErrors bounds Stats.Errors.
const MaxRecentErrors = 20

// Indexer orchestrates analysis runs. Runs are serialized.
type Indexer struct {
	cfg   Config
	cache *discover.SourceCache
	log   *slog.Logger

	runMu sync.Mutex

	mu    sync.Mutex
	stats Stats
}

// New creates an Indexer with the given configuration.
func New(cfg Config) (*Indexer, error) {
	if err := discover.ValidatePatterns(cfg.Filter.Exclude); err != nil {
		return nil, err
	}
	cache, err := discover.NewSourceCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{cfg: cfg, cache: cache, log: log}, nil
}

// Store returns the configured run store, which may be nil.
func (idx *Indexer) Store() *store.Store { return idx.cfg.Store }

func (idx *Indexer) analyzer() *analyzer.Analyzer {
	filter := idx.cfg.Filter
	return analyzer.New(analyzer.Options{
		Workers: idx.cfg.Workers,
		Discover: func(root string) ([]string, error) {
			return discover.Files(root, filter)
		},
		Source:   idx.cache,
		Progress: idx.cfg.Progress,
		OnFiles:  idx.cfg.OnFiles,
		Logger:   idx.log,
	})
}

// Analyze runs both passes over root without writing anything.
func (idx *Indexer) Analyze(ctx context.Context, root string) (*analyzer.Result, error) {
	idx.runMu.Lock()
	defer idx.runMu.Unlock()
	res, _, err := idx.analyze(ctx, root)
	return res, err
}

func (idx *Indexer) analyze(ctx context.Context, root string) (*analyzer.Result, time.Duration, error) {
	start := time.Now()
	res, err := idx.analyzer().AnalyzeDirectory(ctx, root)
	dur := time.Since(start)
	metrics.ObserveRun(res, dur, err)
	idx.record(root, res, err)
	if err != nil {
		return nil, dur, err
	}
	idx.log.Debug("analysis complete",
		slog.String("root", root),
		slog.Int("files", len(res.Files)),
		slog.Int("classes", len(res.Classes)),
		slog.Duration("duration", dur))
	return res, dur, nil
}

// Run analyzes root, writes the nodes document to output with the classes
// dictionary beside it, and saves the run when a store is configured.
func (idx *Indexer) Run(ctx context.Context, root, output string) (*Outcome, error) {
	idx.runMu.Lock()
	defer idx.runMu.Unlock()

	started := time.Now()
	res, dur, err := idx.analyze(ctx, root)
	if err != nil {
		return nil, err
	}

	paths, err := export.Write(output, res)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Result: res, Paths: paths, Duration: dur}
	if idx.cfg.Store != nil {
		run, err := idx.cfg.Store.Record(ctx, res, idx.cache, started, dur)
		if err != nil {
			return nil, fmt.Errorf("persist run: %w", err)
		}
		out.Run = run
	}
	return out, nil
}

func (idx *Indexer) record(root string, res *analyzer.Result, err error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.stats.Runs++
	idx.stats.LastRoot = root
	idx.stats.LastRunTime = time.Now()
	if err != nil {
		idx.stats.Failures++
		idx.stats.Errors = append(idx.stats.Errors, err.Error())
		if n := len(idx.stats.Errors); n > MaxRecentErrors {
			idx.stats.Errors = slices.Clone(idx.stats.Errors[n-MaxRecentErrors:])
		}
		return
	}
	idx.stats.LastClasses = len(res.Classes)
	idx.stats.LastFiles = len(res.Files)
}

// Stats returns a snapshot of the run counters.
func (idx *Indexer) Stats() Stats {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	stats := idx.stats
	stats.Errors = append([]string(nil), idx.stats.Errors...)
	return stats
}

// Watch runs once, then re-runs after every debounced change under root
// until ctx is cancelled. A change invalidates the cached source; the whole
// tree is re-analyzed because any file may rebind a name. onRun, if set,
// sees every outcome. Failed re-runs are logged and watching continues.
func (idx *Indexer) Watch(ctx context.Context, root, output string, onRun func(*Outcome, error)) error {
	report := func(out *Outcome, err error) {
		if onRun != nil {
			onRun(out, err)
		}
	}

	out, err := idx.Run(ctx, root, output)
	if err != nil {
		return fmt.Errorf("initial analysis of %s: %w", root, err)
	}
	report(out, nil)

	w, err := watcher.New(watcher.Config{Root: root, Filter: idx.cfg.Filter, Logger: idx.log})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	events, err := w.Start(ctx)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			idx.handleEvent(evt)
			idx.drain(events)

			out, err := idx.Run(ctx, root, output)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				idx.log.Warn("re-analysis failed", slog.String("root", root), slog.String("error", err.Error()))
			}
			report(out, err)
		}
	}
}

func (idx *Indexer) handleEvent(evt watcher.Event) {
	idx.log.Debug("source changed", slog.String("path", evt.Path), slog.String("op", evt.Op.String()))
	idx.cache.Invalidate(evt.Path)
}

// drain consumes events already queued so one re-run covers a burst.
func (idx *Indexer) drain(events <-chan watcher.Event) {
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			idx.handleEvent(evt)
		default:
			return
		}
	}
}
