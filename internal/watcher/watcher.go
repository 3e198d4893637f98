// Package watcher reports debounced changes to Ruby sources under a root.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/imyousuf/rubyagent/internal/discover"
)

// EventOp is the kind of change observed.
type EventOp int

const (
	Create EventOp = iota
	Write
	Remove
	Rename
)

func (op EventOp) String() string {
	switch op {
	case Create:
		return "Create"
	case Write:
		return "Write"
	case Remove:
		return "Remove"
	case Rename:
		return "Rename"
	default:
		return "Unknown"
	}
}

// Event is one debounced change to a Ruby source.
type Event struct {
	Path string
	Op   EventOp
	Time time.Time
}

// Config selects what to watch.
type Config struct {
	Root string
	// Filter applies the same exclusions analysis discovery uses.
	Filter discover.Options
	// Debounce collapses bursts per path. Zero means DefaultDebounce.
	Debounce time.Duration
	Logger   *slog.Logger
}

// DefaultDebounce is the quiet period before an event is delivered.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches a directory tree and emits debounced events.
type Watcher struct {
	cfg     Config
	matcher *discover.Matcher
	log     *slog.Logger

	mu     sync.Mutex
	fsw    *fsnotify.Watcher
	closed bool
}

// New validates cfg and prepares a watcher. Nothing is watched until Start.
func New(cfg Config) (*Watcher, error) {
	matcher, err := discover.NewMatcher(cfg.Root, cfg.Filter)
	if err != nil {
		return nil, err
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{cfg: cfg, matcher: matcher, log: log}, nil
}

// Start watches the root recursively and returns the event channel. The
// channel closes when ctx is done or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) (<-chan Event, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	if err := w.addRecursive(w.matcher.Root()); err != nil {
		fsw.Close()
		return nil, err
	}

	out := make(chan Event, 100)
	go w.eventLoop(ctx, fsw, out)
	return out, nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if !d.IsDir() {
			return nil
		}
		if w.matcher.Excluded(path, true) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) eventLoop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- Event) {
	var (
		mu      sync.Mutex
		pending = make(map[string]*time.Timer)
		gen     = make(map[string]uint64)
		flights sync.WaitGroup
		stop    = make(chan struct{})
	)
	defer func() {
		close(stop)
		mu.Lock()
		for path, timer := range pending {
			if timer.Stop() {
				flights.Done()
			}
			delete(pending, path)
		}
		mu.Unlock()
		flights.Wait()
		close(out)
	}()

	// schedule delivers evt once its path has been quiet for the debounce
	// window. A later event for the same path supersedes it.
	schedule := func(evt Event) {
		mu.Lock()
		defer mu.Unlock()
		if timer, ok := pending[evt.Path]; ok && timer.Stop() {
			flights.Done()
		}
		gen[evt.Path]++
		mine := gen[evt.Path]
		flights.Add(1)
		pending[evt.Path] = time.AfterFunc(w.cfg.Debounce, func() {
			defer flights.Done()
			mu.Lock()
			if gen[evt.Path] != mine {
				mu.Unlock()
				return
			}
			delete(pending, evt.Path)
			delete(gen, evt.Path)
			mu.Unlock()
			select {
			case out <- evt:
			case <-ctx.Done():
			case <-stop:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return

		case fsEvent, ok := <-fsw.Events:
			if !ok {
				return
			}
			op, valid := convertOp(fsEvent.Op)
			if !valid {
				continue
			}

			if op == Create {
				if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() {
					if !w.matcher.Excluded(fsEvent.Name, true) {
						_ = w.addRecursive(fsEvent.Name)
					}
					continue
				}
			}
			if !w.matcher.Wanted(fsEvent.Name) {
				continue
			}
			schedule(Event{Path: fsEvent.Name, Op: op, Time: time.Now()})

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

func convertOp(op fsnotify.Op) (EventOp, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return Create, true
	case op.Has(fsnotify.Write):
		return Write, true
	case op.Has(fsnotify.Remove):
		return Remove, true
	case op.Has(fsnotify.Rename):
		return Rename, true
	default:
		return 0, false
	}
}
