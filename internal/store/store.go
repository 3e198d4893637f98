// Package store keeps a history of analysis runs in BadgerDB.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/imyousuf/rubyagent/internal/analyzer"
)

// ErrNotFound is returned when a run or class is not in the store.
var ErrNotFound = errors.New("not found")

// Key prefixes for the BadgerDB key scheme.
const (
	prefixRun      = "run:"
	prefixIdxClass = "idx:class:"
	prefixIdxTime  = "idx:time:"
	keyLatest      = "meta:latest"
)

// Store persists runs. It is safe for concurrent use.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store at dbPath.
func Open(dbPath string) (*Store, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func runKey(id string) []byte { return []byte(prefixRun + id) }

func classKey(runID, label string) []byte {
	return []byte(prefixIdxClass + runID + ":" + label)
}

func classPrefix(runID string) []byte { return []byte(prefixIdxClass + runID + ":") }

// timeKey zero-pads the timestamp so lexical key order is chronological.
func timeKey(t time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", prefixIdxTime, t.UnixNano(), id))
}

// SaveRun writes run, indexes its classes by label and marks it latest.
func (s *Store) SaveRun(_ context.Context, run *Run) error {
	if run.ID == "" {
		return errors.New("save run: missing id")
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	byLabel := make(map[string][]string)
	for _, class := range run.Classes {
		byLabel[class.Label] = append(byLabel[class.Label], class.FilePath)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(runKey(run.ID), data); err != nil {
			return err
		}
		if err := txn.Set(timeKey(run.StartedAt, run.ID), nil); err != nil {
			return err
		}
		for label, paths := range byLabel {
			val, err := json.Marshal(paths)
			if err != nil {
				return err
			}
			if err := txn.Set(classKey(run.ID, label), val); err != nil {
				return err
			}
		}
		return txn.Set([]byte(keyLatest), []byte(run.ID))
	})
}

// GetRun loads a run by id.
func (s *Store) GetRun(_ context.Context, id string) (*Run, error) {
	var run *Run
	err := s.db.View(func(txn *badger.Txn) error {
		r, err := getRunInTxn(txn, id)
		if err != nil {
			return err
		}
		run = r
		return nil
	})
	return run, err
}

func getRunInTxn(txn *badger.Txn, id string) (*Run, error) {
	item, err := txn.Get(runKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	var run Run
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &run)
	}); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}

// LatestRun returns the most recently saved run.
func (s *Store) LatestRun(_ context.Context) (*Run, error) {
	var run *Run
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyLatest))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("latest run: %w", ErrNotFound)
			}
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		run, err = getRunInTxn(txn, string(id))
		return err
	})
	return run, err
}

// ListRuns returns up to limit runs, newest first. A limit <= 0 lists all.
func (s *Store) ListRuns(_ context.Context, limit int) ([]*Run, error) {
	var runs []*Run
	err := s.db.View(func(txn *badger.Txn) error {
		ids := scanRunIDs(txn, limit)
		for _, id := range ids {
			run, err := getRunInTxn(txn, id)
			if err != nil {
				return err
			}
			runs = append(runs, run)
		}
		return nil
	})
	return runs, err
}

// scanRunIDs walks the time index newest first.
func scanRunIDs(txn *badger.Txn, limit int) []string {
	var ids []string
	prefix := []byte(prefixIdxTime)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	opts.Reverse = true
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(append([]byte(prefixIdxTime), 0xFF)); it.Valid(); it.Next() {
		key := string(it.Item().Key())
		if idx := strings.LastIndex(key, ":"); idx >= 0 && idx < len(key)-1 {
			ids = append(ids, key[idx+1:])
		}
		if limit > 0 && len(ids) == limit {
			break
		}
	}
	return ids
}

// FindClass returns the files that define label in the given run.
func (s *Store) FindClass(_ context.Context, runID, label string) ([]string, error) {
	var paths []string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(classKey(runID, label))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("class %s in run %s: %w", label, runID, ErrNotFound)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &paths)
		})
	})
	return paths, err
}

// Labels lists the class labels indexed for a run in key order.
func (s *Store) Labels(_ context.Context, runID string) ([]string, error) {
	var labels []string
	prefix := classPrefix(runID)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.Valid(); it.Next() {
			labels = append(labels, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return labels, err
}

// Stats summarizes the store contents.
type Stats struct {
	Runs          int
	LatestID      string
	LatestClasses int
	LSMBytes      int64
	VLogBytes     int64
}

// Stats counts runs and reports the latest run and on-disk size.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.db.View(func(txn *badger.Txn) error {
		stats.Runs = len(scanRunIDs(txn, 0))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if latest, err := s.LatestRun(ctx); err == nil {
		stats.LatestID = latest.ID
		stats.LatestClasses = len(latest.Classes)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	stats.LSMBytes, stats.VLogBytes = s.db.Size()
	return stats, nil
}

// Prune deletes all but the keep newest runs and returns how many were
// removed.
func (s *Store) Prune(_ context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	var doomed []*Run
	err := s.db.View(func(txn *badger.Txn) error {
		ids := scanRunIDs(txn, 0)
		if len(ids) <= keep {
			return nil
		}
		for _, id := range ids[keep:] {
			run, err := getRunInTxn(txn, id)
			if err != nil {
				return err
			}
			doomed = append(doomed, run)
		}
		return nil
	})
	if err != nil || len(doomed) == 0 {
		return 0, err
	}

	for _, run := range doomed {
		if err := s.deleteRun(run); err != nil {
			return 0, fmt.Errorf("delete run %s: %w", run.ID, err)
		}
	}
	return len(doomed), nil
}

func (s *Store) deleteRun(run *Run) error {
	prefix := classPrefix(run.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		var keys [][]byte
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		for it.Seek(prefix); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		keys = append(keys, runKey(run.ID), timeKey(run.StartedAt, run.ID))
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}

		item, err := txn.Get([]byte(keyLatest))
		if err == nil {
			latest, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if string(latest) == run.ID {
				return txn.Delete([]byte(keyLatest))
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
}

var errNoResult = errors.New("no result")

// Record builds a Run from res, digests its files and saves it.
func (s *Store) Record(ctx context.Context, res *analyzer.Result, src analyzer.Source, started time.Time, dur time.Duration) (*Run, error) {
	if res == nil {
		return nil, fmt.Errorf("record run: %w", errNoResult)
	}
	run, err := NewRun(res, src, started, dur)
	if err != nil {
		return nil, err
	}
	if err := s.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	return run, nil
}
