package store

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/imyousuf/rubyagent/internal/analyzer"
)

// FileDigest fingerprints one analyzed file.
type FileDigest struct {
	Path   string `json:"path"`
	Digest uint64 `json:"digest"`
}

// Run is one persisted analysis.
type Run struct {
	ID         string                 `json:"id"`
	Root       string                 `json:"root"`
	StartedAt  time.Time              `json:"started_at"`
	Duration   time.Duration          `json:"duration"`
	Files      []FileDigest           `json:"files"`
	Classes    []analyzer.ClassRecord `json:"classes"`
	Dictionary map[string][]string    `json:"dictionary"`
}

type fileReader func(path string) ([]byte, error)

// NewRun assigns a fresh id to res and digests its files through src. A
// nil src reads from disk.
func NewRun(res *analyzer.Result, src analyzer.Source, started time.Time, dur time.Duration) (*Run, error) {
	read := fileReader(os.ReadFile)
	if src != nil {
		read = src.ReadFile
	}
	digests, err := digestFiles(res.Files, read)
	if err != nil {
		return nil, err
	}
	return &Run{
		ID:         uuid.NewString(),
		Root:       res.Root,
		StartedAt:  started.UTC(),
		Duration:   dur,
		Files:      digests,
		Classes:    res.Classes,
		Dictionary: res.Dictionary(),
	}, nil
}

// Digest hashes file content.
func Digest(data []byte) uint64 { return xxhash.Sum64(data) }

// DigestFiles reads and hashes each path from disk.
func DigestFiles(paths []string) ([]FileDigest, error) {
	return digestFiles(paths, os.ReadFile)
}

func digestFiles(paths []string, read fileReader) ([]FileDigest, error) {
	digests := make([]FileDigest, 0, len(paths))
	for _, path := range paths {
		data, err := read(path)
		if err != nil {
			return nil, fmt.Errorf("digest %s: %w", path, err)
		}
		digests = append(digests, FileDigest{Path: path, Digest: Digest(data)})
	}
	return digests, nil
}

// Changes lists file differences between two digest sets.
type Changes struct {
	Added    []string
	Removed  []string
	Modified []string
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Modified) == 0
}

// ChangedFiles compares the digests stored with run against current.
// Each list is sorted.
func ChangedFiles(run *Run, current []FileDigest) Changes {
	before := make(map[string]uint64, len(run.Files))
	for _, f := range run.Files {
		before[f.Path] = f.Digest
	}

	var c Changes
	seen := make(map[string]bool, len(current))
	for _, f := range current {
		seen[f.Path] = true
		old, ok := before[f.Path]
		switch {
		case !ok:
			c.Added = append(c.Added, f.Path)
		case old != f.Digest:
			c.Modified = append(c.Modified, f.Path)
		}
	}
	for _, f := range run.Files {
		if !seen[f.Path] {
			c.Removed = append(c.Removed, f.Path)
		}
	}
	slices.Sort(c.Added)
	slices.Sort(c.Removed)
	slices.Sort(c.Modified)
	return c
}
