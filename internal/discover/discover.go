// Package discover enumerates Ruby source files under a project root.
package discover

import (
	"cmp"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// Extension is the suffix of files Files returns.
const Extension = ".rb"

// Options controls which files are returned.
type Options struct {
	// Exclude lists doublestar globs matched against slash-separated paths
	// relative to the root. A matching directory is not descended into.
	Exclude []string
	// RespectGitIgnore drops files matched by the root .gitignore.
	RespectGitIgnore bool
}

// ValidatePatterns reports the first syntactically invalid glob.
func ValidatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
	}
	return nil
}

// Matcher decides which paths under a root are skipped.
type Matcher struct {
	root     string
	patterns []string
	gi       *ignore.GitIgnore
}

// NewMatcher compiles opts for root. The root .gitignore is read once.
func NewMatcher(root string, opts Options) (*Matcher, error) {
	if err := ValidatePatterns(opts.Exclude); err != nil {
		return nil, err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	m := &Matcher{root: absRoot, patterns: opts.Exclude}
	if opts.RespectGitIgnore {
		m.gi = loadGitignore(absRoot)
	}
	return m, nil
}

// Root returns the absolute root the matcher was built for.
func (m *Matcher) Root() string { return m.root }

// Excluded reports whether path, absolute or relative to the root, is
// filtered out. Paths outside the root are never excluded.
func (m *Matcher) Excluded(path string, isDir bool) bool {
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(m.root, path)
		if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			return false
		}
		rel = r
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return false
	}
	if excluded(m.patterns, rel, isDir) {
		return true
	}
	if m.gi == nil {
		return false
	}
	if isDir {
		return m.gi.MatchesPath(rel + "/")
	}
	return m.gi.MatchesPath(rel)
}

// Wanted reports whether path is a Ruby source the matcher keeps.
func (m *Matcher) Wanted(path string) bool {
	return strings.HasSuffix(path, Extension) && !m.Excluded(path, false)
}

// Files returns the absolute paths of all regular *.rb files under root,
// ordered by ComparePaths.
func Files(root string, opts Options) ([]string, error) {
	m, err := NewMatcher(root, opts)
	if err != nil {
		return nil, err
	}
	absRoot := m.root

	var files []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			return nil // unreadable entries are skipped
		}
		if path == absRoot {
			return nil
		}

		if d.IsDir() {
			if m.Excluded(path, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !isRegular(path, d) || !m.Wanted(path) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", absRoot, err)
	}

	SortPaths(files)
	return files, nil
}

// isRegular follows symlinks so linked files are included like plain ones.
func isRegular(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func excluded(patterns []string, rel string, dir bool) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		// "dir/**" style patterns also cover the directory itself.
		if dir {
			if ok, _ := doublestar.Match(pattern, rel+"/-"); ok {
				return true
			}
		}
	}
	return false
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

// ComparePaths orders paths segment by segment, so "a/b.rb" sorts before
// "a-c/x.rb" even though '-' < '/' bytewise.
func ComparePaths(a, b string) int {
	as := strings.Split(filepath.ToSlash(a), "/")
	bs := strings.Split(filepath.ToSlash(b), "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(as), len(bs))
}

// SortPaths sorts paths in place with ComparePaths.
func SortPaths(paths []string) {
	slices.SortFunc(paths, ComparePaths)
}
