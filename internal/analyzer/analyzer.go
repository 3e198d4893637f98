// Package analyzer recovers class structure from Ruby sources and resolves
// constant call receivers to their defining files.
//
// Analysis runs in two passes over files in sorted path order. Pass 1 parses
// every file and builds a Registry of class name variants. Pass 2 parses the
// files again and summarizes each class, resolving calls against the
// completed registry so references to classes defined later still resolve.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strconv"
	"unicode/utf8"

	"github.com/sourcegraph/conc/pool"

	"github.com/imyousuf/rubyagent/internal/discover"
	"github.com/imyousuf/rubyagent/internal/syntax"
)

var (
	// ErrRootNotFound is returned when the analysis root does not exist.
	ErrRootNotFound = errors.New("path not found")
	// ErrNotDirectory is returned when the analysis root is not a directory.
	ErrNotDirectory = errors.New("path must be a directory")
	// ErrInvalidUTF8 is wrapped by FileError for undecodable sources.
	ErrInvalidUTF8 = errors.New("invalid UTF-8")
)

// FileError reports the file that aborted a run.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e *FileError) Unwrap() error { return e.Err }

// Phase identifies the pass a progress notification belongs to.
type Phase int

const (
	PhaseRegistry Phase = iota + 1
	PhaseSummary
)

func (p Phase) String() string {
	switch p {
	case PhaseRegistry:
		return "registry"
	case PhaseSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// Source reads file contents.
type Source interface {
	ReadFile(path string) ([]byte, error)
}

type osSource struct{}

func (osSource) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

// Options configures an Analyzer. The zero value is usable.
type Options struct {
	// Workers bounds pass 2 parallelism. Values below 2 run sequentially.
	// Output order does not depend on it.
	Workers int
	// Discover lists candidate files under root. Defaults to discover.Files
	// with no exclusions. The result is re-sorted before use.
	Discover func(root string) ([]string, error)
	// Source reads files. Defaults to the local filesystem.
	Source Source
	// Progress, if set, is called after each file of each pass. It must be
	// safe for concurrent use when Workers > 1.
	Progress func(phase Phase, path string)
	// OnFiles, if set, is called once with the sorted file list.
	OnFiles func(files []string)
	// Logger receives warnings about files that abort a run. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// Analyzer runs two-pass analyses. It holds no state between runs and may be
// used by several goroutines at once.
type Analyzer struct {
	opts Options
}

// New returns an Analyzer with the given options.
func New(opts Options) *Analyzer {
	if opts.Source == nil {
		opts.Source = osSource{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Discover == nil {
		opts.Discover = func(root string) ([]string, error) {
			return discover.Files(root, discover.Options{})
		}
	}
	return &Analyzer{opts: opts}
}

// Result is the output of one analysis run.
type Result struct {
	Root     string
	Files    []string
	Classes  []ClassRecord
	Registry *Registry
	Variants *FileVariants
}

// Dictionary maps each file to the sorted name variants of its classes.
func (r *Result) Dictionary() map[string][]string { return r.Variants.Dictionary() }

// Nodes returns the classes decorated for graph rendering.
func (r *Result) Nodes() []GraphNode { return FormatNodes(r.Classes) }

// AnalyzeDirectory analyzes every Ruby file under root.
func (a *Analyzer) AnalyzeDirectory(ctx context.Context, root string) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
		}
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	files, err := a.opts.Discover(root)
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	files = slices.Clone(files)
	discover.SortPaths(files)
	if a.opts.OnFiles != nil {
		a.opts.OnFiles(files)
	}

	reg, variants, err := a.BuildRegistry(ctx, files)
	if err != nil {
		return nil, err
	}
	classes, err := a.summarize(ctx, files, reg)
	if err != nil {
		return nil, err
	}

	return &Result{
		Root:     root,
		Files:    files,
		Classes:  classes,
		Registry: reg,
		Variants: variants,
	}, nil
}

// BuildRegistry runs pass 1 over files in sorted path order. Each named
// class binds its qualified name unconditionally and its bare name only if
// no earlier file claimed it. For a root-level class the qualified name is
// the bare name, so the last root-level definition owns it.
func (a *Analyzer) BuildRegistry(ctx context.Context, files []string) (*Registry, *FileVariants, error) {
	files = slices.Clone(files)
	discover.SortPaths(files)

	reg := NewRegistry()
	variants := NewFileVariants()
	parser := syntax.NewParser()

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		tree, err := a.parseFile(ctx, parser, path)
		if err != nil {
			return nil, nil, err
		}
		src := tree.Source()
		for class := range syntax.WalkTypes(tree.Root(), "class") {
			name := text(class.Field("name"), src)
			if name == "" {
				continue
			}
			namespaces := Namespaces(class, src)
			reg.bind(QualifiedName(namespaces, name), path)
			reg.bindIfAbsent(name, path)
			variants.add(path, NameVariants(name, namespaces)...)
		}
		a.progress(PhaseRegistry, path)
	}
	return reg, variants, nil
}

// AnalyzeFile runs pass 2 for a single file against a completed registry.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string, reg *Registry) ([]ClassRecord, error) {
	return a.summarizeFile(ctx, syntax.NewParser(), path, reg)
}

func (a *Analyzer) summarize(ctx context.Context, files []string, reg *Registry) ([]ClassRecord, error) {
	perFile := make([][]ClassRecord, len(files))

	if a.opts.Workers < 2 {
		parser := syntax.NewParser()
		for i, path := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			records, err := a.summarizeFile(ctx, parser, path, reg)
			if err != nil {
				return nil, err
			}
			perFile[i] = records
		}
	} else {
		workers := min(a.opts.Workers, runtime.NumCPU()*2)
		p := pool.New().
			WithMaxGoroutines(workers).
			WithContext(ctx).
			WithCancelOnError().
			WithFirstError()
		for i, path := range files {
			p.Go(func(ctx context.Context) error {
				records, err := a.summarizeFile(ctx, syntax.NewParser(), path, reg)
				if err != nil {
					return err
				}
				perFile[i] = records
				return nil
			})
		}
		if err := p.Wait(); err != nil {
			return nil, err
		}
	}

	var classes []ClassRecord
	for _, records := range perFile {
		classes = append(classes, records...)
	}
	if classes == nil {
		classes = []ClassRecord{}
	}
	return classes, nil
}

func (a *Analyzer) summarizeFile(ctx context.Context, parser *syntax.Parser, path string, reg *Registry) ([]ClassRecord, error) {
	tree, err := a.parseFile(ctx, parser, path)
	if err != nil {
		return nil, err
	}
	src := tree.Source()
	var records []ClassRecord
	for class := range syntax.WalkTypes(tree.Root(), "class") {
		records = append(records, Summarize(class, src, reg).Record(path))
	}
	a.progress(PhaseSummary, path)
	return records, nil
}

func (a *Analyzer) parseFile(ctx context.Context, parser *syntax.Parser, path string) (*syntax.Tree, error) {
	src, err := a.opts.Source.ReadFile(path)
	if err != nil {
		return nil, a.fileError(path, err)
	}
	if !utf8.Valid(src) {
		return nil, a.fileError(path, ErrInvalidUTF8)
	}
	tree, err := parser.Parse(ctx, src)
	if err != nil {
		return nil, a.fileError(path, err)
	}
	return tree, nil
}

func (a *Analyzer) fileError(path string, err error) error {
	a.opts.Logger.Warn("file aborted analysis", slog.String("path", path), slog.String("error", err.Error()))
	return &FileError{Path: path, Err: err}
}

func (a *Analyzer) progress(phase Phase, path string) {
	if a.opts.Progress != nil {
		a.opts.Progress(phase, path)
	}
}

// FormatNodes assigns each record a 1-based string id, a vertical canvas
// position 150 units apart and the default color.
func FormatNodes(classes []ClassRecord) []GraphNode {
	nodes := make([]GraphNode, len(classes))
	for i, class := range classes {
		index := i + 1
		nodes[i] = GraphNode{
			ClassRecord: class,
			ID:          strconv.Itoa(index),
			Position:    Position{X: 0, Y: index * 150},
			Color:       DefaultNodeColor,
		}
	}
	return nodes
}
