package analyzer

import (
	"slices"
	"strings"
)

// Separator joins namespace segments in qualified class names.
const Separator = "::"

// MatchKind records which resolution step bound a name to a file.
type MatchKind int

const (
	// Unresolved means no registry entry matched.
	Unresolved MatchKind = iota
	// MatchExact is a literal registry key hit.
	MatchExact
	// MatchAbsolute is a "::Name" reference bound to a top-level class.
	MatchAbsolute
	// MatchSuffix is the first key, in registration order, ending in "::Name".
	MatchSuffix
	// MatchRestored marks a resolution read back from persisted output.
	MatchRestored
)

func (m MatchKind) String() string {
	switch m {
	case Unresolved:
		return "unresolved"
	case MatchExact:
		return "exact"
	case MatchAbsolute:
		return "absolute"
	case MatchSuffix:
		return "suffix"
	case MatchRestored:
		return "restored"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of looking a receiver up in a Registry.
type Resolution struct {
	Path string
	Via  MatchKind
}

// Resolved reports whether a defining file was found.
func (r Resolution) Resolved() bool { return r.Via != Unresolved }

// Registry maps class name variants to the file that defines them. Keys keep
// their first-registration order, which is the tie-break for suffix matches.
// A Registry is only mutated while pass 1 runs; afterwards it is read-only
// and safe for concurrent readers.
type Registry struct {
	paths map[string]string
	keys  []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{paths: make(map[string]string)}
}

// bind sets name unconditionally. Rebinding keeps the original position.
func (r *Registry) bind(name, path string) {
	if _, ok := r.paths[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.paths[name] = path
}

// bindIfAbsent sets name only when it has no binding yet.
func (r *Registry) bindIfAbsent(name, path string) bool {
	if _, ok := r.paths[name]; ok {
		return false
	}
	r.bind(name, path)
	return true
}

// Lookup returns the file bound to the exact key name.
func (r *Registry) Lookup(name string) (string, bool) {
	path, ok := r.paths[name]
	return path, ok
}

// Keys returns the registered names in registration order.
func (r *Registry) Keys() []string { return slices.Clone(r.keys) }

// Len returns the number of registered names.
func (r *Registry) Len() int { return len(r.keys) }

// Resolve maps a receiver as written in source to its defining file.
// Steps, first success wins:
//  1. exact key match;
//  2. "::Name" matches the top-level Name only, never a namespaced class;
//  3. the first key in registration order equal to name or ending in "::name".
//
// Step 3 depends on registration order: with Api::Auth and Admin::Auth
// both registered, "Auth" resolves to whichever file sorted first.
func (r *Registry) Resolve(name string) Resolution {
	if r == nil || len(r.keys) == 0 || name == "" {
		return Resolution{}
	}
	if path, ok := r.paths[name]; ok {
		return Resolution{Path: path, Via: MatchExact}
	}
	if stripped, ok := strings.CutPrefix(name, Separator); ok && !strings.Contains(stripped, Separator) {
		if path, ok := r.paths[stripped]; ok {
			return Resolution{Path: path, Via: MatchAbsolute}
		}
	}
	suffix := Separator + name
	for _, key := range r.keys {
		if key == name || strings.HasSuffix(key, suffix) {
			return Resolution{Path: r.paths[key], Via: MatchSuffix}
		}
	}
	return Resolution{}
}

// NameVariants lists every name a class could be referenced by: each suffix
// of namespaces+name from the fully qualified form down to the bare name,
// then the absolute root form. The result always has len(namespaces)+2
// entries.
func NameVariants(name string, namespaces []string) []string {
	k := len(namespaces)
	variants := make([]string, 0, k+2)
	for i := 0; i <= k; i++ {
		if i == k {
			variants = append(variants, name)
			continue
		}
		parts := append(slices.Clone(namespaces[i:]), name)
		variants = append(variants, strings.Join(parts, Separator))
	}
	return append(variants, Separator+name)
}

// QualifiedName joins namespaces and name with Separator.
func QualifiedName(namespaces []string, name string) string {
	if len(namespaces) == 0 {
		return name
	}
	return strings.Join(namespaces, Separator) + Separator + name
}

// FileVariants indexes, per file, every name variant of the classes the file
// defines. It is used for reporting only and never consulted by Resolve.
type FileVariants struct {
	files    []string
	variants map[string][]string
	seen     map[string]map[string]struct{}
}

// NewFileVariants returns an empty index.
func NewFileVariants() *FileVariants {
	return &FileVariants{
		variants: make(map[string][]string),
		seen:     make(map[string]map[string]struct{}),
	}
}

func (f *FileVariants) add(path string, variants ...string) {
	seen, ok := f.seen[path]
	if !ok {
		seen = make(map[string]struct{})
		f.seen[path] = seen
		f.files = append(f.files, path)
	}
	for _, v := range variants {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		f.variants[path] = append(f.variants[path], v)
	}
}

// Files returns indexed files in the order they were first seen.
func (f *FileVariants) Files() []string { return slices.Clone(f.files) }

// Variants returns the variants of path in first-seen order.
func (f *FileVariants) Variants(path string) []string { return slices.Clone(f.variants[path]) }

// Len returns the number of indexed files.
func (f *FileVariants) Len() int { return len(f.files) }

// Dictionary returns a copy of the index with each value sorted.
// encoding/json writes map keys sorted, so the marshaled form is stable.
func (f *FileVariants) Dictionary() map[string][]string {
	dict := make(map[string][]string, len(f.files))
	for _, path := range f.files {
		values := slices.Clone(f.variants[path])
		slices.Sort(values)
		dict[path] = values
	}
	return dict
}

// RegistryFromRecords rebuilds the registry pass 1 would have produced from
// records in their original order, e.g. a stored run. Anonymous classes are
// skipped as in pass 1.
func RegistryFromRecords(records []ClassRecord) *Registry {
	reg := NewRegistry()
	for _, rec := range records {
		k := len(rec.NamespaceChain)
		if k == 0 || rec.NamespaceChain[k-1] == Anonymous {
			continue
		}
		name := rec.NamespaceChain[k-1]
		reg.bind(QualifiedName(rec.NamespaceChain[:k-1], name), rec.FilePath)
		reg.bindIfAbsent(name, rec.FilePath)
	}
	return reg
}
