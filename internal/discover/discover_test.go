package discover

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func relAll(t *testing.T, root string, paths []string) []string {
	t.Helper()
	absRoot, err := filepath.Abs(root)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func TestFilesSortedAndFiltered(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "b.rb", "class B; end")
	writeFile(t, root, "a.rb", "class A; end")
	writeFile(t, root, "lib/z.rb", "")
	writeFile(t, root, "lib-extra/y.rb", "")
	writeFile(t, root, "README.md", "# readme")
	writeFile(t, root, "lib/notes.txt", "")

	files, err := Files(root, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	got := relAll(t, root, files)
	want := []string{"a.rb", "b.rb", "lib/z.rb", "lib-extra/y.rb"}
	if !slices.Equal(got, want) {
		t.Errorf("Files = %v, want %v", got, want)
	}
	for _, f := range files {
		if !filepath.IsAbs(f) {
			t.Errorf("path %q is not absolute", f)
		}
	}
}

func TestFilesExclude(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "app/models/user.rb", "")
	writeFile(t, root, "vendor/bundle/gem.rb", "")
	writeFile(t, root, "spec/user_spec.rb", "")

	files, err := Files(root, Options{Exclude: []string{"vendor/**", "**/*_spec.rb"}})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	got := relAll(t, root, files)
	want := []string{"app/models/user.rb"}
	if !slices.Equal(got, want) {
		t.Errorf("Files = %v, want %v", got, want)
	}
}

func TestFilesGitIgnore(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "tmp/\ngenerated.rb\n")
	writeFile(t, root, "keep.rb", "")
	writeFile(t, root, "generated.rb", "")
	writeFile(t, root, "tmp/cache.rb", "")

	all, err := Files(root, Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("without gitignore got %d files, want 3", len(all))
	}

	files, err := Files(root, Options{RespectGitIgnore: true})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	got := relAll(t, root, files)
	if !slices.Equal(got, []string{"keep.rb"}) {
		t.Errorf("Files = %v, want [keep.rb]", got)
	}
}

func TestFilesInvalidPattern(t *testing.T) {
	t.Parallel()
	if _, err := Files(t.TempDir(), Options{Exclude: []string{"[unterminated"}}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestFilesMissingRoot(t *testing.T) {
	t.Parallel()
	if _, err := Files(filepath.Join(t.TempDir(), "missing"), Options{}); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestComparePaths(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b string
		want int
	}{
		{"a/b.rb", "a-c/x.rb", -1},
		{"a.rb", "b.rb", -1},
		{"lib/a.rb", "lib/a.rb", 0},
		{"lib", "lib/a.rb", -1},
		{"z.rb", "a/z.rb", 1},
	}
	for _, tt := range tests {
		if got := ComparePaths(tt.a, tt.b); got != tt.want {
			t.Errorf("ComparePaths(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSourceCache(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := writeFile(t, root, "a.rb", "class A; end")

	cache, err := NewSourceCache(2)
	if err != nil {
		t.Fatalf("NewSourceCache: %v", err)
	}
	data, err := cache.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "class A; end" {
		t.Errorf("ReadFile = %q", data)
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}

	writeFile(t, root, "a.rb", "class A < Base; end")
	data, err = cache.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "class A < Base; end" {
		t.Errorf("ReadFile after change = %q", data)
	}

	cache.Invalidate(path)
	if cache.Len() != 0 {
		t.Errorf("Len after Invalidate = %d, want 0", cache.Len())
	}

	if _, err := cache.ReadFile(filepath.Join(root, "missing.rb")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMatcher(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "tmp/\n*.gen.rb\n")

	m, err := NewMatcher(root, Options{Exclude: []string{"**/vendor/**"}, RespectGitIgnore: true})
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{filepath.Join(root, "app", "a.rb"), false, false},
		{filepath.Join(root, "vendor"), true, true},
		{filepath.Join(root, "lib", "vendor", "x.rb"), false, true},
		{filepath.Join(root, "tmp"), true, true},
		{filepath.Join(root, "models", "user.gen.rb"), false, true},
		{"app/b.rb", false, false},
		{root, true, false},
		{filepath.Join(filepath.Dir(root), "elsewhere", "vendor", "x.rb"), false, false},
	}
	for _, tt := range tests {
		if got := m.Excluded(tt.path, tt.isDir); got != tt.want {
			t.Errorf("Excluded(%q, %v) = %v, want %v", tt.path, tt.isDir, got, tt.want)
		}
	}

	if !m.Wanted(filepath.Join(root, "a.rb")) {
		t.Error("Wanted(a.rb) = false")
	}
	if m.Wanted(filepath.Join(root, "a.py")) {
		t.Error("Wanted(a.py) = true")
	}
}
