package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/imyousuf/rubyagent/internal/analyzer"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun(id string, started time.Time, classes ...analyzer.ClassRecord) *Run {
	return &Run{
		ID:         id,
		Root:       "/src",
		StartedAt:  started,
		Duration:   time.Second,
		Files:      []FileDigest{{Path: "/src/a.rb", Digest: 1}},
		Classes:    classes,
		Dictionary: map[string][]string{"/src/a.rb": {"::A", "A"}},
	}
}

func TestSaveGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inherits := "< Base"
	run := testRun("r1", time.Unix(100, 0).UTC(), analyzer.ClassRecord{
		Label:       "Api::Auth",
		FilePath:    "/src/a.rb",
		Inheritance: &inherits,
		Methods: []analyzer.MethodSummary{{
			Name:  "check",
			Calls: []analyzer.CallRecord{{Name: "Token", Resolution: analyzer.Resolution{Path: "/src/t.rb", Via: analyzer.MatchExact}}},
			Kind:  analyzer.InstanceMethod,
		}},
	})
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Root != "/src" || got.Duration != time.Second || !got.StartedAt.Equal(run.StartedAt) {
		t.Errorf("run = %+v", got)
	}
	if len(got.Classes) != 1 || got.Classes[0].Label != "Api::Auth" {
		t.Fatalf("classes = %+v", got.Classes)
	}
	call := got.Classes[0].Methods[0].Calls[0]
	if call.Resolution.Path != "/src/t.rb" || call.Resolution.Via != analyzer.MatchRestored {
		t.Errorf("call = %+v", call)
	}
	if *got.Classes[0].Inheritance != "< Base" {
		t.Errorf("inheritance = %v", got.Classes[0].Inheritance)
	}

	if _, err := s.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun(missing) error = %v, want ErrNotFound", err)
	}
}

func TestLatestAndListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.LatestRun(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("LatestRun on empty store error = %v, want ErrNotFound", err)
	}

	base := time.Unix(1_700_000_000, 0)
	for i, id := range []string{"old", "mid", "new"} {
		if err := s.SaveRun(ctx, testRun(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveRun(%s): %v", id, err)
		}
	}

	latest, err := s.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest.ID != "new" {
		t.Errorf("latest = %q, want new", latest.ID)
	}

	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	if !slices.Equal(ids, []string{"new", "mid", "old"}) {
		t.Errorf("ListRuns = %v, want newest first", ids)
	}

	runs, err = s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns(2): %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("ListRuns(2) returned %d runs", len(runs))
	}
}

func TestFindClassAndLabels(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := testRun("r1", time.Now(),
		analyzer.ClassRecord{Label: "Auth", FilePath: "/src/a.rb"},
		analyzer.ClassRecord{Label: "Api::Auth", FilePath: "/src/api.rb"},
		analyzer.ClassRecord{Label: "Auth", FilePath: "/src/b.rb"},
	)
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	paths, err := s.FindClass(ctx, "r1", "Auth")
	if err != nil {
		t.Fatalf("FindClass: %v", err)
	}
	if !slices.Equal(paths, []string{"/src/a.rb", "/src/b.rb"}) {
		t.Errorf("FindClass(Auth) = %v", paths)
	}
	if _, err := s.FindClass(ctx, "r1", "Missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindClass(Missing) error = %v, want ErrNotFound", err)
	}

	labels, err := s.Labels(ctx, "r1")
	if err != nil {
		t.Fatalf("Labels: %v", err)
	}
	if !slices.Equal(labels, []string{"Api::Auth", "Auth"}) {
		t.Errorf("Labels = %v", labels)
	}
}

func TestPruneAndStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0)
	for i, id := range []string{"a", "b", "c"} {
		run := testRun(id, base.Add(time.Duration(i)*time.Minute), analyzer.ClassRecord{Label: "K", FilePath: "/src/a.rb"})
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	removed, err := s.Prune(ctx, 1)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Errorf("Prune removed %d, want 2", removed)
	}
	if _, err := s.GetRun(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("pruned run still present: %v", err)
	}
	if _, err := s.FindClass(ctx, "a", "K"); !errors.Is(err, ErrNotFound) {
		t.Errorf("pruned class index still present: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Runs != 1 || stats.LatestID != "c" || stats.LatestClasses != 1 {
		t.Errorf("stats = %+v", stats)
	}

	if _, err := s.Prune(ctx, 0); err != nil {
		t.Fatalf("Prune(0): %v", err)
	}
	if _, err := s.LatestRun(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("LatestRun after full prune error = %v, want ErrNotFound", err)
	}
}

func TestRecordAndChangedFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	root := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(root, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	a := write("a.rb", "class A\nend\n")
	b := write("b.rb", "class B\nend\n")

	res, err := analyzer.New(analyzer.Options{}).AnalyzeDirectory(ctx, root)
	if err != nil {
		t.Fatalf("AnalyzeDirectory: %v", err)
	}
	run, err := s.Record(ctx, res, nil, time.Now(), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if run.ID == "" || len(run.Files) != 2 || len(run.Dictionary) != 2 {
		t.Errorf("run = %+v", run)
	}

	write("a.rb", "class A\n  def x; end\nend\n")
	if err := os.Remove(b); err != nil {
		t.Fatal(err)
	}
	c := write("c.rb", "class C\nend\n")

	current, err := DigestFiles([]string{a, c})
	if err != nil {
		t.Fatalf("DigestFiles: %v", err)
	}
	changes := ChangedFiles(run, current)
	if !slices.Equal(changes.Modified, []string{a}) ||
		!slices.Equal(changes.Removed, []string{b}) ||
		!slices.Equal(changes.Added, []string{c}) {
		t.Errorf("changes = %+v", changes)
	}
	if changes.Empty() {
		t.Error("Empty() = true")
	}
	if !ChangedFiles(run, run.Files).Empty() {
		t.Error("ChangedFiles against itself not empty")
	}
}
