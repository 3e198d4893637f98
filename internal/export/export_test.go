package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/imyousuf/rubyagent/internal/analyzer"
)

func analyze(t *testing.T, files map[string]string) *analyzer.Result {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	res, err := analyzer.New(analyzer.Options{}).AnalyzeDirectory(context.Background(), root)
	if err != nil {
		t.Fatalf("AnalyzeDirectory: %v", err)
	}
	return res
}

func TestWrite(t *testing.T) {
	res := analyze(t, map[string]string{
		"a.rb": "module Api\n  class Auth\n    def check\n      Token.verify\n    end\n  end\nend\n",
		"b.rb": "class Token\nend\n",
	})

	out := filepath.Join(t.TempDir(), "nested", "out", "graph.json")
	paths, err := Write(out, res)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if paths.Nodes != out {
		t.Errorf("Nodes = %q, want %q", paths.Nodes, out)
	}
	if want := filepath.Join(filepath.Dir(out), DictionaryFile); paths.Dictionary != want {
		t.Errorf("Dictionary = %q, want %q", paths.Dictionary, want)
	}

	data, err := os.ReadFile(paths.Nodes)
	if err != nil {
		t.Fatal(err)
	}
	var nodes []map[string]any
	if err := json.Unmarshal(data, &nodes); err != nil {
		t.Fatalf("nodes not JSON: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("len(nodes) = %d, want 2", len(nodes))
	}
	if nodes[0]["label"] != "Api::Auth" || nodes[0]["id"] != "1" || nodes[0]["color"] != analyzer.DefaultNodeColor {
		t.Errorf("first node = %v", nodes[0])
	}
	if !strings.Contains(string(data), "\n  {\n    \"label\"") {
		t.Errorf("nodes not indented with two spaces:\n%s", data)
	}

	data, err = os.ReadFile(paths.Dictionary)
	if err != nil {
		t.Fatal(err)
	}
	var dict map[string][]string
	if err := json.Unmarshal(data, &dict); err != nil {
		t.Fatalf("dictionary not JSON: %v", err)
	}
	if len(dict) != 2 {
		t.Errorf("dictionary = %v, want 2 files", dict)
	}
	for path, variants := range dict {
		if filepath.Base(path) == "a.rb" && strings.Join(variants, ",") != "::Auth,Api::Auth,Auth" {
			t.Errorf("a.rb variants = %v", variants)
		}
	}
}

func TestMarshalKeepsPlaceholderLiteral(t *testing.T) {
	data, err := Marshal(map[string]string{"b": analyzer.Anonymous, "a": "x"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := "{\n  \"a\": \"x\",\n  \"b\": \"<anonymous>\"\n}\n"
	if string(data) != want {
		t.Errorf("Marshal = %q, want %q", data, want)
	}
}

func TestWriteDefaultName(t *testing.T) {
	res := analyze(t, map[string]string{"a.rb": "class A; end\n"})
	t.Chdir(t.TempDir())

	paths, err := Write("", res)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if paths.Nodes != DefaultNodesFile || paths.Dictionary != DictionaryFile {
		t.Errorf("paths = %+v", paths)
	}
	if _, err := os.Stat(DictionaryFile); err != nil {
		t.Errorf("dictionary not written: %v", err)
	}
}
