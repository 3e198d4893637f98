// Package export writes analysis results as the nodes and classes
// dictionary JSON documents consumed by graph front ends.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/imyousuf/rubyagent/internal/analyzer"
)

const (
	// DefaultNodesFile is the nodes document name used when none is given.
	DefaultNodesFile = "nodes.json"
	// DictionaryFile is written next to the nodes document.
	DictionaryFile = "classes_dictionary.json"
)

// Paths locates the files produced by Write.
type Paths struct {
	Nodes      string `json:"output_path"`
	Dictionary string `json:"classes_dict_path"`
}

// Write stores the formatted nodes at output and the classes dictionary
// beside it, creating the parent directory when needed. An empty output
// writes DefaultNodesFile in the working directory.
func Write(output string, res *analyzer.Result) (Paths, error) {
	if output == "" {
		output = DefaultNodesFile
	}
	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create output directory: %w", err)
	}

	paths := Paths{
		Nodes:      output,
		Dictionary: filepath.Join(dir, DictionaryFile),
	}
	if err := writeJSON(paths.Nodes, res.Nodes()); err != nil {
		return Paths{}, fmt.Errorf("write nodes: %w", err)
	}
	if err := writeJSON(paths.Dictionary, res.Dictionary()); err != nil {
		return Paths{}, fmt.Errorf("write classes dictionary: %w", err)
	}
	return paths, nil
}

// Marshal encodes v with two-space indentation. Map keys come out sorted
// and markup characters such as the "<anonymous>" placeholder are kept
// literal.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(path string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
