package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"
)

// Extension is the file extension of Ruby sources.
const Extension = ".rb"

// Tree is a parsed source buffer.
type Tree struct {
	tree *sitter.Tree
	src  []byte
}

// Root returns the root node of the tree.
func (t *Tree) Root() Node { return wrap(t.tree.RootNode()) }

// Source returns the buffer the tree was parsed from.
func (t *Tree) Source() []byte { return t.src }

// Parser parses Ruby source into syntax trees. A Parser must not be shared
// between goroutines.
type Parser struct {
	p *sitter.Parser
}

// NewParser creates a parser configured with the Ruby grammar.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(ruby.GetLanguage())
	return &Parser{p: p}
}

// Parse builds a tree for src. Syntax errors do not fail the parse; the
// grammar recovers and marks the affected regions.
func (p *Parser) Parse(ctx context.Context, src []byte) (*Tree, error) {
	tree, err := p.p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse ruby source: %w", err)
	}
	return &Tree{tree: tree, src: src}, nil
}
