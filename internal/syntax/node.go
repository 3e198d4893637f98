// Package syntax exposes a read-only view over tree-sitter Ruby syntax trees.
package syntax

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Node is a read-only handle to a node in a parsed tree. The zero value
// represents an absent node; every accessor is safe to call on it.
type Node struct {
	n *sitter.Node
}

func wrap(n *sitter.Node) Node {
	if n == nil || n.IsNull() {
		return Node{}
	}
	return Node{n: n}
}

// IsZero reports whether the handle points at no node.
func (n Node) IsZero() bool { return n.n == nil }

// Type returns the grammar type tag, or "" for an absent node.
func (n Node) Type() string {
	if n.n == nil {
		return ""
	}
	return n.n.Type()
}

// Field returns the child bound to the named grammar field.
func (n Node) Field(name string) Node {
	if n.n == nil {
		return Node{}
	}
	return wrap(n.n.ChildByFieldName(name))
}

// NamedChildren returns the named children in source order.
func (n Node) NamedChildren() []Node {
	if n.n == nil {
		return nil
	}
	count := int(n.n.NamedChildCount())
	children := make([]Node, 0, count)
	for i := 0; i < count; i++ {
		if child := wrap(n.n.NamedChild(i)); !child.IsZero() {
			children = append(children, child)
		}
	}
	return children
}

// Parent returns the enclosing node, or the zero Node at the root.
func (n Node) Parent() Node {
	if n.n == nil {
		return Node{}
	}
	return wrap(n.n.Parent())
}

// StartByte is the offset of the first byte spanned by the node.
func (n Node) StartByte() uint32 {
	if n.n == nil {
		return 0
	}
	return n.n.StartByte()
}

// EndByte is the offset one past the last byte spanned by the node.
func (n Node) EndByte() uint32 {
	if n.n == nil {
		return 0
	}
	return n.n.EndByte()
}

// Line is the 1-based line on which the node starts.
func (n Node) Line() int {
	if n.n == nil {
		return 0
	}
	return int(n.n.StartPoint().Row) + 1
}

// HasError reports whether the subtree contains error-recovered regions.
func (n Node) HasError() bool {
	if n.n == nil {
		return false
	}
	return n.n.HasError()
}

// Within reports whether any strict ancestor of n has one of the given types.
func Within(n Node, types ...string) bool {
	for p := n.Parent(); !p.IsZero(); p = p.Parent() {
		for _, t := range types {
			if p.Type() == t {
				return true
			}
		}
	}
	return false
}
