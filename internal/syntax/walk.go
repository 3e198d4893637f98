package syntax

import "iter"

// Walk yields root and all of its named descendants in breadth-first order.
// Anonymous nodes are never yielded or descended into. The sequence is lazy
// and can be ranged over any number of times.
func Walk(root Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		if root.IsZero() {
			return
		}
		queue := []Node{root}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			if !yield(current) {
				return
			}
			queue = append(queue, current.NamedChildren()...)
		}
	}
}

// WalkTypes is Walk restricted to nodes whose type is one of types.
func WalkTypes(root Node, types ...string) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for n := range Walk(root) {
			for _, t := range types {
				if n.Type() != t {
					continue
				}
				if !yield(n) {
					return
				}
				break
			}
		}
	}
}
