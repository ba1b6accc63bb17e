package ast

// Walk calls fn for every node in the tree in pre-order, following only
// owning child references (never parent links). Traversal of a subtree is
// skipped when fn returns false for its root.
func Walk(root *Node, fn func(*Node) bool) {
	if root == nil {
		return
	}
	if !fn(root) {
		return
	}
	for _, child := range root.Children() {
		Walk(child, fn)
	}
}

// All collects every node of the tree in pre-order.
func All(root *Node) []*Node {
	var nodes []*Node
	Walk(root, func(n *Node) bool {
		nodes = append(nodes, n)
		return true
	})
	return nodes
}

// DeepestAt returns the innermost node whose span contains the given
// position (1-based line, 0-based column), or nil when the position falls
// outside every node (blank line at module level).
func DeepestAt(root *Node, line, col int) *Node {
	var deepest *Node
	Walk(root, func(n *Node) bool {
		if n.Kind == KindModule {
			return true // module spans everything; keep descending
		}
		if !n.Contains(line, col) {
			return false
		}
		deepest = n
		return true
	})
	return deepest
}

// HasAncestor reports whether any strict ancestor of n satisfies pred.
func HasAncestor(n *Node, pred func(*Node) bool) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if pred(p) {
			return true
		}
	}
	return false
}
