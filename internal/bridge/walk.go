package bridge

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Children writes up to len(out) direct children of n into out in document order and returns
// the total child count. With an empty out it only counts, which is how callers size a buffer
// before the second call.
func (b *Bridge) Children(n Node, out []Node) (uint32, error) {
	inner, err := b.node(n)
	if err != nil {
		return 0, fmt.Errorf("children: %w", err)
	}
	total := uint32(inner.ChildCount())
	if len(out) == 0 || total == 0 {
		return total, nil
	}
	fillChildren(n.tree, inner, out, false)
	return total, nil
}

// NamedChildren is Children restricted to named children. Indices into the named sequence are
// unrelated to indices into the full one.
func (b *Bridge) NamedChildren(n Node, out []Node) (uint32, error) {
	inner, err := b.node(n)
	if err != nil {
		return 0, fmt.Errorf("named children: %w", err)
	}
	total := uint32(inner.NamedChildCount())
	if len(out) == 0 || total == 0 {
		return total, nil
	}
	fillChildren(n.tree, inner, out, true)
	return total, nil
}

func fillChildren(tree TreeHandle, parent *sitter.Node, out []Node, namedOnly bool) {
	cursor := parent.Walk()
	defer cursor.Close()

	if !cursor.GotoFirstChild() {
		return
	}
	written := 0
	for written < len(out) {
		child := cursor.Node()
		if !namedOnly || child.IsNamed() {
			out[written] = Node{tree: tree, inner: *child}
			written++
		}
		if !cursor.GotoNextSibling() {
			return
		}
	}
}

// Child returns the i-th direct child of n.
func (b *Bridge) Child(n Node, i uint32) (Node, error) {
	inner, err := b.node(n)
	if err != nil {
		return Node{}, fmt.Errorf("child: %w", err)
	}
	if count := uint32(inner.ChildCount()); i >= count {
		return Node{}, fmt.Errorf("%w: %d >= %d", ErrIndexOutOfRange, i, count)
	}
	child := inner.Child(uint(i))
	if child == nil {
		return Node{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return Node{tree: n.tree, inner: *child}, nil
}

// NamedChild returns the i-th named direct child of n.
func (b *Bridge) NamedChild(n Node, i uint32) (Node, error) {
	inner, err := b.node(n)
	if err != nil {
		return Node{}, fmt.Errorf("named child: %w", err)
	}
	if count := uint32(inner.NamedChildCount()); i >= count {
		return Node{}, fmt.Errorf("%w: %d >= %d", ErrIndexOutOfRange, i, count)
	}
	child := inner.NamedChild(uint(i))
	if child == nil {
		return Node{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return Node{tree: n.tree, inner: *child}, nil
}
