package bridge

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Node is a view of one position in a tree. It is valid only while its tree handle is live; every
// Bridge method taking a Node checks that first.
type Node struct {
	tree  TreeHandle
	inner sitter.Node
}

// Tree returns the handle of the tree the node belongs to.
func (n Node) Tree() TreeHandle {
	return n.tree
}

// IsZero reports whether n is the zero Node.
func (n Node) IsZero() bool {
	return n.tree == 0
}

// node resolves n against the tree table.
func (b *Bridge) node(n Node) (*sitter.Node, error) {
	if n.tree == 0 {
		return nil, ErrNullHandle
	}
	if _, err := b.tree(n.tree); err != nil {
		return nil, err
	}
	return &n.inner, nil
}

// Inspect reads the symbol, byte span, child count, and every flag of n in one call.
func (b *Bridge) Inspect(n Node) (NodeInfo, error) {
	inner, err := b.node(n)
	if err != nil {
		return NodeInfo{}, fmt.Errorf("inspect node: %w", err)
	}
	return infoOf(inner), nil
}

// NodeType returns the grammar type name of n, e.g. "struct_definition".
func (b *Bridge) NodeType(n Node) (string, error) {
	inner, err := b.node(n)
	if err != nil {
		return "", fmt.Errorf("node type: %w", err)
	}
	return inner.Kind(), nil
}

// Symbol returns the grammar symbol id of n.
func (b *Bridge) Symbol(n Node) (uint32, error) {
	inner, err := b.node(n)
	if err != nil {
		return 0, fmt.Errorf("node symbol: %w", err)
	}
	return uint32(inner.KindId()), nil
}

// StartByte returns the byte offset where n starts.
func (b *Bridge) StartByte(n Node) (uint32, error) {
	inner, err := b.node(n)
	if err != nil {
		return 0, fmt.Errorf("node start byte: %w", err)
	}
	return uint32(inner.StartByte()), nil
}

// EndByte returns the byte offset where n ends.
func (b *Bridge) EndByte(n Node) (uint32, error) {
	inner, err := b.node(n)
	if err != nil {
		return 0, fmt.Errorf("node end byte: %w", err)
	}
	return uint32(inner.EndByte()), nil
}

// StartPoint returns the row and column where n starts.
func (b *Bridge) StartPoint(n Node) (Point, error) {
	inner, err := b.node(n)
	if err != nil {
		return Point{}, fmt.Errorf("node start point: %w", err)
	}
	return pointFromSitter(inner.StartPosition()), nil
}

// EndPoint returns the row and column where n ends.
func (b *Bridge) EndPoint(n Node) (Point, error) {
	inner, err := b.node(n)
	if err != nil {
		return Point{}, fmt.Errorf("node end point: %w", err)
	}
	return pointFromSitter(inner.EndPosition()), nil
}

// ChildCount returns the number of direct children of n.
func (b *Bridge) ChildCount(n Node) (uint32, error) {
	inner, err := b.node(n)
	if err != nil {
		return 0, fmt.Errorf("child count: %w", err)
	}
	return uint32(inner.ChildCount()), nil
}

// NamedChildCount returns the number of named direct children of n.
func (b *Bridge) NamedChildCount(n Node) (uint32, error) {
	inner, err := b.node(n)
	if err != nil {
		return 0, fmt.Errorf("named child count: %w", err)
	}
	return uint32(inner.NamedChildCount()), nil
}

// IsNamed reports whether n is a named node.
func (b *Bridge) IsNamed(n Node) (bool, error) {
	return b.flag(n, FlagNamed)
}

// IsError reports whether n is an error node.
func (b *Bridge) IsError(n Node) (bool, error) {
	return b.flag(n, FlagError)
}

// IsMissing reports whether n was inserted by error recovery.
func (b *Bridge) IsMissing(n Node) (bool, error) {
	return b.flag(n, FlagMissing)
}

// IsExtra reports whether n is an extra node such as a comment.
func (b *Bridge) IsExtra(n Node) (bool, error) {
	return b.flag(n, FlagExtra)
}

// HasError reports whether n or any of its descendants is an error or missing node.
func (b *Bridge) HasError(n Node) (bool, error) {
	return b.flag(n, FlagHasError)
}

func (b *Bridge) flag(n Node, flag NodeFlags) (bool, error) {
	inner, err := b.node(n)
	if err != nil {
		return false, fmt.Errorf("node flag %s: %w", flag, err)
	}
	var ok bool
	switch flag {
	case FlagNamed:
		ok = inner.IsNamed()
	case FlagError:
		ok = inner.IsError()
	case FlagMissing:
		ok = inner.IsMissing()
	case FlagExtra:
		ok = inner.IsExtra()
	case FlagHasError:
		ok = inner.HasError()
	}
	return ok, nil
}
