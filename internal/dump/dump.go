// Package dump renders syntax trees produced by either engine as outlines, S-expressions, JSON,
// or YAML.
package dump

import (
	"fmt"

	"github.com/kpumuk/twbridge/internal/bridge"
)

// Inspector is the node surface shared by the native and wasm engines.
type Inspector[N any] interface {
	Inspect(n N) (bridge.NodeInfo, error)
	NodeType(n N) (string, error)
	Children(n N, out []N) (uint32, error)
}

// Options control which nodes Build keeps.
type Options struct {
	// NamedOnly drops anonymous tokens and their subtrees.
	NamedOnly bool
	// MaxDepth stops descending below this depth. Zero means unlimited.
	MaxDepth int
	// Source, when set, fills Text for leaves.
	Source []byte
}

// Node is an engine-independent copy of one syntax node.
type Node struct {
	Type       string   `json:"type" yaml:"type"`
	Symbol     uint32   `json:"symbol" yaml:"symbol"`
	StartByte  uint32   `json:"start_byte" yaml:"start_byte"`
	EndByte    uint32   `json:"end_byte" yaml:"end_byte"`
	ChildCount uint32   `json:"child_count" yaml:"child_count"`
	Flags      []string `json:"flags,omitempty" yaml:"flags,omitempty"`
	Text       string   `json:"text,omitempty" yaml:"text,omitempty"`
	Children   []*Node  `json:"children,omitempty" yaml:"children,omitempty"`

	flags bridge.NodeFlags
}

// Has reports whether flag is set on the node.
func (n *Node) Has(flag bridge.NodeFlags) bool {
	return n.flags.Has(flag)
}

// Build copies the subtree rooted at root.
func Build[N any](in Inspector[N], root N, opts Options) (*Node, error) {
	return build(in, root, opts, 0)
}

func build[N any](in Inspector[N], n N, opts Options, depth int) (*Node, error) {
	info, err := in.Inspect(n)
	if err != nil {
		return nil, err
	}
	kind, err := in.NodeType(n)
	if err != nil {
		return nil, err
	}
	out := &Node{
		Type:       kind,
		Symbol:     info.Symbol,
		StartByte:  info.StartByte,
		EndByte:    info.EndByte,
		ChildCount: info.ChildCount,
		Flags:      info.Flags.Names(),
		flags:      info.Flags,
	}
	if info.ChildCount == 0 && opts.Source != nil && info.EndByte <= uint32(len(opts.Source)) {
		out.Text = string(opts.Source[info.StartByte:info.EndByte])
	}
	if opts.MaxDepth > 0 && depth+1 >= opts.MaxDepth {
		return out, nil
	}

	total, err := in.Children(n, nil)
	if err != nil || total == 0 {
		return out, err
	}
	children := make([]N, total)
	written, err := in.Children(n, children)
	if err != nil {
		return nil, err
	}
	if written != total {
		return nil, fmt.Errorf("children of %s changed between calls: %d then %d", kind, total, written)
	}

	for _, c := range children {
		child, err := build(in, c, opts, depth+1)
		if err != nil {
			return nil, err
		}
		if opts.NamedOnly && !child.Has(bridge.FlagNamed) {
			continue
		}
		out.Children = append(out.Children, child)
	}
	return out, nil
}

// Walk calls fn for n and every kept descendant in pre-order.
func Walk(n *Node, fn func(n *Node, depth int)) {
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(n, 0)
}
