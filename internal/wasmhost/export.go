package wasmhost

import (
	"context"
	"fmt"

	"github.com/kpumuk/twbridge/internal/bridge"
)

// ExportNodes writes up to len(out) nodes of the tree in pre-order, each with the index of its
// parent record, and returns the total node count. With an empty out it only counts.
func (in *Instance) ExportNodes(ctx context.Context, h bridge.TreeHandle, out []bridge.FlatNode) (uint32, error) {
	treePtr, err := in.tree(h)
	if err != nil {
		return 0, fmt.Errorf("export nodes: %w", err)
	}
	if in.treeExportNodes == nil {
		root, err := in.RootNode(ctx, h)
		if err != nil {
			return 0, fmt.Errorf("export nodes: %w", err)
		}
		return in.walkExport(ctx, root, out)
	}

	total, err := callU32(ctx, in.treeExportNodes, uint64(treePtr), 0, 0)
	if err != nil {
		return 0, fmt.Errorf("count nodes: %w", err)
	}
	count := capped(total, len(out))
	if count == 0 {
		return total, nil
	}

	size := count * flatNodeSize
	buf, err := in.alloc(ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("export nodes: %w", err)
	}
	defer in.freePtr(buf)

	if _, err := in.treeExportNodes.Call(ctx, uint64(treePtr), uint64(buf), uint64(count)); err != nil {
		return 0, fmt.Errorf("export nodes: %w", err)
	}
	raw, err := in.read(buf, size)
	if err != nil {
		return 0, err
	}
	for i := range int(count) {
		n, typePtr, err := decodeFlatNode(raw[i*flatNodeSize : (i+1)*flatNodeSize])
		if err != nil {
			return 0, err
		}
		kind, ok := in.rt.lookupKind(n.Symbol)
		if !ok {
			if kind, err = in.readCString(ctx, typePtr); err != nil {
				return 0, fmt.Errorf("node type for symbol %d: %w", n.Symbol, err)
			}
			in.rt.rememberKind(n.Symbol, kind)
		}
		n.Type = kind
		out[i] = n
	}
	return total, nil
}

// AllNodes probes the node count and exports the whole tree.
func (in *Instance) AllNodes(ctx context.Context, h bridge.TreeHandle) ([]bridge.FlatNode, error) {
	total, err := in.ExportNodes(ctx, h, nil)
	if err != nil {
		return nil, err
	}
	out := make([]bridge.FlatNode, total)
	written, err := in.ExportNodes(ctx, h, out)
	if err != nil {
		return nil, err
	}
	return out[:min(written, total)], nil
}

func (in *Instance) walkExport(ctx context.Context, root Node, out []bridge.FlatNode) (uint32, error) {
	type frame struct {
		node   Node
		parent int32
	}
	stack := []frame{{node: root, parent: -1}}
	var idx int32
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		info, err := in.Inspect(ctx, f.node)
		if err != nil {
			return 0, err
		}
		if int(idx) < len(out) {
			kind, err := in.NodeType(ctx, f.node)
			if err != nil {
				return 0, err
			}
			out[idx] = bridge.FlatNode{NodeInfo: info, Type: kind, Parent: f.parent}
		}
		self := idx
		idx++

		if info.ChildCount == 0 {
			continue
		}
		children := make([]Node, info.ChildCount)
		if _, err := in.Children(ctx, f.node, children); err != nil {
			return 0, err
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: children[i], parent: self})
		}
	}
	return uint32(idx), nil
}
