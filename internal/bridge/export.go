package bridge

import "fmt"

// ExportNodes writes up to len(out) nodes of the tree in pre-order, each with the index of its
// parent record, and returns the total node count. With an empty out it only counts.
func (b *Bridge) ExportNodes(h TreeHandle, out []FlatNode) (uint32, error) {
	t, err := b.tree(h)
	if err != nil {
		return 0, fmt.Errorf("export nodes: %w", err)
	}
	root := t.RootNode()
	if len(out) == 0 {
		return uint32(root.DescendantCount()), nil
	}

	cursor := root.Walk()
	defer cursor.Close()

	// parents[len(parents)-1] is the record index of the cursor node's parent.
	parents := []int32{-1}
	var idx int32
	for {
		if int(idx) < len(out) {
			n := cursor.Node()
			out[idx] = FlatNode{
				NodeInfo: infoOf(n),
				Type:     n.Kind(),
				Parent:   parents[len(parents)-1],
			}
		}
		self := idx
		idx++

		if cursor.GotoFirstChild() {
			parents = append(parents, self)
			continue
		}
		for !cursor.GotoNextSibling() {
			if !cursor.GotoParent() {
				return uint32(idx), nil
			}
			parents = parents[:len(parents)-1]
		}
	}
}

// AllNodes probes the node count and exports the whole tree.
func (b *Bridge) AllNodes(h TreeHandle) ([]FlatNode, error) {
	total, err := b.ExportNodes(h, nil)
	if err != nil {
		return nil, err
	}
	out := make([]FlatNode, total)
	written, err := b.ExportNodes(h, out)
	if err != nil {
		return nil, err
	}
	return out[:min(written, total)], nil
}
