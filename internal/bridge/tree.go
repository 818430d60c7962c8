package bridge

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kpumuk/twbridge/internal/handle"
)

// DeleteTree releases the tree. Nodes taken from it become stale.
func (b *Bridge) DeleteTree(h TreeHandle) error {
	t, err := b.trees.Remove(handle.Handle(h))
	if err != nil {
		return fmt.Errorf("delete tree: %w", err)
	}
	t.Close()
	b.log.WithField("tree", h).Debug("tree deleted")
	return nil
}

// EditTree shifts the tree's byte and point bookkeeping to account for edit. It does not re-lex;
// pass the tree as old to the next Parse for incremental reuse.
func (b *Bridge) EditTree(h TreeHandle, edit *InputEdit) error {
	if edit == nil {
		return fmt.Errorf("edit tree: %w", ErrNilArgument)
	}
	if err := edit.Validate(); err != nil {
		return fmt.Errorf("edit tree: %w", err)
	}
	t, err := b.tree(h)
	if err != nil {
		return fmt.Errorf("edit tree: %w", err)
	}
	t.Edit(edit.toSitter())
	b.log.WithFields(logrus.Fields{
		"tree":  h,
		"start": edit.StartByte,
		"old":   edit.OldEndByte,
		"new":   edit.NewEndByte,
	}).Debug("tree edited")
	return nil
}

// RootNode returns the root node of the tree.
func (b *Bridge) RootNode(h TreeHandle) (Node, error) {
	t, err := b.tree(h)
	if err != nil {
		return Node{}, fmt.Errorf("root node: %w", err)
	}
	return Node{tree: h, inner: *t.RootNode()}, nil
}

// ChangedRanges copies up to len(out) ranges whose structure differs between old and next into
// out, in ascending start-byte order, and returns the total number of ranges. old is normally
// the edited tree passed to the Parse call that produced next.
func (b *Bridge) ChangedRanges(old, next TreeHandle, out []ChangedRange) (uint32, error) {
	oldTree, err := b.tree(old)
	if err != nil {
		return 0, fmt.Errorf("changed ranges: old %w", err)
	}
	nextTree, err := b.tree(next)
	if err != nil {
		return 0, fmt.Errorf("changed ranges: next %w", err)
	}
	if old == next {
		return 0, nil
	}

	ranges := oldTree.ChangedRanges(nextTree)
	for i := range min(len(ranges), len(out)) {
		r := ranges[i]
		out[i] = ChangedRange{
			StartByte:  uint32(r.StartByte),
			EndByte:    uint32(r.EndByte),
			StartPoint: pointFromSitter(r.StartPoint),
			EndPoint:   pointFromSitter(r.EndPoint),
		}
	}
	b.log.WithFields(logrus.Fields{"old": old, "next": next, "ranges": len(ranges)}).Debug("changed ranges computed")
	return uint32(len(ranges)), nil
}

// AllChangedRanges probes the range count and returns every changed range.
func (b *Bridge) AllChangedRanges(old, next TreeHandle) ([]ChangedRange, error) {
	total, err := b.ChangedRanges(old, next, nil)
	if err != nil || total == 0 {
		return nil, err
	}
	out := make([]ChangedRange, total)
	written, err := b.ChangedRanges(old, next, out)
	if err != nil {
		return nil, err
	}
	return out[:min(written, total)], nil
}
