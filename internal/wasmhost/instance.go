package wasmhost

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/kpumuk/twbridge/internal/bridge"
	"github.com/kpumuk/twbridge/internal/handle"
)

// Instance is one instantiation of the runtime module with a parser bound to the Thrift grammar.
// An Instance must be used by one goroutine at a time.
type Instance struct {
	rt     *Runtime
	module api.Module
	log    logrus.FieldLogger

	malloc api.Function
	free   api.Function
	strlen api.Function

	parserDelete      api.Function
	parserParseString api.Function

	treeDelete        api.Function
	treeEdit          api.Function
	treeChangedRanges api.Function
	treeRootNode      api.Function
	treeExportNodes   api.Function // nil when the module lacks it

	nodeInspect  api.Function
	nodeChildren api.Function
	nodeType     api.Function

	parser uint32
	trees  handle.Arena[uint32]

	// Scratch records in linear memory, reused by node calls.
	nodePtr uint32
	infoPtr uint32
}

// Node is a copy of an engine node record. It is valid while its tree handle is live.
type Node struct {
	tree bridge.TreeHandle
	raw  [nodeSize]byte
}

// Tree returns the handle of the tree the node belongs to.
func (n Node) Tree() bridge.TreeHandle {
	return n.tree
}

// NewInstance instantiates the module and binds a fresh parser to the Thrift grammar.
func (r *Runtime) NewInstance(ctx context.Context) (*Instance, error) {
	if r.runtime == nil {
		return nil, ErrClosed
	}
	name := fmt.Sprintf("thrift-parser-%d", r.seq.Add(1))
	mod, err := r.runtime.InstantiateModule(ctx, r.compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return nil, fmt.Errorf("instantiate parser module: %w", err)
	}

	in := &Instance{
		rt:     r,
		module: mod,
		log:    r.log.WithField("module", name),

		malloc: mod.ExportedFunction("malloc"),
		free:   mod.ExportedFunction("free"),
		strlen: mod.ExportedFunction("strlen"),

		parserDelete:      mod.ExportedFunction("tw_parser_delete"),
		parserParseString: mod.ExportedFunction("tw_parser_parse_string"),

		treeDelete:        mod.ExportedFunction("tw_tree_delete"),
		treeEdit:          mod.ExportedFunction("tw_tree_edit"),
		treeChangedRanges: mod.ExportedFunction("tw_tree_changed_ranges"),
		treeRootNode:      mod.ExportedFunction("tw_tree_root_node"),
		treeExportNodes:   mod.ExportedFunction(optionalExportNodes),

		nodeInspect:  mod.ExportedFunction("tw_node_inspect"),
		nodeChildren: mod.ExportedFunction("tw_node_children"),
		nodeType:     mod.ExportedFunction("tw_node_type"),
	}

	parser, err := callU32(ctx, mod.ExportedFunction("tw_parser_new"))
	if err != nil || parser == 0 {
		_ = mod.Close(ctx)
		if err != nil {
			return nil, fmt.Errorf("create parser: %w", err)
		}
		return nil, bridge.ErrAllocFailed
	}
	in.parser = parser

	ok, err := callU32(ctx, mod.ExportedFunction("tw_parser_set_language"), uint64(parser))
	if err != nil {
		_ = in.Close(ctx)
		return nil, fmt.Errorf("set parser language: %w", err)
	}
	if ok == 0 {
		_ = in.Close(ctx)
		return nil, fmt.Errorf("%w: %w", bridge.ErrLanguageRejected, ErrABIMismatch)
	}

	if in.nodePtr, err = in.alloc(ctx, nodeSize); err != nil {
		_ = in.Close(ctx)
		return nil, err
	}
	if in.infoPtr, err = in.alloc(ctx, nodeInfoSize); err != nil {
		_ = in.Close(ctx)
		return nil, err
	}

	in.log.Debug("parser created")
	return in, nil
}

// Close deletes every live tree and the parser, then closes the module.
func (in *Instance) Close(ctx context.Context) error {
	if in == nil || in.module == nil {
		return nil
	}
	trees := in.trees.Drain()
	for _, t := range trees {
		_, _ = in.treeDelete.Call(ctx, uint64(t))
	}
	if in.parser != 0 {
		_, _ = in.parserDelete.Call(ctx, uint64(in.parser))
		in.parser = 0
	}
	in.freePtr(in.nodePtr)
	in.freePtr(in.infoPtr)
	in.nodePtr, in.infoPtr = 0, 0

	err := in.module.Close(ctx)
	in.module = nil
	in.log.WithField("trees", len(trees)).Debug("instance closed")
	return err
}

// Parse parses src, reusing old when it is non-zero. old must have been edited to match src.
func (in *Instance) Parse(ctx context.Context, old bridge.TreeHandle, src []byte) (bridge.TreeHandle, error) {
	if in.module == nil {
		return 0, ErrClosed
	}
	if uint64(len(src)) > math.MaxUint32 {
		return 0, bridge.ErrSourceTooLarge
	}
	var oldPtr uint32
	if old != 0 {
		var err error
		if oldPtr, err = in.tree(old); err != nil {
			return 0, fmt.Errorf("parse: old %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	srcPtr, err := in.allocBytes(ctx, src)
	if err != nil {
		return 0, fmt.Errorf("parse: %w", err)
	}
	defer in.freePtr(srcPtr)

	treePtr, err := callU32(ctx, in.parserParseString, uint64(in.parser), uint64(oldPtr), uint64(srcPtr), uint64(len(src)))
	if err != nil {
		return 0, fmt.Errorf("parse string: %w", err)
	}
	if treePtr == 0 {
		return 0, bridge.ErrParseFailed
	}
	h := bridge.TreeHandle(in.trees.Insert(treePtr))
	in.log.WithFields(logrus.Fields{"tree": h, "bytes": len(src), "incremental": oldPtr != 0}).Debug("tree parsed")
	return h, nil
}

// DeleteTree releases the tree.
func (in *Instance) DeleteTree(ctx context.Context, h bridge.TreeHandle) error {
	ptr, err := in.trees.Remove(handle.Handle(h))
	if err != nil {
		return fmt.Errorf("delete tree: %w", err)
	}
	if in.module == nil {
		return ErrClosed
	}
	if _, err := in.treeDelete.Call(ctx, uint64(ptr)); err != nil {
		return fmt.Errorf("delete tree: %w", err)
	}
	return nil
}

// EditTree applies edit to the tree's position bookkeeping.
func (in *Instance) EditTree(ctx context.Context, h bridge.TreeHandle, edit *bridge.InputEdit) error {
	if edit == nil {
		return fmt.Errorf("edit tree: %w", bridge.ErrNilArgument)
	}
	if err := edit.Validate(); err != nil {
		return fmt.Errorf("edit tree: %w", err)
	}
	treePtr, err := in.tree(h)
	if err != nil {
		return fmt.Errorf("edit tree: %w", err)
	}

	rec := encodeInputEdit(*edit)
	editPtr, err := in.allocBytes(ctx, rec[:])
	if err != nil {
		return fmt.Errorf("edit tree: %w", err)
	}
	defer in.freePtr(editPtr)

	if _, err := in.treeEdit.Call(ctx, uint64(treePtr), uint64(editPtr)); err != nil {
		return fmt.Errorf("apply tree edit: %w", err)
	}
	return nil
}

// ChangedRanges copies up to len(out) changed ranges between old and next into out and returns
// the total count.
func (in *Instance) ChangedRanges(ctx context.Context, old, next bridge.TreeHandle, out []bridge.ChangedRange) (uint32, error) {
	oldPtr, err := in.tree(old)
	if err != nil {
		return 0, fmt.Errorf("changed ranges: old %w", err)
	}
	nextPtr, err := in.tree(next)
	if err != nil {
		return 0, fmt.Errorf("changed ranges: next %w", err)
	}
	if old == next {
		return 0, nil
	}

	total, err := callU32(ctx, in.treeChangedRanges, uint64(oldPtr), uint64(nextPtr), 0, 0)
	if err != nil {
		return 0, fmt.Errorf("count changed ranges: %w", err)
	}
	n := capped(total, len(out))
	if n == 0 {
		return total, nil
	}

	size := n * changedRangeSize
	buf, err := in.alloc(ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("changed ranges: %w", err)
	}
	defer in.freePtr(buf)

	if _, err := in.treeChangedRanges.Call(ctx, uint64(oldPtr), uint64(nextPtr), uint64(buf), uint64(n)); err != nil {
		return 0, fmt.Errorf("read changed ranges: %w", err)
	}
	raw, err := in.read(buf, size)
	if err != nil {
		return 0, err
	}
	if err := decodeChangedRanges(raw, out[:n]); err != nil {
		return 0, err
	}
	return total, nil
}

// AllChangedRanges probes the range count and returns every changed range.
func (in *Instance) AllChangedRanges(ctx context.Context, old, next bridge.TreeHandle) ([]bridge.ChangedRange, error) {
	total, err := in.ChangedRanges(ctx, old, next, nil)
	if err != nil || total == 0 {
		return nil, err
	}
	out := make([]bridge.ChangedRange, total)
	if _, err := in.ChangedRanges(ctx, old, next, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RootNode returns the root node of the tree.
func (in *Instance) RootNode(ctx context.Context, h bridge.TreeHandle) (Node, error) {
	treePtr, err := in.tree(h)
	if err != nil {
		return Node{}, fmt.Errorf("root node: %w", err)
	}
	if _, err := in.treeRootNode.Call(ctx, uint64(treePtr), uint64(in.nodePtr)); err != nil {
		return Node{}, fmt.Errorf("root node: %w", err)
	}
	raw, err := in.read(in.nodePtr, nodeSize)
	if err != nil {
		return Node{}, err
	}
	n := Node{tree: h}
	copy(n.raw[:], raw)
	return n, nil
}

// Inspect reads the symbol, byte span, child count, and flags of n.
func (in *Instance) Inspect(ctx context.Context, n Node) (bridge.NodeInfo, error) {
	if err := in.loadNode(n); err != nil {
		return bridge.NodeInfo{}, fmt.Errorf("inspect node: %w", err)
	}
	if _, err := in.nodeInspect.Call(ctx, uint64(in.nodePtr), uint64(in.infoPtr)); err != nil {
		return bridge.NodeInfo{}, fmt.Errorf("inspect node: %w", err)
	}
	raw, err := in.read(in.infoPtr, nodeInfoSize)
	if err != nil {
		return bridge.NodeInfo{}, err
	}
	return decodeNodeInfo(raw)
}

// NodeType returns the grammar type name of n. Names are cached per symbol on the Runtime.
func (in *Instance) NodeType(ctx context.Context, n Node) (string, error) {
	info, err := in.Inspect(ctx, n)
	if err != nil {
		return "", err
	}
	if kind, ok := in.rt.lookupKind(info.Symbol); ok {
		return kind, nil
	}
	// Inspect left n in the node scratch record.
	ptr, err := callU32(ctx, in.nodeType, uint64(in.nodePtr))
	if err != nil {
		return "", fmt.Errorf("node type: %w", err)
	}
	kind, err := in.readCString(ctx, ptr)
	if err != nil {
		return "", fmt.Errorf("node type: %w", err)
	}
	in.rt.rememberKind(info.Symbol, kind)
	return kind, nil
}

// Children writes up to len(out) direct children of n into out and returns the total child
// count. With an empty out it only counts.
func (in *Instance) Children(ctx context.Context, n Node, out []Node) (uint32, error) {
	if err := in.loadNode(n); err != nil {
		return 0, fmt.Errorf("children: %w", err)
	}
	total, err := callU32(ctx, in.nodeChildren, uint64(in.nodePtr), 0, 0)
	if err != nil {
		return 0, fmt.Errorf("count children: %w", err)
	}
	count := capped(total, len(out))
	if count == 0 {
		return total, nil
	}

	size := count * nodeSize
	buf, err := in.alloc(ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("children: %w", err)
	}
	defer in.freePtr(buf)

	if _, err := in.nodeChildren.Call(ctx, uint64(in.nodePtr), uint64(buf), uint64(count)); err != nil {
		return 0, fmt.Errorf("read children: %w", err)
	}
	raw, err := in.read(buf, size)
	if err != nil {
		return 0, err
	}
	for i := range int(count) {
		out[i] = Node{tree: n.tree}
		copy(out[i].raw[:], raw[i*nodeSize:(i+1)*nodeSize])
	}
	return total, nil
}

// Stats reports the number of live tree handles.
func (in *Instance) Stats() int {
	return in.trees.Len()
}

func (in *Instance) tree(h bridge.TreeHandle) (uint32, error) {
	if in.module == nil {
		return 0, ErrClosed
	}
	return in.trees.Get(handle.Handle(h))
}

// loadNode checks that n's tree is live and copies n into the node scratch record.
func (in *Instance) loadNode(n Node) error {
	if _, err := in.tree(n.tree); err != nil {
		return err
	}
	return in.write(in.nodePtr, n.raw[:])
}

// capped returns min(total, capacity).
func capped(total uint32, capacity int) uint32 {
	if uint64(capacity) < uint64(total) {
		return uint32(capacity)
	}
	return total
}
