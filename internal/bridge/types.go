package bridge

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/kpumuk/twbridge/internal/handle"
)

// ParserHandle identifies a parser owned by a Bridge. The zero value is the null handle.
type ParserHandle handle.Handle

// TreeHandle identifies a syntax tree owned by a Bridge. The zero value is the null handle.
type TreeHandle handle.Handle

func (h ParserHandle) String() string { return "parser " + handle.Handle(h).String() }

func (h TreeHandle) String() string { return "tree " + handle.Handle(h).String() }

// Point is a 0-based row and byte column.
type Point struct {
	Row    uint32
	Column uint32
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Column)
}

func pointFromSitter(p sitter.Point) Point {
	return Point{Row: uint32(p.Row), Column: uint32(p.Column)}
}

func (p Point) toSitter() sitter.Point {
	return sitter.Point{Row: uint(p.Row), Column: uint(p.Column)}
}

// InputEdit describes one textual replacement in byte and point coordinates.
//
// Points must agree with the byte offsets under the engine's line rules; the bridge does not
// check that.
type InputEdit struct {
	StartByte   uint32
	OldEndByte  uint32
	NewEndByte  uint32
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// Validate checks the byte ordering invariants of the edit.
func (e InputEdit) Validate() error {
	if e.OldEndByte < e.StartByte {
		return fmt.Errorf("%w: old end byte %d before start byte %d", ErrInvalidEdit, e.OldEndByte, e.StartByte)
	}
	if e.NewEndByte < e.StartByte {
		return fmt.Errorf("%w: new end byte %d before start byte %d", ErrInvalidEdit, e.NewEndByte, e.StartByte)
	}
	return nil
}

func (e InputEdit) toSitter() *sitter.InputEdit {
	return &sitter.InputEdit{
		StartByte:      uint(e.StartByte),
		OldEndByte:     uint(e.OldEndByte),
		NewEndByte:     uint(e.NewEndByte),
		StartPosition:  e.StartPoint.toSitter(),
		OldEndPosition: e.OldEndPoint.toSitter(),
		NewEndPosition: e.NewEndPoint.toSitter(),
	}
}

// ChangedRange is a contiguous span whose syntactic structure differs between two trees.
type ChangedRange struct {
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
}

func (r ChangedRange) String() string {
	return fmt.Sprintf("[%d,%d) %s-%s", r.StartByte, r.EndByte, r.StartPoint, r.EndPoint)
}

// NodeFlags packs the boolean facts of a node.
type NodeFlags uint32

const (
	// FlagNamed marks nodes for rules the grammar names, as opposed to anonymous tokens.
	FlagNamed NodeFlags = 1 << iota
	// FlagError marks a node that is itself a syntax error region.
	FlagError
	// FlagMissing marks a node synthesized by error recovery for a token the input omitted.
	FlagMissing
	// FlagExtra marks a node outside the grammar's normal structure, such as a comment.
	FlagExtra
	// FlagHasError is set when the node or any descendant is an error or missing node.
	FlagHasError
)

var flagNames = []struct {
	flag NodeFlags
	name string
}{
	{FlagNamed, "named"},
	{FlagError, "error"},
	{FlagMissing, "missing"},
	{FlagExtra, "extra"},
	{FlagHasError, "has-error"},
}

// Has reports whether every bit of flag is set.
func (f NodeFlags) Has(flag NodeFlags) bool {
	return f&flag == flag
}

// Names returns the names of the set flags in bit order.
func (f NodeFlags) Names() []string {
	var out []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			out = append(out, fn.name)
		}
	}
	return out
}

func (f NodeFlags) String() string {
	if f == 0 {
		return "none"
	}
	return strings.Join(f.Names(), "|")
}

func flagsOf(n *sitter.Node) NodeFlags {
	var flags NodeFlags
	if n.IsNamed() {
		flags |= FlagNamed
	}
	if n.IsError() {
		flags |= FlagError
	}
	if n.IsMissing() {
		flags |= FlagMissing
	}
	if n.IsExtra() {
		flags |= FlagExtra
	}
	if n.HasError() {
		flags |= FlagHasError
	}
	return flags
}

// NodeInfo is a consolidated snapshot of one node.
type NodeInfo struct {
	Symbol     uint32
	StartByte  uint32
	EndByte    uint32
	ChildCount uint32
	Flags      NodeFlags
}

// IsNamed reports whether FlagNamed is set.
func (i NodeInfo) IsNamed() bool { return i.Flags.Has(FlagNamed) }

// IsError reports whether FlagError is set.
func (i NodeInfo) IsError() bool { return i.Flags.Has(FlagError) }

// IsMissing reports whether FlagMissing is set.
func (i NodeInfo) IsMissing() bool { return i.Flags.Has(FlagMissing) }

// IsExtra reports whether FlagExtra is set.
func (i NodeInfo) IsExtra() bool { return i.Flags.Has(FlagExtra) }

// HasError reports whether FlagHasError is set.
func (i NodeInfo) HasError() bool { return i.Flags.Has(FlagHasError) }

func infoOf(n *sitter.Node) NodeInfo {
	return NodeInfo{
		Symbol:     uint32(n.KindId()),
		StartByte:  uint32(n.StartByte()),
		EndByte:    uint32(n.EndByte()),
		ChildCount: uint32(n.ChildCount()),
		Flags:      flagsOf(n),
	}
}

// FlatNode is one record of a pre-order tree export.
type FlatNode struct {
	NodeInfo
	Type string
	// Parent is the index of the parent record, or -1 for the root.
	Parent int32
}
