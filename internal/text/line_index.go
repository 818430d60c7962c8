package text

import (
	"errors"
	"fmt"
	"slices"
)

var errNilLineIndex = errors.New("nil LineIndex")

// LineIndex maps byte offsets to line/column points over a source buffer.
//
// Lines are split on '\n' only; a preceding '\r' stays part of the line. Columns count bytes,
// which matches how tree-sitter reports points for UTF-8 input.
type LineIndex struct {
	src        []byte
	lineStarts []ByteOffset
}

// NewLineIndex builds an index over src.
func NewLineIndex(src []byte) *LineIndex {
	starts := []ByteOffset{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, ByteOffset(i+1))
		}
	}
	return &LineIndex{
		src:        src,
		lineStarts: starts,
	}
}

// OffsetToPoint converts a byte offset to a point. The offset of a '\n' byte belongs to the line
// it terminates.
func (li *LineIndex) OffsetToPoint(off ByteOffset) (Point, error) {
	if li == nil {
		return Point{}, errNilLineIndex
	}
	if !off.IsValid() || off > ByteOffset(len(li.src)) {
		return Point{}, fmt.Errorf("offset out of range: %d (source length %d)", off, len(li.src))
	}
	// largest i such that lineStarts[i] <= off
	line, found := slices.BinarySearch(li.lineStarts, off)
	if !found {
		line--
	}
	return Point{
		Line:   line,
		Column: int(off - li.lineStarts[line]),
	}, nil
}
