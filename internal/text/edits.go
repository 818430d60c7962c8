package text

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
)

// ByteEdit replaces the bytes in Span with NewText.
type ByteEdit struct {
	Span    Span
	NewText []byte
}

// ApplyEdits applies non-overlapping byte edits in any order and returns the updated buffer.
func ApplyEdits(src []byte, edits []ByteEdit) ([]byte, error) {
	if len(edits) == 0 {
		return slices.Clone(src), nil
	}
	sorted, err := sortedEdits(ByteOffset(len(src)), edits)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	cursor := ByteOffset(0)
	for _, e := range sorted {
		out.Write(src[cursor:e.Span.Start])
		out.Write(e.NewText)
		cursor = e.Span.End
	}
	out.Write(src[cursor:])
	return out.Bytes(), nil
}

// Diff returns the smallest single edit that turns prev into next, found by trimming the common
// prefix and suffix. Identical inputs yield an empty edit at offset len(prev).
func Diff(prev, next []byte) ByteEdit {
	prefix := 0
	for prefix < len(prev) && prefix < len(next) && prev[prefix] == next[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(prev)-prefix && suffix < len(next)-prefix &&
		prev[len(prev)-1-suffix] == next[len(next)-1-suffix] {
		suffix++
	}
	return ByteEdit{
		Span: Span{
			Start: ByteOffset(prefix),
			End:   ByteOffset(len(prev) - suffix),
		},
		NewText: slices.Clone(next[prefix : len(next)-suffix]),
	}
}

func sortedEdits(srcLen ByteOffset, edits []ByteEdit) ([]ByteEdit, error) {
	if !srcLen.IsValid() {
		return nil, fmt.Errorf("invalid source length: %d", srcLen)
	}
	for _, e := range edits {
		if err := e.Span.Validate(); err != nil {
			return nil, fmt.Errorf("invalid edit span %s: %w", e.Span, err)
		}
		if e.Span.End > srcLen {
			return nil, fmt.Errorf("edit span %s exceeds source length %d", e.Span, srcLen)
		}
	}

	sorted := slices.Clone(edits)
	slices.SortFunc(sorted, func(a, b ByteEdit) int {
		if c := cmp.Compare(a.Span.Start, b.Span.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.Span.End, b.Span.End)
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Span.Start < sorted[i-1].Span.End {
			return nil, fmt.Errorf("overlapping edits: %s and %s", sorted[i-1].Span, sorted[i].Span)
		}
	}
	return sorted, nil
}
