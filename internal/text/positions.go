// Package text defines source offsets, spans, and byte-based points used to describe edits.
package text

import "fmt"

// ByteOffset is a byte index into a source buffer.
type ByteOffset int

// IsValid reports whether the offset is non-negative.
func (o ByteOffset) IsValid() bool {
	return o >= 0
}

// Span is a half-open byte range [Start, End).
type Span struct {
	Start ByteOffset // inclusive
	End   ByteOffset // exclusive
}

// Validate reports an error if the span is invalid.
func (s Span) Validate() error {
	if !s.Start.IsValid() {
		return fmt.Errorf("invalid span start: %d", s.Start)
	}
	if !s.End.IsValid() {
		return fmt.Errorf("invalid span end: %d", s.End)
	}
	if s.End < s.Start {
		return fmt.Errorf("invalid span bounds: end (%d) < start (%d)", s.End, s.Start)
	}
	return nil
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// Point is a byte-based source location. Both fields are 0-based.
type Point struct {
	Line   int
	Column int // byte column
}
