package bridge

import (
	"fmt"
	"math"

	"github.com/kpumuk/twbridge/internal/text"
)

// EditForReplacement builds the InputEdit describing e applied to src and returns the edited
// source alongside it.
func EditForReplacement(src []byte, e text.ByteEdit) (InputEdit, []byte, error) {
	next, err := text.ApplyEdits(src, []text.ByteEdit{e})
	if err != nil {
		return InputEdit{}, nil, fmt.Errorf("%w: %w", ErrInvalidEdit, err)
	}
	if uint64(len(src)) > math.MaxUint32 || uint64(len(next)) > math.MaxUint32 {
		return InputEdit{}, nil, ErrSourceTooLarge
	}

	prevIdx := text.NewLineIndex(src)
	nextIdx := text.NewLineIndex(next)
	newEnd := e.Span.Start + text.ByteOffset(len(e.NewText))

	start, err := prevIdx.OffsetToPoint(e.Span.Start)
	if err != nil {
		return InputEdit{}, nil, err
	}
	oldEnd, err := prevIdx.OffsetToPoint(e.Span.End)
	if err != nil {
		return InputEdit{}, nil, err
	}
	newEndPoint, err := nextIdx.OffsetToPoint(newEnd)
	if err != nil {
		return InputEdit{}, nil, err
	}

	return InputEdit{
		StartByte:   uint32(e.Span.Start),
		OldEndByte:  uint32(e.Span.End),
		NewEndByte:  uint32(newEnd),
		StartPoint:  pointFromText(start),
		OldEndPoint: pointFromText(oldEnd),
		NewEndPoint: pointFromText(newEndPoint),
	}, next, nil
}

func pointFromText(p text.Point) Point {
	return Point{Row: uint32(p.Line), Column: uint32(p.Column)}
}
