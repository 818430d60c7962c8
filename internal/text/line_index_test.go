package text

import "testing"

func TestLineIndexOffsetPointLF(t *testing.T) {
	t.Parallel()

	idx := NewLineIndex([]byte("ab\ncd"))

	tests := map[ByteOffset]Point{
		0: {Line: 0, Column: 0},
		2: {Line: 0, Column: 2}, // '\n'
		3: {Line: 1, Column: 0},
		5: {Line: 1, Column: 2}, // EOF
	}
	for off, want := range tests {
		got, err := idx.OffsetToPoint(off)
		if err != nil {
			t.Fatalf("OffsetToPoint(%d) error = %v", off, err)
		}
		if got != want {
			t.Fatalf("OffsetToPoint(%d) = %+v, want %+v", off, got, want)
		}
	}
}

func TestLineIndexCRLFKeepsCarriageReturnOnLine(t *testing.T) {
	t.Parallel()

	idx := NewLineIndex([]byte("a\r\nb\n\nc"))

	cases := []struct {
		off  ByteOffset
		want Point
	}{
		{off: 1, want: Point{Line: 0, Column: 1}}, // '\r'
		{off: 2, want: Point{Line: 0, Column: 2}}, // '\n'
		{off: 3, want: Point{Line: 1, Column: 0}},
		{off: 5, want: Point{Line: 2, Column: 0}}, // empty line
		{off: 7, want: Point{Line: 3, Column: 1}}, // EOF
	}
	for _, tc := range cases {
		got, err := idx.OffsetToPoint(tc.off)
		if err != nil {
			t.Fatalf("OffsetToPoint(%d) error = %v", tc.off, err)
		}
		if got != tc.want {
			t.Fatalf("OffsetToPoint(%d) = %+v, want %+v", tc.off, got, tc.want)
		}
	}
}

func TestLineIndexValidation(t *testing.T) {
	t.Parallel()

	idx := NewLineIndex([]byte("x\ny"))

	if _, err := idx.OffsetToPoint(-1); err == nil {
		t.Fatal("expected error for negative offset")
	}
	if _, err := idx.OffsetToPoint(4); err == nil {
		t.Fatal("expected error for offset past EOF")
	}

	var nilIdx *LineIndex
	if _, err := nilIdx.OffsetToPoint(0); err == nil {
		t.Fatal("expected error for nil index")
	}
}
