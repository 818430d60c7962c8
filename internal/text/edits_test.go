package text

import (
	"bytes"
	"testing"
)

func TestApplyEditsUnsortedAndTouching(t *testing.T) {
	t.Parallel()

	src := []byte("abcdef")
	edits := []ByteEdit{
		{Span: Span{Start: 6, End: 6}, NewText: []byte(">")},
		{Span: Span{Start: 4, End: 6}, NewText: []byte("XY")},
		{Span: Span{Start: 1, End: 2}}, // delete "b"
		{Span: Span{Start: 0, End: 0}, NewText: []byte("<")},
	}
	got, err := ApplyEdits(src, edits)
	if err != nil {
		t.Fatalf("ApplyEdits error = %v", err)
	}
	if string(got) != "<acdXY>" {
		t.Fatalf("ApplyEdits() = %q, want %q", got, "<acdXY>")
	}
}

func TestApplyEditsNoEditsReturnsCopy(t *testing.T) {
	t.Parallel()

	src := []byte("abc")
	got, err := ApplyEdits(src, nil)
	if err != nil {
		t.Fatalf("ApplyEdits error = %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Fatalf("ApplyEdits() = %q, want %q", got, src)
	}
	if &got[0] == &src[0] {
		t.Fatal("ApplyEdits() should return a copy when no edits are provided")
	}
}

func TestDiff(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		prev, next string
		want       ByteEdit
	}{
		"insert":    {prev: "ac", next: "abc", want: ByteEdit{Span: Span{Start: 1, End: 1}, NewText: []byte("b")}},
		"delete":    {prev: "abc", next: "ac", want: ByteEdit{Span: Span{Start: 1, End: 2}, NewText: []byte{}}},
		"replace":   {prev: "name", next: "nope", want: ByteEdit{Span: Span{Start: 1, End: 3}, NewText: []byte("op")}},
		"append":    {prev: "ab", next: "abcd", want: ByteEdit{Span: Span{Start: 2, End: 2}, NewText: []byte("cd")}},
		"repeated":  {prev: "aaa", next: "aaaa", want: ByteEdit{Span: Span{Start: 3, End: 3}, NewText: []byte("a")}},
		"identical": {prev: "same", next: "same", want: ByteEdit{Span: Span{Start: 4, End: 4}, NewText: []byte{}}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := Diff([]byte(tc.prev), []byte(tc.next))
			if got.Span != tc.want.Span || !bytes.Equal(got.NewText, tc.want.NewText) {
				t.Fatalf("Diff(%q, %q) = %v %q, want %v %q", tc.prev, tc.next, got.Span, got.NewText, tc.want.Span, tc.want.NewText)
			}
			applied, err := ApplyEdits([]byte(tc.prev), []ByteEdit{got})
			if err != nil {
				t.Fatalf("ApplyEdits error = %v", err)
			}
			if string(applied) != tc.next {
				t.Fatalf("ApplyEdits(Diff()) = %q, want %q", applied, tc.next)
			}
			if tc.prev == tc.next && (got.Span.Start != got.Span.End || len(got.NewText) != 0) {
				t.Fatal("expected no-op edit for identical inputs")
			}
		})
	}
}
