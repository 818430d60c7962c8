package bridge

import (
	"errors"

	"github.com/kpumuk/twbridge/internal/handle"
)

var (
	// ErrNullHandle is returned when a zero parser or tree handle is used.
	ErrNullHandle = handle.ErrNull
	// ErrStaleHandle is returned when a handle was already released or never issued.
	ErrStaleHandle = handle.ErrStale

	// ErrNilArgument is returned when a required pointer argument is nil.
	ErrNilArgument = errors.New("nil argument")
	// ErrInvalidEdit is returned for edits whose end offsets precede the start offset.
	ErrInvalidEdit = errors.New("invalid edit")
	// ErrIndexOutOfRange is returned by single-child accessors for indices past the child count.
	ErrIndexOutOfRange = errors.New("child index out of range")
	// ErrSourceTooLarge is returned when a source buffer does not fit 32-bit offsets.
	ErrSourceTooLarge = errors.New("source exceeds 4 GiB")

	// ErrLanguageRejected is returned when the engine refuses the grammar, usually because of an
	// ABI version mismatch. Callers should not proceed to parse.
	ErrLanguageRejected = errors.New("parser rejected language")
	// ErrNoLanguage is returned when parsing with a parser that has no grammar bound.
	ErrNoLanguage = errors.New("parser has no language")
	// ErrAllocFailed is returned when the engine fails to allocate a parser.
	ErrAllocFailed = errors.New("engine failed to allocate parser")
	// ErrParseFailed is returned when the engine produced no tree.
	ErrParseFailed = errors.New("tree-sitter parse returned nil tree")
)
