// Package bridge exposes tree-sitter parsers, trees, and nodes for the Thrift grammar behind
// generation-tagged handles.
//
// The engine owns all parser and tree memory. A Bridge only tracks which handles are live, so
// that use after release is reported as ErrStaleHandle instead of touching freed memory.
// Buffer-filling operations (ChangedRanges, Children, NamedChildren, ExportNodes) write at most
// len(out) records and always return the true total; an empty out is a count-only probe.
//
// A Bridge adds no synchronization of engine objects: a parser handle must be used by one
// goroutine at a time, and a tree must not be edited or deleted while other goroutines read it.
package bridge

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"
	sitter "github.com/tree-sitter/go-tree-sitter"

	treesitterthrift "github.com/kpumuk/twbridge/grammar/tree-sitter-thrift"
	"github.com/kpumuk/twbridge/internal/handle"
)

// LanguageFunc returns the grammar bound by SetLanguage.
type LanguageFunc func() *sitter.Language

// Option configures a Bridge.
type Option func(*Bridge)

// WithLanguage replaces the Thrift grammar with another language.
func WithLanguage(fn LanguageFunc) Option {
	return func(b *Bridge) {
		if fn != nil {
			b.language = fn
		}
	}
}

// WithLogger routes lifecycle debug logs to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.log = logger
		}
	}
}

// Bridge owns the handle tables for parsers and trees.
type Bridge struct {
	language LanguageFunc
	log      logrus.FieldLogger

	parsers handle.Arena[*sitter.Parser]
	trees   handle.Arena[*sitter.Tree]
}

// New returns a Bridge bound to the Thrift grammar unless WithLanguage says otherwise.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		language: treesitterthrift.Language,
		log:      discardLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Close releases every live tree and parser. Handles issued before Close become stale.
func (b *Bridge) Close() {
	trees := b.trees.Drain()
	for _, t := range trees {
		t.Close()
	}
	parsers := b.parsers.Drain()
	for _, p := range parsers {
		p.Close()
	}
	b.log.WithFields(logrus.Fields{"trees": len(trees), "parsers": len(parsers)}).Debug("bridge closed")
}

// Stats reports the number of live parser and tree handles.
func (b *Bridge) Stats() (parsers, trees int) {
	return b.parsers.Len(), b.trees.Len()
}

// NewParser allocates an engine parser with no grammar bound.
func (b *Bridge) NewParser() (ParserHandle, error) {
	p := sitter.NewParser()
	if p == nil {
		return 0, ErrAllocFailed
	}
	h := ParserHandle(b.parsers.Insert(p))
	b.log.WithField("parser", h).Debug("parser created")
	return h, nil
}

// DeleteParser releases the parser. Trees it produced stay valid.
func (b *Bridge) DeleteParser(h ParserHandle) error {
	p, err := b.parsers.Remove(handle.Handle(h))
	if err != nil {
		return fmt.Errorf("delete parser: %w", err)
	}
	p.Close()
	b.log.WithField("parser", h).Debug("parser deleted")
	return nil
}

// SetLanguage binds the bridge grammar to the parser.
func (b *Bridge) SetLanguage(h ParserHandle) error {
	p, err := b.parser(h)
	if err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	lang := b.language()
	if lang == nil {
		return fmt.Errorf("%w: nil language", ErrLanguageRejected)
	}
	if err := p.SetLanguage(lang); err != nil {
		return fmt.Errorf("%w: %w", ErrLanguageRejected, err)
	}
	return nil
}

// Parse parses src. A zero old performs a full parse; otherwise old must have been edited to
// match src and is reused for an incremental parse. Cancelling ctx aborts the parse.
func (b *Bridge) Parse(ctx context.Context, h ParserHandle, old TreeHandle, src []byte) (TreeHandle, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if uint64(len(src)) > math.MaxUint32 {
		return 0, ErrSourceTooLarge
	}
	p, err := b.parser(h)
	if err != nil {
		return 0, fmt.Errorf("parse: %w", err)
	}
	if p.Language() == nil {
		return 0, ErrNoLanguage
	}

	var oldTree *sitter.Tree
	if old != 0 {
		oldTree, err = b.tree(old)
		if err != nil {
			return 0, fmt.Errorf("parse: old %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	raw := p.ParseWithOptions(func(i int, _ sitter.Point) []byte {
		if i >= len(src) {
			return nil
		}
		return src[i:]
	}, oldTree, &sitter.ParseOptions{
		ProgressCallback: func(sitter.ParseState) bool {
			return ctx.Err() != nil
		},
	})
	// A halted parser resumes the aborted document on its next call unless reset.
	if err := ctx.Err(); err != nil {
		if raw != nil {
			raw.Close()
		}
		p.Reset()
		return 0, err
	}
	if raw == nil {
		p.Reset()
		return 0, ErrParseFailed
	}

	th := TreeHandle(b.trees.Insert(raw))
	b.log.WithFields(logrus.Fields{
		"parser":      h,
		"tree":        th,
		"bytes":       len(src),
		"incremental": oldTree != nil,
	}).Debug("tree parsed")
	return th, nil
}

func (b *Bridge) parser(h ParserHandle) (*sitter.Parser, error) {
	return b.parsers.Get(handle.Handle(h))
}

func (b *Bridge) tree(h TreeHandle) (*sitter.Tree, error) {
	return b.trees.Get(handle.Handle(h))
}
