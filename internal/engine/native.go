package engine

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/kpumuk/twbridge/internal/bridge"
	"github.com/kpumuk/twbridge/internal/dump"
	"github.com/kpumuk/twbridge/internal/text"
)

type nativeFactory struct {
	b *bridge.Bridge
}

// NewNativeFactory returns the cgo tree-sitter engine. Sessions share one Bridge.
func NewNativeFactory(logger logrus.FieldLogger) Factory {
	var opts []bridge.Option
	if logger != nil {
		opts = append(opts, bridge.WithLogger(logger))
	}
	return nativeFactory{b: bridge.New(opts...)}
}

func (nativeFactory) Name() string {
	return NativeName
}

func (f nativeFactory) NewSession(context.Context) (Session, error) {
	p, err := f.b.NewParser()
	if err != nil {
		return nil, err
	}
	if err := f.b.SetLanguage(p); err != nil {
		_ = f.b.DeleteParser(p)
		return nil, err
	}
	return &nativeSession{b: f.b, parser: p}, nil
}

func (f nativeFactory) Close(context.Context) error {
	f.b.Close()
	return nil
}

type nativeSession struct {
	b      *bridge.Bridge
	parser bridge.ParserHandle
}

func (s *nativeSession) Dump(ctx context.Context, src []byte, opts dump.Options) (*dump.Node, error) {
	tree, err := s.b.Parse(ctx, s.parser, 0, src)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.b.DeleteTree(tree) }()

	root, err := s.b.RootNode(tree)
	if err != nil {
		return nil, err
	}
	if opts.Source == nil {
		opts.Source = src
	}
	return dump.Build[bridge.Node](s.b, root, opts)
}

func (s *nativeSession) Diff(ctx context.Context, prev, next []byte) (DiffResult, error) {
	edit, edited, err := bridge.EditForReplacement(prev, text.Diff(prev, next))
	if err != nil {
		return DiffResult{}, err
	}

	oldTree, err := s.b.Parse(ctx, s.parser, 0, prev)
	if err != nil {
		return DiffResult{}, err
	}
	defer func() { _ = s.b.DeleteTree(oldTree) }()
	if err := s.b.EditTree(oldTree, &edit); err != nil {
		return DiffResult{}, err
	}

	newTree, err := s.b.Parse(ctx, s.parser, oldTree, edited)
	if err != nil {
		return DiffResult{}, err
	}
	defer func() { _ = s.b.DeleteTree(newTree) }()

	ranges, err := s.b.AllChangedRanges(oldTree, newTree)
	if err != nil {
		return DiffResult{}, err
	}
	root, err := s.b.RootNode(newTree)
	if err != nil {
		return DiffResult{}, err
	}
	hasError, err := s.b.HasError(root)
	if err != nil {
		return DiffResult{}, err
	}
	return DiffResult{Edit: edit, Ranges: ranges, HasError: hasError}, nil
}

func (s *nativeSession) Close() error {
	if s.parser == 0 {
		return nil
	}
	err := s.b.DeleteParser(s.parser)
	s.parser = 0
	if errors.Is(err, bridge.ErrStaleHandle) {
		// The factory was closed first and already released the parser.
		return nil
	}
	return err
}
