package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/kpumuk/twbridge/internal/bridge"
	"github.com/kpumuk/twbridge/internal/dump"
	"github.com/kpumuk/twbridge/internal/text"
	"github.com/kpumuk/twbridge/internal/wasmhost"
)

type wasmFactory struct {
	rt *wasmhost.Runtime
}

// NewWASMFactory compiles the runtime module in cfg. Each session instantiates it separately.
func NewWASMFactory(ctx context.Context, cfg wasmhost.Config, logger logrus.FieldLogger) (Factory, error) {
	var opts []wasmhost.Option
	if logger != nil {
		opts = append(opts, wasmhost.WithLogger(logger))
	}
	rt, err := wasmhost.NewRuntime(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return wasmFactory{rt: rt}, nil
}

func (wasmFactory) Name() string {
	return WASMName
}

func (f wasmFactory) NewSession(ctx context.Context) (Session, error) {
	in, err := f.rt.NewInstance(ctx)
	if err != nil {
		return nil, err
	}
	return &wasmSession{in: in}, nil
}

func (f wasmFactory) Close(ctx context.Context) error {
	return f.rt.Close(ctx)
}

type wasmSession struct {
	in *wasmhost.Instance
}

// boundInstance adapts an Instance to dump.Inspector for the duration of one call.
type boundInstance struct {
	ctx context.Context
	in  *wasmhost.Instance
}

func (b boundInstance) Inspect(n wasmhost.Node) (bridge.NodeInfo, error) {
	return b.in.Inspect(b.ctx, n)
}

func (b boundInstance) NodeType(n wasmhost.Node) (string, error) {
	return b.in.NodeType(b.ctx, n)
}

func (b boundInstance) Children(n wasmhost.Node, out []wasmhost.Node) (uint32, error) {
	return b.in.Children(b.ctx, n, out)
}

func (s *wasmSession) Dump(ctx context.Context, src []byte, opts dump.Options) (*dump.Node, error) {
	tree, err := s.in.Parse(ctx, 0, src)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.in.DeleteTree(ctx, tree) }()

	root, err := s.in.RootNode(ctx, tree)
	if err != nil {
		return nil, err
	}
	if opts.Source == nil {
		opts.Source = src
	}
	return dump.Build[wasmhost.Node](boundInstance{ctx: ctx, in: s.in}, root, opts)
}

func (s *wasmSession) Diff(ctx context.Context, prev, next []byte) (DiffResult, error) {
	edit, edited, err := bridge.EditForReplacement(prev, text.Diff(prev, next))
	if err != nil {
		return DiffResult{}, err
	}

	oldTree, err := s.in.Parse(ctx, 0, prev)
	if err != nil {
		return DiffResult{}, err
	}
	defer func() { _ = s.in.DeleteTree(ctx, oldTree) }()
	if err := s.in.EditTree(ctx, oldTree, &edit); err != nil {
		return DiffResult{}, err
	}

	newTree, err := s.in.Parse(ctx, oldTree, edited)
	if err != nil {
		return DiffResult{}, err
	}
	defer func() { _ = s.in.DeleteTree(ctx, newTree) }()

	ranges, err := s.in.AllChangedRanges(ctx, oldTree, newTree)
	if err != nil {
		return DiffResult{}, err
	}
	root, err := s.in.RootNode(ctx, newTree)
	if err != nil {
		return DiffResult{}, err
	}
	info, err := s.in.Inspect(ctx, root)
	if err != nil {
		return DiffResult{}, err
	}
	return DiffResult{Edit: edit, Ranges: ranges, HasError: info.HasError()}, nil
}

func (s *wasmSession) Close() error {
	return s.in.Close(context.Background())
}
