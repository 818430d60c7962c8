// Package engine selects between the native tree-sitter bridge and the wasm runtime and runs the
// parse, dump, and diff workflows on either.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/kpumuk/twbridge/internal/bridge"
	"github.com/kpumuk/twbridge/internal/dump"
	"github.com/kpumuk/twbridge/internal/wasmhost"
)

// Engine names.
const (
	NativeName = "treesitter-cgo"
	WASMName   = "treesitter-wasm"
)

var (
	// ErrUnknownEngine is returned by New for unsupported engine names.
	ErrUnknownEngine = errors.New("unknown engine")
	// ErrModuleRequired is returned by New when the wasm engine has no module path.
	ErrModuleRequired = errors.New("wasm engine requires a module path")
)

// Session parses documents with one parser. A Session must be used by one goroutine at a time.
type Session interface {
	// Dump parses src and returns its tree.
	Dump(ctx context.Context, src []byte, opts dump.Options) (*dump.Node, error)
	// Diff parses prev, applies the single replacement turning prev into next, re-parses next
	// incrementally, and reports the changed ranges.
	Diff(ctx context.Context, prev, next []byte) (DiffResult, error)
	Close() error
}

// Factory creates sessions for a specific engine.
type Factory interface {
	Name() string
	NewSession(ctx context.Context) (Session, error)
	Close(ctx context.Context) error
}

// DiffResult describes how the tree changed between two revisions.
type DiffResult struct {
	Edit   bridge.InputEdit
	Ranges []bridge.ChangedRange
	// HasError reports whether the new tree contains syntax errors.
	HasError bool
}

// Config selects and configures an engine.
type Config struct {
	// Engine is NativeName, WASMName, or a short alias ("native", "wasm"). Empty selects native.
	Engine string
	// WASMModule is the runtime module path for the wasm engine.
	WASMModule string
	Fs         afero.Fs
	Logger     logrus.FieldLogger
}

// New returns the factory cfg selects.
func New(ctx context.Context, cfg Config) (Factory, error) {
	switch cfg.Engine {
	case "", "native", NativeName:
		return NewNativeFactory(cfg.Logger), nil
	case "wasm", WASMName:
		if cfg.WASMModule == "" {
			return nil, ErrModuleRequired
		}
		fs := cfg.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		wcfg, err := wasmhost.LoadConfig(fs, cfg.WASMModule)
		if err != nil {
			return nil, err
		}
		return NewWASMFactory(ctx, wcfg, cfg.Logger)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownEngine, cfg.Engine)
	}
}
