// Package wasmhost drives the Thrift tree-sitter runtime compiled to WebAssembly.
//
// The module exports the tw_* C ABI: the same parser, tree, edit, changed-range, and node
// operations as package bridge, with records laid out in linear memory. A Runtime compiles the
// module once; each Instance is a separate module instantiation owning one parser.
package wasmhost

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

var (
	// ErrChecksumMismatch indicates the module bytes do not match the expected checksum.
	ErrChecksumMismatch = errors.New("wasm checksum mismatch")
	// ErrABIMismatch indicates the module lacks a required export or rejects the grammar.
	ErrABIMismatch = errors.New("wasm abi mismatch")
	// ErrClosed is returned by operations on a closed Instance.
	ErrClosed = errors.New("wasm instance closed")
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger routes runtime debug logs to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.log = logger
		}
	}
}

// Runtime holds a compiled runtime module.
type Runtime struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	log      logrus.FieldLogger
	seq      atomic.Uint64

	// Symbol names are a property of the grammar, so every instance shares them.
	kindsMu sync.RWMutex
	kinds   map[uint32]string
}

// NewRuntime verifies cfg.Module against cfg.Checksum, compiles it, and checks its exports.
func NewRuntime(ctx context.Context, cfg Config, opts ...Option) (*Runtime, error) {
	if cfg.Checksum == "" {
		return nil, fmt.Errorf("%w: empty checksum", ErrChecksumMismatch)
	}
	sum := sha256.Sum256(cfg.Module)
	if actual := hex.EncodeToString(sum[:]); actual != cfg.Checksum {
		return nil, fmt.Errorf("%w: expected=%s actual=%s", ErrChecksumMismatch, cfg.Checksum, actual)
	}

	r := &Runtime{
		log:   discardLogger(),
		kinds: make(map[uint32]string, 64),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.runtime = wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, r.runtime)

	compiled, err := r.runtime.CompileModule(ctx, cfg.Module)
	if err != nil {
		_ = r.runtime.Close(ctx)
		return nil, fmt.Errorf("compile wasm module: %w", err)
	}
	exports := compiled.ExportedFunctions()
	for _, name := range requiredExports {
		if _, ok := exports[name]; !ok {
			_ = r.runtime.Close(ctx)
			return nil, fmt.Errorf("%w: missing %s export", ErrABIMismatch, name)
		}
	}
	r.compiled = compiled

	r.log.WithField("bytes", len(cfg.Module)).Debug("wasm module compiled")
	return r, nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Close releases the runtime and every instance created from it.
func (r *Runtime) Close(ctx context.Context) error {
	if r == nil || r.runtime == nil {
		return nil
	}
	err := r.runtime.Close(ctx)
	r.runtime = nil
	return err
}

func (r *Runtime) lookupKind(symbol uint32) (string, bool) {
	r.kindsMu.RLock()
	defer r.kindsMu.RUnlock()
	kind, ok := r.kinds[symbol]
	return kind, ok
}

func (r *Runtime) rememberKind(symbol uint32, kind string) {
	r.kindsMu.Lock()
	defer r.kindsMu.Unlock()
	r.kinds[symbol] = kind
}
