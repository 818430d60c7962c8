package wasmhost

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero/api"
)

var errNoMemory = errors.New("wasm module exports no memory")

func (in *Instance) alloc(ctx context.Context, size uint64) (uint32, error) {
	if size == 0 {
		size = 1
	}
	ptr, err := callU32(ctx, in.malloc, size)
	if err != nil {
		return 0, fmt.Errorf("malloc(%d): %w", size, err)
	}
	if ptr == 0 {
		return 0, fmt.Errorf("malloc(%d): out of memory", size)
	}
	return ptr, nil
}

func (in *Instance) freePtr(ptr uint32) {
	if ptr == 0 || in.free == nil {
		return
	}
	_, _ = in.free.Call(context.Background(), uint64(ptr))
}

func (in *Instance) write(ptr uint32, data []byte) error {
	mem := in.module.Memory()
	if mem == nil {
		return errNoMemory
	}
	if len(data) > 0 && !mem.Write(ptr, data) {
		return fmt.Errorf("write wasm memory: ptr=%d size=%d", ptr, len(data))
	}
	return nil
}

// read returns a copy of size bytes at ptr.
func (in *Instance) read(ptr, size uint32) ([]byte, error) {
	mem := in.module.Memory()
	if mem == nil {
		return nil, errNoMemory
	}
	buf, ok := mem.Read(ptr, size)
	if !ok {
		return nil, fmt.Errorf("read wasm memory: ptr=%d size=%d", ptr, size)
	}
	return append([]byte(nil), buf...), nil
}

func (in *Instance) allocBytes(ctx context.Context, data []byte) (uint32, error) {
	ptr, err := in.alloc(ctx, uint64(len(data)))
	if err != nil {
		return 0, err
	}
	if err := in.write(ptr, data); err != nil {
		in.freePtr(ptr)
		return 0, err
	}
	return ptr, nil
}

func (in *Instance) readCString(ctx context.Context, ptr uint32) (string, error) {
	if ptr == 0 {
		return "", nil
	}
	size, err := callU32(ctx, in.strlen, uint64(ptr))
	if err != nil {
		return "", fmt.Errorf("strlen(%d): %w", ptr, err)
	}
	if size == 0 {
		return "", nil
	}
	buf, err := in.read(ptr, size)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func callU32(ctx context.Context, fn api.Function, args ...uint64) (uint32, error) {
	v, err := callU64(ctx, fn, args...)
	if err != nil {
		return 0, err
	}
	return uint32FromU64(v)
}

func callU64(ctx context.Context, fn api.Function, args ...uint64) (uint64, error) {
	res, err := fn.Call(ctx, args...)
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		return 0, nil
	}
	return res[0], nil
}

func uint32FromU64(v uint64) (uint32, error) {
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("value overflows uint32: %d", v)
	}
	return uint32(v), nil
}
