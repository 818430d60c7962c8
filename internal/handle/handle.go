// Package handle implements generation-tagged opaque handles over an arena of slots.
//
// A Handle packs a 1-based slot index in its low 32 bits and the slot generation in its high
// 32 bits. The zero Handle is the null handle. Reusing a released slot bumps its generation, so
// handles to the released value are reported as stale instead of resolving to the new occupant.
package handle

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNull is returned when the zero handle is resolved.
	ErrNull = errors.New("null handle")
	// ErrStale is returned when a handle refers to a released or unknown slot.
	ErrStale = errors.New("stale handle")
)

// Handle is an opaque address-sized identifier.
type Handle uint64

func makeHandle(index int, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(uint32(index+1)))
}

func (h Handle) index() int {
	return int(uint32(h)) - 1
}

func (h Handle) generation() uint32 {
	return uint32(h >> 32)
}

// IsZero reports whether h is the null handle.
func (h Handle) IsZero() bool {
	return h == 0
}

func (h Handle) String() string {
	if h == 0 {
		return "null"
	}
	return fmt.Sprintf("%d@%d", h.index(), h.generation())
}

type slot[T any] struct {
	value T
	gen   uint32
	live  bool
}

// Arena stores values addressed by handles. The zero Arena is ready to use.
//
// Arena only guards its own slot table; it does not serialize use of the stored values.
type Arena[T any] struct {
	mu    sync.RWMutex
	slots []slot[T]
	free  []int
}

// Insert stores v and returns a fresh handle for it.
func (a *Arena[T]) Insert(v T) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	var idx int
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[T]{})
		idx = len(a.slots) - 1
	}

	s := &a.slots[idx]
	s.gen++
	if s.gen == 0 {
		// Generation zero is never handed out.
		s.gen = 1
	}
	s.value = v
	s.live = true
	return makeHandle(idx, s.gen)
}

// Get resolves h.
func (a *Arena[T]) Get(h Handle) (T, error) {
	var zero T
	if h == 0 {
		return zero, ErrNull
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.lookup(h)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrStale, h)
	}
	return s.value, nil
}

// Remove releases h and returns the value it referenced.
func (a *Arena[T]) Remove(h Handle) (T, error) {
	var zero T
	if h == 0 {
		return zero, ErrNull
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.lookup(h)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrStale, h)
	}
	v := s.value
	s.value = zero
	s.live = false
	a.free = append(a.free, h.index())
	return v, nil
}

// Drain releases every live slot and returns the values in slot order.
func (a *Arena[T]) Drain() []T {
	a.mu.Lock()
	defer a.mu.Unlock()

	var zero T
	out := make([]T, 0, len(a.slots)-len(a.free))
	for i := range a.slots {
		s := &a.slots[i]
		if !s.live {
			continue
		}
		out = append(out, s.value)
		s.value = zero
		s.live = false
		a.free = append(a.free, i)
	}
	return out
}

// Len returns the number of live handles.
func (a *Arena[T]) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.slots) - len(a.free)
}

func (a *Arena[T]) lookup(h Handle) (*slot[T], bool) {
	idx := h.index()
	if idx < 0 || idx >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[idx]
	if !s.live || s.gen != h.generation() {
		return nil, false
	}
	return s, true
}
