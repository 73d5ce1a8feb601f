package seqlock

import (
	"context"
	"fmt"
	"reflect"
	"sync/atomic"

	"seqcell/infra/memory"

	"github.com/pkg/errors"
	"golang.org/x/sys/cpu"
)

// Cell is a versioned publication cell for a pointer-free T.
//
// The version is even while the cell is stable and odd for the whole
// duration of a write. Every completed write advances it by exactly
// two, wrapping on overflow.
type Cell[T any] struct {
	_       cpu.CacheLinePad
	version atomic.Uint64
	backoff Backoff
	slot    memory.Slot[T]
	_       cpu.CacheLinePad
}

// New returns a cell holding initial at version 0.
//
// T must be fixed-size and pointer-free (numbers, bools, arrays and
// structs of those). New panics otherwise: such a type is a
// programming error, not a runtime condition.
func New[T any](initial T, opts ...Option) *Cell[T] {
	if !memory.PointerFreeOf[T]() {
		panic(fmt.Sprintf("seqlock: %v holds pointers and cannot be published by copy", reflect.TypeFor[T]()))
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cell[T]{backoff: o.backoff}
	c.slot.Value = initial
	return c
}

// Write publishes v.
//
// Write must only ever be called by one goroutine at a time. It never
// blocks and never waits for readers.
func (c *Cell[T]) Write(v *T) {
	src := memory.Slot[T]{Value: *v}

	// odd: write in progress
	next := c.version.Add(1)
	memory.StoreWords(c.slot.Words(), src.Words())
	// even again, two past the previous stable version
	c.version.Store(next + 1)
}

// Read returns the most recently published value. It spins until it
// observes a stable copy and has no upper bound on retries.
func (c *Cell[T]) Read() T {
	v, _ := c.ReadVersioned()
	return v
}

// ReadVersioned is Read plus the even version the value was observed at.
func (c *Cell[T]) ReadVersioned() (T, uint64) {
	var dst memory.Slot[T]
	for attempt := 0; ; attempt++ {
		if ver, ok := c.load(&dst); ok {
			return dst.Value, ver
		}
		c.wait(attempt)
	}
}

// TryRead makes at most maxAttempts attempts at a stable copy. A value
// of zero or less means a single attempt.
func (c *Cell[T]) TryRead(maxAttempts int) (T, bool) {
	var dst memory.Slot[T]
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if _, ok := c.load(&dst); ok {
			return dst.Value, true
		}
		if attempt+1 < maxAttempts {
			c.wait(attempt)
		}
	}
	var zero T
	return zero, false
}

// ReadContext retries until it gets a stable copy or ctx is done.
func (c *Cell[T]) ReadContext(ctx context.Context) (T, error) {
	var dst memory.Slot[T]
	for attempt := 0; ; attempt++ {
		if _, ok := c.load(&dst); ok {
			return dst.Value, nil
		}
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, errors.Wrap(err, "seqlock: read abandoned")
		}
		c.wait(attempt)
	}
}

// Version returns the current raw version. It is odd while a write is
// in progress.
func (c *Cell[T]) Version() uint64 {
	return c.version.Load()
}

// load makes a single attempt: version, copy, version.
func (c *Cell[T]) load(dst *memory.Slot[T]) (uint64, bool) {
	v1 := c.version.Load()
	memory.LoadWords(dst.Words(), c.slot.Words())
	v2 := c.version.Load()
	return v1, v1 == v2 && v1&1 == 0
}

func (c *Cell[T]) wait(attempt int) {
	if c.backoff != nil {
		c.backoff.Wait(attempt)
	}
}
