package seqlock

import (
	"context"

	"github.com/cenkalti/backoff/v4"
)

// noCopy lets go vet flag copies of a Writer.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Writer is the single write handle of a cell. Keep exactly one
// goroutine as its owner; hand Readers to everybody else.
type Writer[T any] struct {
	_    noCopy
	cell *Cell[T]
}

// Reader is a read-only handle. It is safe to share and copy.
type Reader[T any] struct {
	cell *Cell[T]
}

// NewPair builds a cell and splits it into its write and read handles.
func NewPair[T any](initial T, opts ...Option) (*Writer[T], *Reader[T]) {
	c := New(initial, opts...)
	return &Writer[T]{cell: c}, &Reader[T]{cell: c}
}

func (w *Writer[T]) Write(v *T) { w.cell.Write(v) }

func (w *Writer[T]) Version() uint64 { return w.cell.Version() }

// Reader returns another read handle on the same cell.
func (w *Writer[T]) Reader() *Reader[T] { return &Reader[T]{cell: w.cell} }

func (r *Reader[T]) Read() T { return r.cell.Read() }

func (r *Reader[T]) ReadVersioned() (T, uint64) { return r.cell.ReadVersioned() }

func (r *Reader[T]) TryRead(maxAttempts int) (T, bool) { return r.cell.TryRead(maxAttempts) }

func (r *Reader[T]) ReadContext(ctx context.Context) (T, error) { return r.cell.ReadContext(ctx) }

func (r *Reader[T]) ReadRetry(ctx context.Context, b backoff.BackOff) (T, error) {
	return r.cell.ReadRetry(ctx, b)
}

func (r *Reader[T]) Version() uint64 { return r.cell.Version() }
