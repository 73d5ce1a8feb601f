package seqlock

import "runtime"

// Backoff decides what a reader does after a failed attempt. attempt
// counts from zero. Implementations are shared by every reader of a
// cell and must be safe for concurrent use.
type Backoff interface {
	Wait(attempt int)
}

// BackoffFunc adapts a plain function to Backoff.
type BackoffFunc func(attempt int)

func (f BackoffFunc) Wait(attempt int) { f(attempt) }

// Spin retries immediately. It is the default.
type Spin struct{}

func (Spin) Wait(int) {}

// Yield spins for After attempts, then yields the processor between
// further attempts.
type Yield struct {
	After int
}

func (y Yield) Wait(attempt int) {
	if attempt >= y.After {
		gosched()
	}
}

var gosched = runtime.Gosched

type options struct {
	backoff Backoff
}

// Option configures a cell at construction.
type Option func(*options)

// WithBackoff replaces the busy spin between read attempts.
func WithBackoff(b Backoff) Option {
	return func(o *options) {
		if _, spin := b.(Spin); spin {
			b = nil
		}
		o.backoff = b
	}
}
