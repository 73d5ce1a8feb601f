package seqlock

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// ErrWriteInProgress is returned by a single read attempt that raced
// a write.
var ErrWriteInProgress = errors.New("seqlock: write in progress")

// ReadRetry retries under the given policy, sleeping between attempts
// as b dictates, until a stable copy is taken, b gives up or ctx is
// done. Use it where spinning is not acceptable.
func (c *Cell[T]) ReadRetry(ctx context.Context, b backoff.BackOff) (T, error) {
	v, err := backoff.RetryWithData(func() (T, error) {
		v, ok := c.TryRead(1)
		if !ok {
			return v, ErrWriteInProgress
		}
		return v, nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		var zero T
		return zero, errors.Wrap(err, "seqlock: read did not stabilise")
	}
	return v, nil
}
