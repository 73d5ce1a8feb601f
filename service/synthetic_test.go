package service

import (
	"context"
	"testing"
	"time"

	"seqcell/domain/marketdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomWalkAlwaysValid(t *testing.T) {
	w := NewRandomWalk(40, 42)
	for i := 0; i < 10_000; i++ {
		q := w.Next()
		require.NoError(t, q.Validate())
		bid, _ := q.BestBid()
		require.Positive(t, bid.Price-int64(marketdata.Depth))
	}
}

func TestRandomWalkDeterministic(t *testing.T) {
	a, b := NewRandomWalk(1_000, 9), NewRandomWalk(1_000, 9)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}
}

func TestRandomWalkRunClosesOutput(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan marketdata.Quote)

	go NewRandomWalk(1_000, 1).Run(ctx, time.Millisecond, out)

	<-out
	cancel()
	for range out {
	}
}
