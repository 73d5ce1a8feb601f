package service

import (
	"context"
	"math/rand/v2"
	"time"

	"seqcell/domain/marketdata"
)

// minMid keeps every generated price positive.
const minMid = 4 * marketdata.Depth

// RandomWalk generates a plausible, always valid depth snapshot whose
// mid price takes a random step each tick. It stands in for a real
// upstream market-data source.
type RandomWalk struct {
	mid int64
	rng *rand.Rand
}

func NewRandomWalk(start int64, seed uint64) *RandomWalk {
	return &RandomWalk{
		mid: start,
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Next advances the walk and returns a quote around the new mid.
func (w *RandomWalk) Next() marketdata.Quote {
	w.mid += w.rng.Int64N(5) - 2
	if w.mid < minMid {
		w.mid = minMid
	}

	var q marketdata.Quote
	half := 1 + w.rng.Int64N(3)
	for i := 0; i < marketdata.Depth; i++ {
		step := int64(i)
		q.Bids[i] = marketdata.Level{Price: w.mid - half - step, Qty: 1 + w.rng.Int64N(100)}
		q.Asks[i] = marketdata.Level{Price: w.mid + half + step, Qty: 1 + w.rng.Int64N(100)}
	}
	return q
}

// Run sends a quote to out every interval until ctx is done, then
// closes out.
func (w *RandomWalk) Run(ctx context.Context, interval time.Duration, out chan<- marketdata.Quote) {
	defer close(out)

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			select {
			case out <- w.Next():
			case <-ctx.Done():
				return
			}
		}
	}
}
