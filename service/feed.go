package service

import (
	"context"
	"time"

	"seqcell/domain/marketdata"
	"seqcell/infra/sequence"
	"seqcell/infra/seqlock"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

/*
Feed is the ONLY writer of the quote cell.

Publish must be called from one goroutine at a time; Run is that
goroutine when the feed is driven by a channel. Readers are handed out
freely and never block the feed.
*/
type Feed struct {
	symbol  marketdata.Symbol
	writer  *seqlock.Writer[marketdata.Quote]
	reader  *seqlock.Reader[marketdata.Quote]
	seq     *sequence.Sequencer
	log     *zap.Logger
	metrics *feedMetrics
	now     func() time.Time
}

// NewFeed builds a feed for symbol. opts configure the underlying cell,
// e.g. the readers' retry strategy.
func NewFeed(
	symbol string,
	logger *zap.Logger,
	reg prometheus.Registerer,
	opts ...seqlock.Option,
) (*Feed, error) {
	sym, err := marketdata.NewSymbol(symbol)
	if err != nil {
		return nil, errors.Wrap(err, "feed symbol")
	}

	w, r := seqlock.NewPair(marketdata.Quote{Symbol: sym}, opts...)
	return &Feed{
		symbol:  sym,
		writer:  w,
		reader:  r,
		seq:     sequence.New(0),
		log:     logger.Named("feed").With(zap.String("symbol", symbol)),
		metrics: newFeedMetrics(reg, symbol),
		now:     time.Now,
	}, nil
}

// Publish validates q, stamps it with the next sequence, the feed's
// symbol and (when unset) the current time, and writes it.
//
// Single writer: never call Publish concurrently, and never while Run
// is active.
func (f *Feed) Publish(q marketdata.Quote) (uint64, error) {
	if err := q.Validate(); err != nil {
		f.metrics.rejected.Inc()
		return 0, errors.Wrap(err, "rejected quote")
	}

	q.Seq = f.seq.Next()
	q.Symbol = f.symbol
	if q.Time == 0 {
		q.Time = f.now().UnixNano()
	}

	f.writer.Write(&q)

	f.metrics.published.Inc()
	f.metrics.lastSeq.Set(float64(q.Seq))
	return q.Seq, nil
}

// Run publishes every quote from src until src is closed or ctx is done.
// Invalid quotes are logged and dropped.
func (f *Feed) Run(ctx context.Context, src <-chan marketdata.Quote) error {
	f.log.Info("feed started")
	defer f.log.Info("feed stopped", zap.Uint64("last_seq", f.seq.Current()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case q, ok := <-src:
			if !ok {
				return nil
			}
			if _, err := f.Publish(q); err != nil {
				f.log.Warn("dropping quote", zap.Error(err))
			}
		}
	}
}

// Reader returns a shareable read handle on the quote cell.
func (f *Feed) Reader() *seqlock.Reader[marketdata.Quote] {
	return f.reader
}

// Latest returns the most recently published quote.
func (f *Feed) Latest() marketdata.Quote {
	return f.reader.Read()
}

// ResumeAfter continues numbering after seq, the last sequence a
// previous run handed downstream. Call it before the first Publish; a
// seq at or below the current one is ignored.
func (f *Feed) ResumeAfter(seq uint64) {
	if seq <= f.seq.Current() {
		return
	}
	f.seq.Reset(seq)
	f.metrics.lastSeq.Set(float64(seq))
	f.log.Info("resuming sequence", zap.Uint64("after", seq))
}

// LastSeq is the sequence of the last published quote.
func (f *Feed) LastSeq() uint64 {
	return f.seq.Current()
}
