package broadcaster

import (
	"bytes"
	"context"
	"encoding/binary"
	"time"

	"seqcell/domain/marketdata"
	"seqcell/infra/memory"
	"seqcell/infra/outbox"
	"seqcell/infra/seqlock"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Sink is where sampled quotes end up, e.g. a Kafka producer.
type Sink interface {
	Send(ctx context.Context, key, value []byte) error
	Close() error
}

// Broadcaster samples the quote cell at a fixed interval, stages every
// new version in the outbox and drains the outbox to the sink.
type Broadcaster struct {
	quotes   *seqlock.Reader[marketdata.Quote]
	outbox   *outbox.Outbox
	sink     Sink
	interval time.Duration
	log      *zap.Logger
	metrics  *metrics
	buffers  *memory.Pool[bytes.Buffer]

	// FAILED records at or past this many retries are parked: kept in
	// the outbox but no longer sent. Zero retries forever.
	maxRetries uint32

	lastVersion uint64
	sampled     bool
}

type Option func(*Broadcaster)

// WithMaxRetries parks a record once it has failed n times.
func WithMaxRetries(n uint32) Option {
	return func(b *Broadcaster) { b.maxRetries = n }
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

func New(
	quotes *seqlock.Reader[marketdata.Quote],
	box *outbox.Outbox,
	sink Sink,
	interval time.Duration,
	logger *zap.Logger,
	reg prometheus.Registerer,
	opts ...Option,
) *Broadcaster {
	b := &Broadcaster{
		quotes:   quotes,
		outbox:   box,
		sink:     sink,
		interval: interval,
		log:      logger.Named("broadcaster"),
		metrics:  newMetrics(reg),
		buffers: memory.NewPool(
			func() *bytes.Buffer { return bytes.NewBuffer(make([]byte, 0, marketdata.EncodedSize)) },
			func(b *bytes.Buffer) { b.Reset() },
		),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ------------------------------------------------
// LOOP
// ------------------------------------------------

// Run samples and drains every interval until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) error {
	b.log.Info("broadcaster started", zap.Duration("interval", b.interval))
	defer b.log.Info("broadcaster stopped")

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := b.Tick(ctx); err != nil {
				b.log.Error("tick failed", zap.Error(err))
			}
		}
	}
}

// Tick runs one sample, drain and cleanup pass.
func (b *Broadcaster) Tick(ctx context.Context) error {
	if _, err := b.Sample(); err != nil {
		return err
	}
	acked, err := b.Drain(ctx)
	if err != nil {
		return err
	}
	if acked > 0 {
		if _, err := b.outbox.DeleteAckedUpTo(acked); err != nil {
			return errors.Wrap(err, "outbox cleanup")
		}
	}
	return nil
}

// ------------------------------------------------
// SAMPLE
// ------------------------------------------------

// Sample stages the current quote if its version moved since the last
// sample. The initial, never-published quote is skipped.
func (b *Broadcaster) Sample() (bool, error) {
	q, version := b.quotes.ReadVersioned()
	if version == 0 || (b.sampled && version == b.lastVersion) {
		return false, nil
	}

	buf := b.buffers.Get()
	defer b.buffers.Put(buf)

	payload, err := q.AppendBinary(buf.Bytes())
	if err != nil {
		return false, errors.Wrap(err, "encode quote")
	}
	if err := b.outbox.PutNew(q.Seq, payload); err != nil {
		return false, errors.Wrap(err, "stage quote")
	}

	b.lastVersion = version
	b.sampled = true
	b.metrics.sampled.Inc()
	return true, nil
}

// ------------------------------------------------
// DRAIN (CRITICAL)
// ------------------------------------------------

// Drain delivers pending records in sequence order. It returns the
// highest acked sequence, or 0. A failed send leaves the record FAILED
// for the next tick until it is parked; a record left SENT by a crash
// is sent again.
func (b *Broadcaster) Drain(ctx context.Context) (uint64, error) {
	var acked uint64
	parked := 0

	err := b.outbox.ScanByState(func(rec outbox.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if b.parked(rec) {
			parked++
			return nil
		}

		// 1. Mark SENT
		if err := b.outbox.UpdateState(rec.Seq, outbox.StateSent, rec.Retries); err != nil {
			return err
		}

		// 2. Publish
		if err := b.sink.Send(ctx, seqKey(rec.Seq), rec.Payload); err != nil {
			b.metrics.failed.Inc()
			b.log.Warn("send failed",
				zap.Uint64("seq", rec.Seq),
				zap.Uint32("retries", rec.Retries+1),
				zap.Error(err))
			return b.outbox.UpdateState(rec.Seq, outbox.StateFailed, rec.Retries+1)
		}

		// 3. Mark ACKED
		if err := b.outbox.UpdateState(rec.Seq, outbox.StateAcked, rec.Retries); err != nil {
			return err
		}
		b.metrics.sent.Inc()
		acked = rec.Seq
		return nil
	}, outbox.StateNew, outbox.StateSent, outbox.StateFailed)

	if err == nil {
		b.metrics.parked.Set(float64(parked))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return acked, nil
	}
	return acked, errors.Wrap(err, "drain outbox")
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	return b.sink.Close()
}

func (b *Broadcaster) parked(rec outbox.Record) bool {
	return b.maxRetries > 0 && rec.State == outbox.StateFailed && rec.Retries >= b.maxRetries
}

func seqKey(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, seq)
}
