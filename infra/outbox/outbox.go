package outbox

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/pkg/errors"
)

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Record --------------------

var (
	ErrInvalidRecord = errors.New("invalid outbox record")
	ErrSeqExists     = errors.New("outbox sequence already staged")
)

// Record is one sampled quote waiting for delivery.
type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

const headerLen = 1 + 4 + 8

// binary encoding: [state:1][retries:4][lastAttempt:8][payload]
func encodeRecord(r Record) []byte {
	buf := make([]byte, headerLen+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[headerLen:], r.Payload)
	return buf
}

func decodeRecord(seq uint64, b []byte) (Record, error) {
	if len(b) < headerLen {
		return Record{}, errors.Wrapf(ErrInvalidRecord, "seq %d: %d bytes", seq, len(b))
	}
	return Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     append([]byte(nil), b[headerLen:]...),
	}, nil
}

// -------------------- Outbox --------------------

// Outbox buffers sampled quotes between the cell and an external sink.
// It is a delivery queue only; nothing reads it back into the cell.
type Outbox struct {
	db  *pebble.DB
	now func() time.Time
}

type Option func(*pebble.Options)

// WithFS runs the store on fs, e.g. vfs.NewMem() in tests.
func WithFS(fs vfs.FS) Option {
	return func(o *pebble.Options) { o.FS = fs }
}

func Open(dir string, opts ...Option) (*Outbox, error) {
	po := &pebble.Options{}
	for _, opt := range opts {
		opt(po)
	}
	db, err := pebble.Open(dir, po)
	if err != nil {
		return nil, errors.Wrapf(err, "open outbox %s", dir)
	}
	return &Outbox{db: db, now: time.Now}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// -------------------- API --------------------

// PutNew stores payload under seq in state NEW and raises the
// high-water mark. It never replaces a record that is still staged.
func (o *Outbox) PutNew(seq uint64, payload []byte) error {
	_, closer, err := o.db.Get(keyFor(seq))
	switch {
	case err == nil:
		closer.Close()
		return errors.Wrapf(ErrSeqExists, "seq %d", seq)
	case !errors.Is(err, pebble.ErrNotFound):
		return errors.Wrapf(err, "outbox seq %d", seq)
	}

	high, err := o.LastSeq()
	if err != nil {
		return err
	}

	batch := o.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(keyFor(seq), encodeRecord(Record{State: StateNew, Payload: payload}), nil); err != nil {
		return err
	}
	if seq > high {
		if err := batch.Set([]byte(highKey), binary.BigEndian.AppendUint64(nil, seq), nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

// LastSeq is the highest sequence ever staged, including records
// already delivered and deleted. It is 0 for an empty outbox.
func (o *Outbox) LastSeq() (uint64, error) {
	var high uint64

	val, closer, err := o.db.Get([]byte(highKey))
	switch {
	case err == nil:
		if len(val) == 8 {
			high = binary.BigEndian.Uint64(val)
		}
		closer.Close()
	case !errors.Is(err, pebble.ErrNotFound):
		return 0, errors.Wrap(err, "outbox high-water mark")
	}

	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if iter.Last() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return 0, err
		}
		high = max(high, seq)
	}
	return high, iter.Error()
}

// UpdateState moves seq to state, keeping its payload.
func (o *Outbox) UpdateState(seq uint64, state State, retries uint32) error {
	rec, err := o.Get(seq)
	if err != nil {
		return err
	}
	rec.State = state
	rec.Retries = retries
	rec.LastAttempt = o.now().UnixNano()
	return o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// Get returns the current record for seq.
func (o *Outbox) Get(seq uint64) (Record, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		return Record{}, errors.Wrapf(err, "outbox seq %d", seq)
	}
	defer closer.Close()

	return decodeRecord(seq, val)
}

// -------------------- Scan --------------------

// ScanByState iterates, in sequence order, all records in any of the
// given states.
func (o *Outbox) ScanByState(fn func(rec Record) error, states ...State) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec, err := decodeRecord(seq, iter.Value())
		if err != nil {
			return err
		}
		if !matches(rec.State, states) {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// DeleteAckedUpTo removes ACKED records with seq <= upTo and returns
// how many went.
func (o *Outbox) DeleteAckedUpTo(upTo uint64) (int, error) {
	batch := o.db.NewBatch()
	defer batch.Close()

	n := 0
	err := o.ScanByState(func(rec Record) error {
		if rec.Seq > upTo {
			return errStopScan
		}
		n++
		return batch.Delete(keyFor(rec.Seq), nil)
	}, StateAcked)
	if err != nil && !errors.Is(err, errStopScan) {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return n, batch.Commit(pebble.Sync)
}

// -------------------- Helpers --------------------

const (
	keyPrefix = "quote/"
	highKey   = "meta/high"
)

var errStopScan = errors.New("stop scan")

func matches(s State, states []State) bool {
	for _, want := range states {
		if s == want {
			return true
		}
	}
	return false
}

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	seq, err := strconv.ParseUint(string(bytes.TrimPrefix(b, []byte(keyPrefix))), 10, 64)
	return seq, errors.Wrapf(err, "outbox key %q", b)
}
