package marketdata

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
)

// Depth is the number of price levels carried per side.
const Depth = 8

// SymbolSize is the fixed width of an instrument symbol.
const SymbolSize = 16

var (
	ErrSymbolTooLong   = errors.New("symbol too long")
	ErrEmptySymbol     = errors.New("empty symbol")
	ErrNegativeQty     = errors.New("negative quantity")
	ErrNonPositivePx   = errors.New("non-positive price")
	ErrUnorderedLevels = errors.New("price levels out of order")
	ErrCrossedBook     = errors.New("crossed book")
	ErrInvalidEncoding = errors.New("invalid quote encoding")
)

// Symbol is a fixed-width, NUL padded instrument name.
type Symbol [SymbolSize]byte

func NewSymbol(s string) (Symbol, error) {
	var sym Symbol
	if s == "" {
		return sym, ErrEmptySymbol
	}
	if len(s) > SymbolSize {
		return sym, errors.Wrapf(ErrSymbolTooLong, "%q is %d bytes, max %d", s, len(s), SymbolSize)
	}
	copy(sym[:], s)
	return sym, nil
}

func (s Symbol) String() string {
	return strings.TrimRight(string(s[:]), "\x00")
}

// Level is one aggregated price level. A zero Qty marks an empty slot;
// empty slots only ever trail the populated ones.
type Level struct {
	Price int64
	Qty   int64
}

func (l Level) Empty() bool { return l.Qty == 0 }

// Quote is a top-of-book depth snapshot. It holds no pointers so it
// can be published through a seqlock cell by plain copy.
type Quote struct {
	Seq    uint64
	Time   int64 // unix nanos
	Symbol Symbol
	Bids   [Depth]Level // best (highest) first
	Asks   [Depth]Level // best (lowest) first
}

func (q *Quote) BestBid() (Level, bool) {
	return q.Bids[0], !q.Bids[0].Empty()
}

func (q *Quote) BestAsk() (Level, bool) {
	return q.Asks[0], !q.Asks[0].Empty()
}

// Spread is best ask minus best bid; ok is false when a side is empty.
func (q *Quote) Spread() (int64, bool) {
	bid, okb := q.BestBid()
	ask, oka := q.BestAsk()
	if !okb || !oka {
		return 0, false
	}
	return ask.Price - bid.Price, true
}

// Mid is the integer midpoint of the best prices, rounded down.
func (q *Quote) Mid() (int64, bool) {
	bid, okb := q.BestBid()
	ask, oka := q.BestAsk()
	if !okb || !oka {
		return 0, false
	}
	return bid.Price + (ask.Price-bid.Price)/2, true
}

// Levels returns the populated prefix of a side.
func Levels(side *[Depth]Level) []Level {
	for i, l := range side {
		if l.Empty() {
			return side[:i]
		}
	}
	return side[:]
}

// Validate checks the book shape: no negative quantities, positive
// prices on populated levels, no gaps, bids strictly descending, asks
// strictly ascending, and best bid below best ask. A valid quote's
// Spread and Mid cannot overflow.
func (q *Quote) Validate() error {
	if err := validateSide(&q.Bids, func(prev, next int64) bool { return next < prev }); err != nil {
		return errors.Wrap(err, "bids")
	}
	if err := validateSide(&q.Asks, func(prev, next int64) bool { return next > prev }); err != nil {
		return errors.Wrap(err, "asks")
	}
	bid, okb := q.BestBid()
	ask, oka := q.BestAsk()
	if okb && oka && bid.Price >= ask.Price {
		return errors.Wrapf(ErrCrossedBook, "bid %d >= ask %d", q.Bids[0].Price, q.Asks[0].Price)
	}
	return nil
}

func validateSide(side *[Depth]Level, ordered func(prev, next int64) bool) error {
	empty := false
	for i, l := range side {
		if l.Qty < 0 {
			return errors.Wrapf(ErrNegativeQty, "level %d", i)
		}
		if l.Empty() {
			empty = true
			continue
		}
		if empty {
			return errors.Wrapf(ErrUnorderedLevels, "level %d follows an empty level", i)
		}
		if l.Price <= 0 {
			return errors.Wrapf(ErrNonPositivePx, "level %d price %d", i, l.Price)
		}
		if i > 0 && !ordered(side[i-1].Price, l.Price) {
			return errors.Wrapf(ErrUnorderedLevels, "level %d price %d after %d", i, l.Price, side[i-1].Price)
		}
	}
	return nil
}

// EncodedSize is the length of MarshalBinary output.
const EncodedSize = 8 + 8 + SymbolSize + 2*Depth*16

// binary encoding: [seq:8][time:8][symbol:16][bids:depth*16][asks:depth*16]
func (q *Quote) MarshalBinary() ([]byte, error) {
	return q.AppendBinary(make([]byte, 0, EncodedSize))
}

func (q *Quote) AppendBinary(buf []byte) ([]byte, error) {
	buf = binary.BigEndian.AppendUint64(buf, q.Seq)
	buf = binary.BigEndian.AppendUint64(buf, uint64(q.Time))
	buf = append(buf, q.Symbol[:]...)
	for _, side := range [...]*[Depth]Level{&q.Bids, &q.Asks} {
		for _, l := range side {
			buf = binary.BigEndian.AppendUint64(buf, uint64(l.Price))
			buf = binary.BigEndian.AppendUint64(buf, uint64(l.Qty))
		}
	}
	return buf, nil
}

func (q *Quote) UnmarshalBinary(b []byte) error {
	if len(b) != EncodedSize {
		return errors.Wrapf(ErrInvalidEncoding, "length %d, want %d", len(b), EncodedSize)
	}
	q.Seq = binary.BigEndian.Uint64(b[0:8])
	q.Time = int64(binary.BigEndian.Uint64(b[8:16]))
	copy(q.Symbol[:], b[16:16+SymbolSize])
	off := 16 + SymbolSize
	for _, side := range [...]*[Depth]Level{&q.Bids, &q.Asks} {
		for i := range side {
			side[i].Price = int64(binary.BigEndian.Uint64(b[off : off+8]))
			side[i].Qty = int64(binary.BigEndian.Uint64(b[off+8 : off+16]))
			off += 16
		}
	}
	return nil
}
