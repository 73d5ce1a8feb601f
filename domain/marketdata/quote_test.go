package marketdata

import (
	"math"
	"testing"

	"seqcell/infra/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func book() Quote {
	sym, _ := NewSymbol("BTC-USD")
	q := Quote{Seq: 3, Time: 1_700_000_000, Symbol: sym}
	q.Bids[0] = Level{Price: 100, Qty: 5}
	q.Bids[1] = Level{Price: 99, Qty: 2}
	q.Asks[0] = Level{Price: 104, Qty: 1}
	q.Asks[1] = Level{Price: 105, Qty: 7}
	return q
}

func TestQuoteIsPointerFree(t *testing.T) {
	assert.True(t, memory.PointerFreeOf[Quote]())
}

func TestSymbol(t *testing.T) {
	s, err := NewSymbol("ETH-USD")
	require.NoError(t, err)
	assert.Equal(t, "ETH-USD", s.String())

	_, err = NewSymbol("")
	assert.ErrorIs(t, err, ErrEmptySymbol)

	_, err = NewSymbol("A-VERY-LONG-SYMBOL-NAME")
	assert.ErrorIs(t, err, ErrSymbolTooLong)
}

func TestBestPrices(t *testing.T) {
	q := book()

	bid, ok := q.BestBid()
	require.True(t, ok)
	assert.Equal(t, Level{Price: 100, Qty: 5}, bid)

	spread, ok := q.Spread()
	require.True(t, ok)
	assert.Equal(t, int64(4), spread)

	mid, ok := q.Mid()
	require.True(t, ok)
	assert.Equal(t, int64(102), mid)

	assert.Len(t, Levels(&q.Bids), 2)
	assert.Len(t, Levels(&q.Asks), 2)

	var empty Quote
	_, ok = empty.Spread()
	assert.False(t, ok)
	_, ok = empty.Mid()
	assert.False(t, ok)
	assert.Empty(t, Levels(&empty.Bids))
}

func TestValidate(t *testing.T) {
	q := book()
	require.NoError(t, q.Validate())

	var empty Quote
	assert.NoError(t, empty.Validate())

	crossed := book()
	crossed.Asks[0].Price = 100
	assert.ErrorIs(t, crossed.Validate(), ErrCrossedBook)

	unordered := book()
	unordered.Bids[1].Price = 101
	assert.ErrorIs(t, unordered.Validate(), ErrUnorderedLevels)

	gap := book()
	gap.Asks[1] = Level{}
	gap.Asks[2] = Level{Price: 110, Qty: 1}
	assert.ErrorIs(t, gap.Validate(), ErrUnorderedLevels)

	negative := book()
	negative.Asks[3].Qty = -1
	assert.ErrorIs(t, negative.Validate(), ErrNegativeQty)

	zeroPx := book()
	zeroPx.Bids[1].Price = 0
	assert.ErrorIs(t, zeroPx.Validate(), ErrNonPositivePx)
}

func TestValidateExtremePrices(t *testing.T) {
	// ask - bid overflows int64 here; the book is still uncrossed.
	wide := book()
	wide.Bids[0].Price, wide.Bids[1].Price = 2, 1
	wide.Asks[0].Price, wide.Asks[1].Price = math.MaxInt64-1, math.MaxInt64
	require.NoError(t, wide.Validate())

	mid, ok := wide.Mid()
	require.True(t, ok)
	assert.Equal(t, int64(2+(math.MaxInt64-3)/2), mid)

	negative := book()
	negative.Bids[0].Price, negative.Bids[1].Price = math.MinInt64+1, math.MinInt64
	assert.ErrorIs(t, negative.Validate(), ErrNonPositivePx)

	crossed := book()
	crossed.Bids[0].Price = math.MaxInt64
	crossed.Asks[0].Price = math.MaxInt64 - 1
	crossed.Asks[1].Price = math.MaxInt64
	assert.ErrorIs(t, crossed.Validate(), ErrCrossedBook)
}

func TestBinaryEncoding(t *testing.T) {
	q := book()
	q.Time = -42

	b, err := q.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, EncodedSize)

	var got Quote
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, q, got)

	assert.ErrorIs(t, got.UnmarshalBinary(b[:10]), ErrInvalidEncoding)
}
