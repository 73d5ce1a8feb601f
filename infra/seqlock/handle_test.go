package seqlock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Seq    uint64
	Prices [4]int64
}

func TestPairSharesOneCell(t *testing.T) {
	w, r := NewPair(snapshot{})
	other := w.Reader()

	w.Write(&snapshot{Seq: 1, Prices: [4]int64{10, 11, 12, 13}})

	assert.Equal(t, r.Read(), other.Read())
	assert.Equal(t, uint64(1), r.Read().Seq)
	assert.Equal(t, uint64(2), r.Version())
	assert.Equal(t, w.Version(), other.Version())

	got, ok := other.TryRead(1)
	require.True(t, ok)
	assert.Equal(t, int64(13), got.Prices[3])

	got, err := r.ReadContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Seq)
}

func TestReaderCopiesShareCell(t *testing.T) {
	w, r := NewPair(uint16(0))
	cp := *r

	v := uint16(3)
	w.Write(&v)
	assert.Equal(t, uint16(3), cp.Read())
}
