package memory

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotWords(t *testing.T) {
	assert.Equal(t, 0, SlotWords[struct{}]())
	assert.Equal(t, 1, SlotWords[uint8]())
	assert.Equal(t, 1, SlotWords[[3]byte]())
	assert.Equal(t, 2, SlotWords[[9]byte]())
	assert.Equal(t, 512, SlotWords[[512]uint64]())
	assert.Equal(t, 4, SlotWords[flat]())
}

func TestSlotAligned(t *testing.T) {
	var s Slot[[3]byte]
	assert.Zero(t, uintptr(unsafe.Pointer(&s))%WordSize)
	assert.Len(t, s.Words(), 1)

	var empty Slot[struct{}]
	assert.Nil(t, empty.Words())
}

func TestStoreLoadWordsRoundTrip(t *testing.T) {
	var src, shared, dst Slot[flat]
	src.Value = flat{A: -7, B: [3]byte{1, 2, 3}}
	src.Value.C.D = 3.5
	src.Value.C.E = [2]uint16{9, 10}

	StoreWords(shared.Words(), src.Words())
	LoadWords(dst.Words(), shared.Words())

	require.Equal(t, src.Value, dst.Value)
}

func TestStoreLoadWordsEmpty(t *testing.T) {
	var a, b Slot[struct{}]
	assert.NotPanics(t, func() {
		StoreWords(a.Words(), b.Words())
		LoadWords(b.Words(), a.Words())
	})
}
