package memory

import (
	"sync/atomic"
	"unsafe"
)

// WordSize is the unit of every atomic copy in this package.
const WordSize = 8

// Slot holds a value on an 8-byte boundary, padded to a whole number
// of words. The zero-length atomic array forces 64-bit alignment on
// 32-bit platforms too.
type Slot[T any] struct {
	_     [0]atomic.Uint64
	Value T
}

// SlotWords is the number of 64-bit words a Slot[T] occupies.
func SlotWords[T any]() int {
	var s Slot[T]
	return int(unsafe.Sizeof(s) / WordSize)
}

// Words views the slot as a slice of words. T must be pointer-free
// (see PointerFree); the caller guarantees that.
func (s *Slot[T]) Words() []uint64 {
	n := unsafe.Sizeof(*s) / WordSize
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(s)), n)
}

// StoreWords copies src into dst with one atomic store per word.
// Only dst may be shared.
func StoreWords(dst, src []uint64) {
	if len(src) == 0 {
		return
	}
	_ = dst[len(src)-1]
	for i, w := range src {
		atomic.StoreUint64(&dst[i], w)
	}
}

// LoadWords copies src into dst with one atomic load per word.
// Only src may be shared.
func LoadWords(dst, src []uint64) {
	if len(src) == 0 {
		return
	}
	_ = dst[len(src)-1]
	for i := range src {
		dst[i] = atomic.LoadUint64(&src[i])
	}
}
