package memory

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolResetsOnPut(t *testing.T) {
	p := NewPool(
		func() *bytes.Buffer { return new(bytes.Buffer) },
		func(b *bytes.Buffer) { b.Reset() },
	)

	b := p.Get()
	b.WriteString("stale")
	p.Put(b)

	// sync.Pool may or may not hand back the same buffer; both must be clean.
	assert.Zero(t, p.Get().Len())
}

func TestPoolPutNil(t *testing.T) {
	p := NewPool(func() *int { return new(int) }, nil)
	assert.NotPanics(t, func() { p.Put(nil) })
	assert.NotNil(t, p.Get())
}
