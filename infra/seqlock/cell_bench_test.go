package seqlock

import "testing"

func BenchmarkRead(b *testing.B) {
	c := New([16]uint64{})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = c.Read()
		}
	})
}

func BenchmarkWrite(b *testing.B) {
	c := New([16]uint64{})
	var msg [16]uint64

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		msg[0] = uint64(i)
		c.Write(&msg)
	}
}

func BenchmarkReadUnderWrite(b *testing.B) {
	c := New([16]uint64{})
	stop := make(chan struct{})
	go func() {
		var msg [16]uint64
		for i := uint64(0); ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			msg[0] = i
			c.Write(&msg)
		}
	}()
	defer close(stop)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = c.Read()
		}
	})
}
