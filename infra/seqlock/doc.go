// Package seqlock implements a single-writer, multi-reader publication
// cell. One producer continuously overwrites a fixed-size, pointer-free
// value; any number of consumers read the most recent fully written
// value. The writer never waits for readers and readers never take a
// lock: they retry until they observe the same even version on both
// sides of their copy.
//
// SINGLE WRITER: Write must never run concurrently with another Write
// on the same cell. The cell cannot detect a second writer; two
// concurrent writers corrupt the version protocol and readers may then
// return torn values. Give write ownership to exactly one goroutine,
// ideally by handing it the Writer returned from NewPair and sharing
// only the Reader.
//
// Ordering: every access to the version counter and to each 64-bit
// word of the payload goes through sync/atomic. Go atomics are
// sequentially consistent, which covers the acquire load before the
// copy, the release store after it and the fences between them.
//
// Livelock: a reader under sustained write pressure may retry forever.
// The default retry strategy is a busy spin; see Backoff, TryRead,
// ReadContext and ReadRetry for bounded or gentler alternatives.
package seqlock
