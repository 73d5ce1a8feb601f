// Package memory provides the low-level primitives the publication
// cell is built on: a layout check for pointer-free payloads, word
// aligned slots that can be copied with atomic loads and stores, and
// a typed object pool.
//
// The memory package has no dependencies outside the standard library
// and forms the foundation for infra/seqlock.
package memory
