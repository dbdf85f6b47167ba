// Package cdp models a Combined Data Packet chunk: an insertion-ordered
// batch of (RDH, payload) pairs handed from the reader to the validator
// by value, one owner at a time.
package cdp

import "github.com/wnqng/fastPASTA/internal/rdh"

// Record pairs one RDH-CRU header with its raw payload bytes and the
// header's absolute byte position in the input stream. V pins the RDH
// wire revision for the whole run; see rdh.Version.
type Record[V rdh.Version] struct {
	RDH       rdh.RDHCRU[V]
	Payload   []byte
	RdhMemPos uint64
}

// Chunk is an insertion-ordered batch of Records. A Chunk returned by the
// reader is never empty; Scanner.GetChunk returns ErrEndOfInput instead
// of a zero-length Chunk.
type Chunk[V rdh.Version] struct {
	records []Record[V]
}

// NewChunk returns an empty Chunk ready for Append; it never panics.
func NewChunk[V rdh.Version]() *Chunk[V] { return &Chunk[V]{} }

// Append adds r as the newest record.
func (c *Chunk[V]) Append(r Record[V]) { c.records = append(c.records, r) }

// Len returns the number of records currently in the chunk.
func (c *Chunk[V]) Len() int { return len(c.records) }

// Records returns the chunk's records in insertion order. The returned
// slice aliases the chunk's backing array; callers must not retain it
// past the chunk's lifetime.
func (c *Chunk[V]) Records() []Record[V] { return c.records }
