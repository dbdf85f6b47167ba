package gbt

import "errors"

// ErrInvalidFormat is returned by NewIterator when the payload length is
// not a multiple of the stride implied by data_format.
var ErrInvalidFormat = errors.New("gbt: payload length is not a multiple of the word stride")

// StrideFor returns the on-wire spacing between successive 10-byte GBT
// words for the given RDH data_format: 16 bytes (10 data + 6 padding) for
// format 0, 10 bytes (no padding) for format 2.
func StrideFor(dataFormat uint8) int {
	if dataFormat == 0 {
		return 16
	}
	return 10
}

// Iterator is a restartable lazy sequence of GBT words over a payload
// slice. It holds the payload slice without copying it; Next copies each
// 10-byte word out of the backing slice into a Word value.
type Iterator struct {
	payload []byte
	stride  int
	pos     int
}

// NewIterator builds an Iterator over payload using the stride implied by
// dataFormat. It fails ErrInvalidFormat if payload's length isn't a clean
// multiple of that stride.
func NewIterator(payload []byte, dataFormat uint8) (*Iterator, error) {
	stride := StrideFor(dataFormat)
	if len(payload)%stride != 0 {
		return nil, ErrInvalidFormat
	}
	return &Iterator{payload: payload, stride: stride}, nil
}

// Len returns the total number of GBT words in the payload.
func (it *Iterator) Len() int { return len(it.payload) / it.stride }

// Reset rewinds the iterator to the first word.
func (it *Iterator) Reset() { it.pos = 0 }

// Next returns the next word and its index, or ok=false once exhausted.
func (it *Iterator) Next() (word Word, idx int, ok bool) {
	if it.pos >= it.Len() {
		return Word{}, 0, false
	}
	off := it.pos * it.stride
	copy(word[:], it.payload[off:off+10])
	idx = it.pos
	it.pos++
	return word, idx, true
}
