// Package bloom implements the counting Bloom filter that backs the LSM
// index strategy (§4.3.4). Two independent hash families pick two bit
// positions per key — blake3 (carried over from the teacher's bucket
// hashing in internal/storage/storage.go) and blake2b (golang.org/x/crypto,
// carried from jpl-au-folio's hash-algorithm options) stand in for the
// original's md5+sha256 pairing.
package bloom

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// Filter is a counting Bloom filter: each set bit carries a reference
// count so overlapping inserts (two keys hashing to the same position)
// don't get unset by an unrelated remove. When the two hash families
// collide onto the same index, both hits are folded into one counter —
// the same behavior the original implementation exhibits.
type Filter struct {
	size    uint64
	bits    []bool
	counter map[uint64]int
}

// New creates a Filter with the given bit-array size.
func New(size uint64) *Filter {
	if size == 0 {
		size = 1
	}
	return &Filter{
		size:    size,
		bits:    make([]bool, size),
		counter: make(map[uint64]int),
	}
}

func (f *Filter) positions(data []byte) (uint64, uint64) {
	h1 := blake3.New()
	h1.Write(data)
	sum1 := h1.Sum(nil)

	sum2 := blake2b.Sum256(data)

	p1 := binary.BigEndian.Uint64(sum1[:8]) % f.size
	p2 := binary.BigEndian.Uint64(sum2[:8]) % f.size
	return p1, p2
}

// Insert sets both bit positions for data and increments their counters.
func (f *Filter) Insert(data []byte) {
	p1, p2 := f.positions(data)
	f.set(p1)
	f.set(p2)
}

func (f *Filter) set(pos uint64) {
	f.bits[pos] = true
	f.counter[pos]++
}

// Check reports whether data may have been inserted. False negatives are
// never produced; false positives are possible, as with any Bloom filter.
func (f *Filter) Check(data []byte) bool {
	p1, p2 := f.positions(data)
	return f.bits[p1] && f.bits[p2]
}

// Remove decrements both bit positions' counters, clearing a bit only
// once its counter reaches zero.
func (f *Filter) Remove(data []byte) {
	p1, p2 := f.positions(data)
	f.unset(p1)
	f.unset(p2)
}

func (f *Filter) unset(pos uint64) {
	if f.counter[pos] <= 0 {
		return
	}
	f.counter[pos]--
	if f.counter[pos] <= 0 {
		f.bits[pos] = false
	}
}
