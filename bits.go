package seedbloom

import (
	"fmt"
	"math/bits"
	"sync/atomic"
	"unsafe"

	"github.com/bits-and-blooms/bitset"
)

// cacheLineSize is the size of a CPU cache line in bytes.
const cacheLineSize = 64

// BitArray is a fixed-capacity bit vector. Bits can be set and tested but
// never cleared, and the capacity never changes after construction.
//
// Set and Test return an error wrapping ErrOutOfRange when i is outside
// [0, Cap()).
type BitArray interface {
	Set(i int) error
	Test(i int) (bool, error)
	Cap() int
	// Count returns the number of bits currently set.
	Count() uint64
}

// AtomicBits is a lock-free BitArray. Set uses an atomic OR, so concurrent
// Set and Test calls are safe without external locking.
type AtomicBits struct {
	raw      []byte          // Raw allocation to keep aligned memory alive for GC
	words    []atomic.Uint64 // cache-line aligned
	capacity int
}

// NewAtomicBits allocates a zeroed lock-free bit array of capacity bits.
func NewAtomicBits(capacity int) (*AtomicBits, error) {
	if capacity <= 0 || uint64(capacity) > MaxCapacity {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	raw, words := makeAlignedAtomicUint64Slice((capacity + 63) / 64)
	return &AtomicBits{raw: raw, words: words, capacity: capacity}, nil
}

// makeAlignedAtomicUint64Slice allocates a cache-line aligned slice of atomic.Uint64.
// Returns the raw byte slice (to keep alive for GC) and the aligned atomic slice.
func makeAlignedAtomicUint64Slice(n int) ([]byte, []atomic.Uint64) {
	// atomic.Uint64 is the same size as uint64 (8 bytes)
	const atomicSize = 8
	raw := make([]byte, n*atomicSize+cacheLineSize-1)
	addr := uintptr(unsafe.Pointer(&raw[0]))
	offset := (cacheLineSize - int(addr%cacheLineSize)) % cacheLineSize
	aligned := unsafe.Slice((*atomic.Uint64)(unsafe.Pointer(&raw[offset])), n)
	return raw, aligned
}

// Set marks bit i.
func (b *AtomicBits) Set(i int) error {
	if err := checkIndex(i, b.capacity); err != nil {
		return err
	}
	b.words[i>>6].Or(1 << (uint(i) & 63))
	return nil
}

// Test reports whether bit i is set.
func (b *AtomicBits) Test(i int) (bool, error) {
	if err := checkIndex(i, b.capacity); err != nil {
		return false, err
	}
	return b.words[i>>6].Load()&(1<<(uint(i)&63)) != 0, nil
}

// Cap returns the number of bits.
func (b *AtomicBits) Cap() int {
	return b.capacity
}

// Count returns the number of set bits.
func (b *AtomicBits) Count() uint64 {
	var n uint64
	for i := range b.words {
		n += uint64(bits.OnesCount64(b.words[i].Load()))
	}
	return n
}

// Bitset is a BitArray backed by github.com/bits-and-blooms/bitset.
// It is NOT safe for concurrent use; a Filter built on it serializes access
// with its own lock.
type Bitset struct {
	set      *bitset.BitSet
	capacity int
}

// NewBitset allocates a zeroed bitset-backed array of capacity bits.
func NewBitset(capacity int) (*Bitset, error) {
	if capacity <= 0 || uint64(capacity) > MaxCapacity {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Bitset{set: bitset.New(uint(capacity)), capacity: capacity}, nil
}

// Set marks bit i.
func (b *Bitset) Set(i int) error {
	if err := checkIndex(i, b.capacity); err != nil {
		return err
	}
	b.set.Set(uint(i))
	return nil
}

// Test reports whether bit i is set.
func (b *Bitset) Test(i int) (bool, error) {
	if err := checkIndex(i, b.capacity); err != nil {
		return false, err
	}
	return b.set.Test(uint(i)), nil
}

// Cap returns the number of bits.
func (b *Bitset) Cap() int {
	return b.capacity
}

// Count returns the number of set bits.
func (b *Bitset) Count() uint64 {
	return uint64(b.set.Count())
}

func checkIndex(i, capacity int) error {
	if i < 0 || i >= capacity {
		return fmt.Errorf("%w: index %d not in [0, %d)", ErrOutOfRange, i, capacity)
	}
	return nil
}

var (
	_ BitArray = (*AtomicBits)(nil)
	_ BitArray = (*Bitset)(nil)
)
