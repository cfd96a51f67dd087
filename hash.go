package seedbloom

import (
	"fmt"
	"math"
	"math/bits"
	"reflect"

	"github.com/zeebo/xxh3"
)

// Hashable is implemented by element types that supply their own stable
// scalar hash code.
type Hashable interface {
	HashCode() uint32
}

// Mixer turns an element's scalar hash code into a bit index for one member
// of the hash family. It must return a value in [0, capacity) and be a pure
// function of its arguments.
type Mixer func(code, seed uint32, capacity uint64) uint64

// Hasher is one member of the hash family: a pure function from an
// element's hash code to a bit index, parameterized by capacity and seed.
// Hashers are plain values and may be shared between filters.
type Hasher struct {
	capacity uint64
	seed     uint32
	mix      Mixer
}

// NewHasher returns a hasher producing indices in [0, capacity).
// A nil mix selects MixFinalizer.
func NewHasher(capacity uint64, seed uint32, mix Mixer) (Hasher, error) {
	if capacity == 0 || capacity > MaxCapacity {
		return Hasher{}, fmt.Errorf("%w: %d (valid range: 1-%d)", ErrInvalidCapacity, capacity, uint64(MaxCapacity))
	}
	if mix == nil {
		mix = MixFinalizer
	}
	return Hasher{capacity: capacity, seed: seed, mix: mix}, nil
}

// Capacity returns the exclusive upper bound of produced indices.
func (h Hasher) Capacity() uint64 {
	return h.capacity
}

// Seed returns the seed distinguishing this hasher from the rest of its family.
func (h Hasher) Seed() uint32 {
	return h.seed
}

// Index maps a scalar hash code to a bit index.
func (h Hasher) Index(code uint32) int {
	return int(h.mix(code, h.seed, h.capacity))
}

// Hash maps an arbitrary element to a bit index. A nil element always maps
// to index 0, so every nil shares one bucket in every hasher.
func (h Hasher) Hash(v any) int {
	code, ok := HashCode(v)
	if !ok {
		return 0
	}
	return h.Index(code)
}

// MixFinalizer spreads the high half of the code into the low half, places
// the seed in the upper word and applies the murmur3 64-bit finalizer. The
// result is reduced with a mask when capacity is a power of two and with a
// multiply-high otherwise.
func MixFinalizer(code, seed uint32, capacity uint64) uint64 {
	spread := code ^ (code >> 16)
	x := uint64(seed)<<32 | uint64(spread)
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return reduce(x, capacity)
}

// MixMask computes |seed*(capacity-1) & spread| in 32-bit arithmetic and
// folds it into range. It only ever sets bits present in the per-seed mask,
// so its distribution is much worse than MixFinalizer; it exists for
// comparing against filters built with that arithmetic.
func MixMask(code, seed uint32, capacity uint64) uint64 {
	spread := int32(code ^ (code >> 16))
	mask := int32(seed * uint32(capacity-1))
	v := int64(mask & spread)
	if v < 0 {
		v = -v
	}
	return uint64(v) % capacity
}

// reduce maps a 64-bit hash onto [0, capacity).
func reduce(x, capacity uint64) uint64 {
	if capacity&(capacity-1) == 0 {
		return x & (capacity - 1)
	}
	hi, _ := bits.Mul64(x, capacity)
	return hi
}

// HashCode derives the scalar hash code of v. The boolean is false only for
// a nil element: an untyped nil, or a nil pointer, map, func or chan held in
// the interface. Nil slices count as nil too, except []byte, which is hashed
// as an empty key.
//
// Strings and byte slices use xxh3, integers are folded to 32 bits, and any
// other type falls back to the xxh3 of its fmt.Stringer output or its Go
// syntax representation.
func HashCode(v any) (uint32, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case string:
		return hashString(x), true
	case []byte:
		return hashData(x), true
	case int:
		return fold(uint64(x)), true
	case int8:
		return fold(uint64(x)), true
	case int16:
		return fold(uint64(x)), true
	case int32:
		return fold(uint64(x)), true
	case int64:
		return fold(uint64(x)), true
	case uint:
		return fold(uint64(x)), true
	case uint8:
		return uint32(x), true
	case uint16:
		return uint32(x), true
	case uint32:
		return x, true
	case uint64:
		return fold(x), true
	case uintptr:
		return fold(uint64(x)), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case float32:
		return math.Float32bits(x), true
	case float64:
		return fold(math.Float64bits(x)), true
	}

	// Methods below may dereference their receiver.
	if isNil(v) {
		return 0, false
	}

	switch x := v.(type) {
	case Hashable:
		return x.HashCode(), true
	case fmt.Stringer:
		return hashString(x.String()), true
	default:
		return hashString(fmt.Sprintf("%#v", x)), true
	}
}

// isNil reports whether v holds a nil reference of a nillable kind.
func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}

// hashData computes the xxh3 hash of data folded to 32 bits.
func hashData(data []byte) uint32 {
	return fold(xxh3.Hash(data))
}

// hashString computes the xxh3 hash of s folded to 32 bits without
// converting it to a byte slice.
func hashString(s string) uint32 {
	return fold(xxh3.HashString(s))
}

// fold xors the upper half of u into the lower half.
func fold(u uint64) uint32 {
	return uint32(u ^ u>>32)
}
