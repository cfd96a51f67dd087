// Package seedbloom provides a seeded-hash bloom filter for shielding a
// backing store from lookups of keys that are known not to exist.
//
// A bloom filter is a space-efficient probabilistic data structure that tests
// whether an element is a member of a set. False positive matches are possible,
// but false negatives are not – if the filter says an element is not present,
// it definitely was never added. If it says an element might be present, it
// could be a false positive.
//
// # Architecture
//
// A [Filter] is composed of two independent parts:
//
// The hash family: k [Hasher] values, each a pure function of an element's
// scalar hash code, a distinct seed and the filter capacity. Hashers do not
// reference any filter and can be built and tested on their own with
// [NewHasher]. The scalar hash code comes from [HashCode]: xxh3 for strings
// and byte slices, a 32-bit fold for integers, or the element's own
// [Hashable.HashCode].
//
// The bit array: a [BitArray] of fixed capacity that only supports set and
// test. [AtomicBits] is lock-free; [Bitset] is backed by
// github.com/bits-and-blooms/bitset and relies on the filter's lock.
//
// Add sets the k bits chosen by the hashers; MightContain reports true only if
// all k bits are set.
//
// # Choosing Parameters
//
// [NewDefault] uses 2^25 bits and seven hashers seeded with
// 7, 19, 61, 89, 129, 179 and 241. To size for a workload use [WithEstimates]:
//
//	// Filter for 1 million items with 1% false positive rate
//	f, err := seedbloom.New(seedbloom.WithEstimates(1_000_000, 0.01))
//
// or set [WithCapacity] and [WithK] / [WithSeeds] directly. For n added
// elements, m bits and k hashers the expected false positive rate is
//
//	(1 - e^(-kn/m))^k
//
// which [EstimateFalsePositiveRate] computes.
//
// # No Deletion
//
// Bits are never cleared. The false positive rate of a filter can only grow
// over its lifetime. Refreshing a filter means building a new one and
// swapping the reference; package guard does exactly that.
//
// # Nil Elements
//
// A nil element hashes to index 0 in every hasher. Adding nil therefore sets
// bit 0 only, and every nil collides with every other nil.
//
// # Thread Safety
//
// All filters are safe for concurrent Add and MightContain. The default
// filter does not lock: a MightContain racing an Add of the same element may
// see only some of its bits. [WithStrict] holds a read/write lock across the
// whole k-bit sequence instead.
package seedbloom
