package seedbloom

import "math"

const (
	// DefaultCapacity is the bit-array length used by NewDefault: 2^25 bits
	// (4 MiB), sized for on the order of a few million keys.
	DefaultCapacity = 1 << 25
	// MaxCapacity bounds the bit-array length (2^40 bits, 128 GiB).
	MaxCapacity = 1 << 40
	// ln2 is the natural logarithm of 2.
	ln2 = 0.6931471805599453
	// ln2Squared is ln(2)^2.
	ln2Squared = 0.4804530139182014
)

// seedTable holds the distinct odd seeds hashers are drawn from. The first
// seven are the default family; the rest extend it for larger k.
var seedTable = [...]uint32{
	7, 19, 61, 89, 129, 179, 241, // default k=7
	283, 337, 397, 449, 503, 569, 631, 691, 757,
}

// MaxK is the largest number of hash functions SeedsFor can supply.
const MaxK = uint32(len(seedTable))

// DefaultSeeds returns the seeds of the default seven-member hash family.
func DefaultSeeds() []uint32 {
	return SeedsFor(7)
}

// SeedsFor returns the first k seeds of the seed table.
// Returns nil if k is zero or larger than MaxK.
func SeedsFor(k uint32) []uint32 {
	if k == 0 || k > MaxK {
		return nil
	}
	seeds := make([]uint32, k)
	copy(seeds, seedTable[:k])
	return seeds
}

// OptimalParams calculates filter parameters for the expected number of
// items and the desired false positive rate. The capacity is rounded up to a
// power of two so hashers can reduce with a mask.
// Returns the capacity in bits, number of hash functions (k), and bits per item.
func OptimalParams(expectedItems uint64, fpRate float64) (capacity uint64, k uint32, bitsPerItem float64) {
	if expectedItems == 0 {
		expectedItems = 1
	}
	if fpRate <= 0 {
		fpRate = 0.0001 // default to 0.01%
	}
	if fpRate >= 1 {
		fpRate = 0.99
	}

	// Optimal bits per item: -ln(fpRate) / ln(2)^2
	bitsPerItem = -math.Log(fpRate) / ln2Squared

	totalBits := math.Ceil(float64(expectedItems) * bitsPerItem)
	if totalBits > MaxCapacity {
		totalBits = MaxCapacity
	}
	capacity = max(nextPowerOf2(uint64(totalBits)), 64)

	// Optimal k: (m/n) * ln(2), using the rounded capacity
	kFloat := float64(capacity) / float64(expectedItems) * ln2
	k = uint32(math.Round(kFloat))
	k = max(k, 1)
	k = min(k, MaxK)

	return capacity, k, bitsPerItem
}

// EstimateFalsePositiveRate estimates the false positive rate for a filter of
// capacity bits with k hash functions after itemsAdded insertions.
// Formula: (1 - e^(-kn/m))^k
func EstimateFalsePositiveRate(capacity uint64, k uint32, itemsAdded uint64) float64 {
	m := float64(capacity)
	n := float64(itemsAdded)
	kf := float64(k)

	if m == 0 || n == 0 {
		return 0
	}

	return math.Pow(1-math.Exp(-kf*n/m), kf)
}

// nextPowerOf2 returns the smallest power of 2 >= n.
func nextPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
