package seedbloom

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// Filter is a probabilistic set-membership filter. It answers "definitely
// not added" or "maybe added": an element that was added always tests
// positive, and an element that was never added tests positive with a
// probability that grows as more elements are added.
//
// Bits are only ever set. There is no delete or clear; to start over, build
// a new Filter and swap the reference.
//
// A Filter is safe for concurrent use. By default Add and MightContain run
// lock-free on AtomicBits, so a MightContain that races an Add of the same
// element may observe some of its bits and report false. Filters built with
// WithStrict (or WithBitset) hold a lock across the whole k-bit sequence and
// never expose a half-added element.
type Filter struct {
	mu      sync.RWMutex // held only in strict mode
	strict  bool
	bits    BitArray
	hashers []Hasher
	count   atomic.Uint64 // Number of Add calls (approximate under races)
}

type config struct {
	capacity uint64
	seeds    []uint32
	mixer    Mixer
	strict   bool
	bitset   bool
}

// Option configures a Filter.
type Option func(*config)

// WithCapacity sets the bit-array length.
func WithCapacity(bits uint64) Option {
	return func(c *config) {
		c.capacity = bits
	}
}

// WithSeeds sets the hash family explicitly, one hasher per seed. Seeds must
// be distinct.
func WithSeeds(seeds ...uint32) Option {
	return func(c *config) {
		c.seeds = append([]uint32(nil), seeds...)
	}
}

// WithK uses the first k seeds of the built-in seed table.
func WithK(k uint32) Option {
	return func(c *config) {
		c.seeds = SeedsFor(k)
	}
}

// WithEstimates sizes the filter for expectedItems at the desired false
// positive rate using OptimalParams.
func WithEstimates(expectedItems uint64, fpRate float64) Option {
	return func(c *config) {
		capacity, k, _ := OptimalParams(expectedItems, fpRate)
		c.capacity = capacity
		c.seeds = SeedsFor(k)
	}
}

// WithMixer replaces the index mixing function of every hasher.
func WithMixer(m Mixer) Option {
	return func(c *config) {
		c.mixer = m
	}
}

// WithStrict makes each Add and MightContain hold the filter lock for its
// full sequence of bit operations.
func WithStrict() Option {
	return func(c *config) {
		c.strict = true
	}
}

// WithBitset stores bits in a bits-and-blooms bitset instead of atomic
// words. It implies WithStrict.
func WithBitset() Option {
	return func(c *config) {
		c.bitset = true
		c.strict = true
	}
}

// New creates a filter. Without options it has DefaultCapacity bits and the
// seven DefaultSeeds hashers.
func New(opts ...Option) (*Filter, error) {
	cfg := config{
		capacity: DefaultCapacity,
		seeds:    DefaultSeeds(),
		mixer:    MixFinalizer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(cfg.seeds) == 0 {
		return nil, fmt.Errorf("%w (k must be 1-%d)", ErrNoSeeds, MaxK)
	}
	if cfg.capacity > math.MaxInt {
		return nil, fmt.Errorf("%w: %d exceeds platform int", ErrInvalidCapacity, cfg.capacity)
	}

	seen := make(map[uint32]struct{}, len(cfg.seeds))
	hashers := make([]Hasher, 0, len(cfg.seeds))
	for _, seed := range cfg.seeds {
		if _, dup := seen[seed]; dup {
			return nil, fmt.Errorf("%w: seed %d repeated", ErrDuplicateSeed, seed)
		}
		seen[seed] = struct{}{}

		h, err := NewHasher(cfg.capacity, seed, cfg.mixer)
		if err != nil {
			return nil, err
		}
		hashers = append(hashers, h)
	}

	var (
		store BitArray
		err   error
	)
	if cfg.bitset {
		store, err = NewBitset(int(cfg.capacity))
	} else {
		store, err = NewAtomicBits(int(cfg.capacity))
	}
	if err != nil {
		return nil, err
	}

	return &Filter{
		strict:  cfg.strict,
		bits:    store,
		hashers: hashers,
	}, nil
}

// NewDefault creates a filter with the default parameters.
func NewDefault() *Filter {
	f, err := New()
	if err != nil {
		panic(err) // defaults are constants
	}
	return f
}

// Add records v in the filter. Adding the same element again changes
// nothing beyond the add counter.
func (f *Filter) Add(v any) {
	code, ok := HashCode(v)
	f.add(code, ok)
}

// AddString adds a string without boxing it in an interface.
func (f *Filter) AddString(s string) {
	f.add(hashString(s), true)
}

// AddBytes adds a byte slice without boxing it in an interface.
func (f *Filter) AddBytes(data []byte) {
	f.add(hashData(data), true)
}

func (f *Filter) add(code uint32, ok bool) {
	if f.strict {
		f.mu.Lock()
		defer f.mu.Unlock()
	}

	for _, h := range f.hashers {
		if err := f.bits.Set(f.index(h, code, ok)); err != nil {
			panic(err)
		}
	}

	f.count.Add(1)
}

// MightContain reports whether v may have been added. False means v was
// definitely never added; true may be a false positive.
func (f *Filter) MightContain(v any) bool {
	code, ok := HashCode(v)
	return f.test(code, ok)
}

// MightContainString tests a string without boxing it in an interface.
func (f *Filter) MightContainString(s string) bool {
	return f.test(hashString(s), true)
}

// MightContainBytes tests a byte slice without boxing it in an interface.
func (f *Filter) MightContainBytes(data []byte) bool {
	return f.test(hashData(data), true)
}

func (f *Filter) test(code uint32, ok bool) bool {
	if f.strict {
		f.mu.RLock()
		defer f.mu.RUnlock()
	}

	for _, h := range f.hashers {
		set, err := f.bits.Test(f.index(h, code, ok))
		if err != nil {
			panic(err)
		}
		if !set {
			return false
		}
	}

	return true
}

// index maps a hash code through h; nil elements (ok == false) land on 0.
func (f *Filter) index(h Hasher, code uint32, ok bool) int {
	if !ok {
		return 0
	}
	return h.Index(code)
}

// Cap returns the capacity of the filter in bits.
func (f *Filter) Cap() uint64 {
	return uint64(f.bits.Cap())
}

// K returns the number of hash functions.
func (f *Filter) K() uint32 {
	return uint32(len(f.hashers))
}

// Seeds returns the seeds of the filter's hash family in order.
func (f *Filter) Seeds() []uint32 {
	seeds := make([]uint32, len(f.hashers))
	for i, h := range f.hashers {
		seeds[i] = h.Seed()
	}
	return seeds
}

// Count returns the number of Add calls made, including repeats.
func (f *Filter) Count() uint64 {
	return f.count.Load()
}

// Strict reports whether the filter locks across whole operations.
func (f *Filter) Strict() bool {
	return f.strict
}

// EstimatedFillRatio returns the proportion of bits that are set.
func (f *Filter) EstimatedFillRatio() float64 {
	if f.strict {
		f.mu.RLock()
		defer f.mu.RUnlock()
	}
	return float64(f.bits.Count()) / float64(f.bits.Cap())
}

// EstimatedFalsePositiveRate estimates the current false positive rate from
// the number of adds. Repeated adds of one element make it pessimistic.
func (f *Filter) EstimatedFalsePositiveRate() float64 {
	return EstimateFalsePositiveRate(f.Cap(), f.K(), f.Count())
}
