package guard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jcalabro/seedbloom"
)

// BlackList short-circuits lookups for keys the read path already reported
// missing.
//
// Marks are permanent for the life of a filter: a key created after it was
// marked keeps short-circuiting until Reset.
type BlackList[V any] struct {
	lookup Lookup[V]
	opts   options
	tel    *telemetry

	filter atomic.Pointer[seedbloom.Filter]
	mu     sync.Mutex // serializes Reset
}

// NewBlackList creates a black-list guard around lookup with an empty filter.
func NewBlackList[V any](lookup Lookup[V], opts ...Option) (*BlackList[V], error) {
	if lookup == nil {
		return nil, ErrNilLookup
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	f, err := seedbloom.New(o.filterOpts...)
	if err != nil {
		return nil, fmt.Errorf("guard: filter options: %w", err)
	}

	tel, err := newTelemetry(kindBlackList, o)
	if err != nil {
		return nil, fmt.Errorf("guard: telemetry: %w", err)
	}

	b := &BlackList[V]{lookup: lookup, opts: o, tel: tel}
	b.filter.Store(f)
	return b, nil
}

// Check consults the filter without calling the read path.
func (b *BlackList[V]) Check(key string) Decision {
	if b.filter.Load().MightContainString(key) {
		return ShortCircuit
	}
	return Proceed
}

// Get returns the value for key. A marked key yields (zero, false, nil)
// without touching the read path. Otherwise the read path is called and a
// miss marks the key. Errors are returned unchanged and mark nothing.
func (b *BlackList[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V

	ctx, span := b.tel.startGet(ctx, "guard.BlackList.Get")
	defer span.End()

	// One filter for the whole call, so a miss seen before a Reset is not
	// written into the filter that replaced it.
	f := b.filter.Load()
	if f.MightContainString(key) {
		b.tel.decision(ctx, span, ShortCircuit)
		return zero, false, nil
	}
	b.tel.decision(ctx, span, Proceed)

	v, ok, err := b.lookup(ctx, key)
	if err != nil {
		b.tel.lookupError(ctx, span, key, err)
		return v, ok, err
	}
	if !ok {
		f.AddString(key)
		b.tel.mark(ctx, key)
	}
	return v, ok, nil
}

// Mark records key as absent without consulting the read path, for callers
// that learn of deletions out of band.
func (b *BlackList[V]) Mark(key string) {
	b.filter.Load().AddString(key)
	b.tel.mark(context.Background(), key)
}

// Reset swaps in an empty filter, forgetting every mark.
func (b *BlackList[V]) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	f, err := seedbloom.New(b.opts.filterOpts...)
	b.tel.rebuilt(ctx, "reset", 0, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("guard: reset %q: %w", b.opts.name, err)
	}

	b.filter.Store(f)
	return nil
}

// Filter returns the filter currently served.
func (b *BlackList[V]) Filter() *seedbloom.Filter {
	return b.filter.Load()
}
