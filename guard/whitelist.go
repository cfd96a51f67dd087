package guard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jcalabro/seedbloom"
)

// WhiteListState reports whether a white-list has a filter to serve from.
type WhiteListState int

const (
	NotPreloaded WhiteListState = iota
	Preloaded
)

func (s WhiteListState) String() string {
	if s == Preloaded {
		return "preloaded"
	}
	return "not_preloaded"
}

// WhiteList short-circuits lookups for keys outside a preloaded universe.
//
// Every key that was part of the last successful preload is always passed to
// the read path; a key outside it is passed through only on a false
// positive.
type WhiteList[V any] struct {
	lookup Lookup[V]
	opts   options
	tel    *telemetry

	filter atomic.Pointer[seedbloom.Filter]

	mu     sync.Mutex // serializes rebuilds
	source Source
}

// NewWhiteList creates a white-list guard around lookup. The filter options
// are validated immediately; no filter is served until Preload succeeds.
func NewWhiteList[V any](lookup Lookup[V], opts ...Option) (*WhiteList[V], error) {
	if lookup == nil {
		return nil, ErrNilLookup
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if _, err := seedbloom.New(o.filterOpts...); err != nil {
		return nil, fmt.Errorf("guard: filter options: %w", err)
	}

	tel, err := newTelemetry(kindWhiteList, o)
	if err != nil {
		return nil, fmt.Errorf("guard: telemetry: %w", err)
	}

	return &WhiteList[V]{lookup: lookup, opts: o, tel: tel}, nil
}

// Preload builds a fresh filter from src and swaps it in. On error the
// previously served filter, if any, stays in place. src is remembered for
// Reload.
func (w *WhiteList[V]) Preload(ctx context.Context, src Source) error {
	if src == nil {
		return ErrNoSource
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rebuild(ctx, "preload", src); err != nil {
		return err
	}
	w.source = src
	return nil
}

// Reload re-runs the last successful preload source into a fresh filter and
// swaps it in. It is the administrative refresh for keys created since the
// previous preload.
func (w *WhiteList[V]) Reload(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.source == nil {
		return ErrNoSource
	}
	return w.rebuild(ctx, "reload", w.source)
}

// rebuild must be called with w.mu held.
func (w *WhiteList[V]) rebuild(ctx context.Context, op string, src Source) error {
	start := time.Now()

	f, n, err := buildFilter(ctx, w.opts.filterOpts, src)
	w.tel.rebuilt(ctx, op, n, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("guard: %s %q: %w", op, w.opts.name, err)
	}

	w.filter.Store(f)
	return nil
}

// buildFilter populates a new filter from src, stopping if ctx is done.
func buildFilter(ctx context.Context, fopts []seedbloom.Option, src Source) (*seedbloom.Filter, int, error) {
	f, err := seedbloom.New(fopts...)
	if err != nil {
		return nil, 0, err
	}

	var n int
	err = src(ctx, func(key string) bool {
		if ctx.Err() != nil {
			return false
		}
		f.AddString(key)
		n++
		return true
	})
	if err != nil {
		return nil, n, err
	}
	if err := ctx.Err(); err != nil {
		return nil, n, err
	}
	return f, n, nil
}

// State reports whether a preloaded filter is being served.
func (w *WhiteList[V]) State() WhiteListState {
	if w.filter.Load() == nil {
		return NotPreloaded
	}
	return Preloaded
}

// Check consults the filter without calling the read path. Before the first
// preload every key short-circuits.
func (w *WhiteList[V]) Check(key string) Decision {
	f := w.filter.Load()
	if f == nil || !f.MightContainString(key) {
		return ShortCircuit
	}
	return Proceed
}

// Get returns the value for key. Keys outside the preloaded universe yield
// (zero, false, nil) without touching the read path. Read-path results,
// including errors, are returned unchanged.
func (w *WhiteList[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V

	ctx, span := w.tel.startGet(ctx, "guard.WhiteList.Get")
	defer span.End()

	f := w.filter.Load()
	if f == nil {
		return zero, false, ErrNotPreloaded
	}

	if !f.MightContainString(key) {
		w.tel.decision(ctx, span, ShortCircuit)
		return zero, false, nil
	}
	w.tel.decision(ctx, span, Proceed)

	v, ok, err := w.lookup(ctx, key)
	if err != nil {
		w.tel.lookupError(ctx, span, key, err)
	}
	return v, ok, err
}

// Filter returns the filter currently served, or nil before preload.
func (w *WhiteList[V]) Filter() *seedbloom.Filter {
	return w.filter.Load()
}
