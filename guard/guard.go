package guard

import (
	"bufio"
	"context"
	"errors"
	"io"
	"iter"
)

// Sentinel errors for guard operations.
var (
	// ErrNotPreloaded is returned by WhiteList.Get before the first
	// successful Preload.
	ErrNotPreloaded = errors.New("guard: white-list has not been preloaded")

	// ErrNoSource is returned when a preload has no key source.
	ErrNoSource = errors.New("guard: no preload source")

	// ErrNilLookup is returned when a guard is built without a read path.
	ErrNilLookup = errors.New("guard: lookup is nil")

	// ErrInvalidConfig indicates a Config failed validation.
	ErrInvalidConfig = errors.New("guard: invalid config")
)

// Lookup is the guarded read path, typically cache-then-store. It returns
// (value, true, nil) on a hit and (zero, false, nil) when the key does not
// exist. It may block and should honor ctx.
type Lookup[V any] func(ctx context.Context, key string) (V, bool, error)

// Decision is the outcome of consulting a guard's filter.
type Decision int

const (
	// Proceed means the read path must be consulted.
	Proceed Decision = iota
	// ShortCircuit means the key is known absent and the read path is skipped.
	ShortCircuit
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case ShortCircuit:
		return "short_circuit"
	default:
		return "unknown"
	}
}

// Source enumerates the keys of a preload. It calls yield once per key and
// must stop early, returning nil, when yield returns false.
type Source func(ctx context.Context, yield func(key string) bool) error

// Keys returns a Source over a fixed list of keys.
func Keys(keys ...string) Source {
	return func(_ context.Context, yield func(string) bool) error {
		for _, k := range keys {
			if !yield(k) {
				return nil
			}
		}
		return nil
	}
}

// Seq adapts an iterator into a Source.
func Seq(seq iter.Seq[string]) Source {
	return func(_ context.Context, yield func(string) bool) error {
		for k := range seq {
			if !yield(k) {
				return nil
			}
		}
		return nil
	}
}

// Lines returns a Source reading one key per line from r. Empty lines are
// skipped. The reader is consumed on first use, so a Lines source cannot be
// replayed by Reload; open the file inside a custom Source for that.
func Lines(r io.Reader) Source {
	return func(_ context.Context, yield func(string) bool) error {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			line := sc.Text()
			if line == "" {
				continue
			}
			if !yield(line) {
				return nil
			}
		}
		return sc.Err()
	}
}
