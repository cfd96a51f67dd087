// Package readthrough is an in-process cache in front of a slower store,
// shaped to serve as the read path of a guard.
//
// Hits are served from a go-cache map. Misses load from the Store, and
// concurrent misses for one key share a single load. Only found values are
// cached: errors and absences go straight back to the caller, so negative
// results stay the business of a black-list guard.
package readthrough

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrInvalidPolicy is returned by New for a non-positive TTL or a
	// negative jitter.
	ErrInvalidPolicy = errors.New("readthrough: invalid policy")

	// ErrNilStore is returned by New without a store.
	ErrNilStore = errors.New("readthrough: store is nil")
)

// Store is the authoritative backend.
type Store[V any] interface {
	// Load returns (value, true, nil) when key exists and (zero, false, nil)
	// when it does not.
	Load(ctx context.Context, key string) (V, bool, error)
}

// StoreFunc adapts a function to Store.
type StoreFunc[V any] func(ctx context.Context, key string) (V, bool, error)

// Load calls f.
func (f StoreFunc[V]) Load(ctx context.Context, key string) (V, bool, error) {
	return f(ctx, key)
}

// Policy controls how long loaded values live. Each entry expires after TTL
// plus a random extra in [0, Jitter), which spreads out reloads of values
// that were cached together.
type Policy struct {
	TTL    time.Duration
	Jitter time.Duration
}

func (p Policy) validate() error {
	if p.TTL <= 0 {
		return fmt.Errorf("%w: ttl must be positive, got %s", ErrInvalidPolicy, p.TTL)
	}
	if p.Jitter < 0 {
		return fmt.Errorf("%w: jitter must not be negative, got %s", ErrInvalidPolicy, p.Jitter)
	}
	return nil
}

func (p Policy) expiry() time.Duration {
	if p.Jitter <= 0 {
		return p.TTL
	}
	return p.TTL + time.Duration(rand.Int64N(int64(p.Jitter)))
}

type options struct {
	logger          logrus.FieldLogger
	cleanupInterval time.Duration
}

// Option configures a Cache.
type Option func(*options)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCleanupInterval sets how often expired entries are purged. The
// default is the policy TTL.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) {
		o.cleanupInterval = d
	}
}

// Cache is a read-through cache over a Store. It is safe for concurrent use.
type Cache[V any] struct {
	store  Store[V]
	policy Policy
	items  *cache.Cache
	group  singleflight.Group
	log    logrus.FieldLogger
}

// New creates a Cache over store.
func New[V any](store Store[V], policy Policy, opts ...Option) (*Cache[V], error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if err := policy.validate(); err != nil {
		return nil, err
	}

	o := options{
		logger:          logrus.StandardLogger(),
		cleanupInterval: policy.TTL,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Cache[V]{
		store:  store,
		policy: policy,
		items:  cache.New(policy.TTL, o.cleanupInterval),
		log:    o.logger.WithField("component", "readthrough"),
	}, nil
}

// Lookup returns the value for key, loading it from the store on a miss.
// Concurrent misses for the same key share one load, which runs with the
// context of the caller that started it.
//
// Lookup has the shape of guard.Lookup and can be passed to a guard
// directly.
func (c *Cache[V]) Lookup(ctx context.Context, key string) (V, bool, error) {
	if v, ok := c.cached(key); ok {
		return v, true, nil
	}

	res, err, shared := c.group.Do(key, func() (any, error) {
		// Another flight may have filled the entry since our check.
		if v, ok := c.cached(key); ok {
			return loaded[V]{value: v, found: true}, nil
		}

		v, found, err := c.store.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		if found {
			c.items.Set(key, v, c.policy.expiry())
		}
		return loaded[V]{value: v, found: found}, nil
	})
	if err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{
			"key":    key,
			"shared": shared,
		}).Debug("store load failed")
		var zero V
		return zero, false, err
	}

	l := res.(loaded[V])
	return l.value, l.found, nil
}

// Invalidate drops key from the cache. The next Lookup reloads it.
func (c *Cache[V]) Invalidate(key string) {
	c.items.Delete(key)
}

// Len returns the number of cached entries, including expired entries not
// yet purged.
func (c *Cache[V]) Len() int {
	return c.items.ItemCount()
}

func (c *Cache[V]) cached(key string) (V, bool) {
	raw, ok := c.items.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	return raw.(V), true
}

type loaded[V any] struct {
	value V
	found bool
}
