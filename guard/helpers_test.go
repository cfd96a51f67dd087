package guard

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jcalabro/seedbloom"
)

// fakeStore is an in-memory read path that counts calls.
type fakeStore struct {
	mu    sync.RWMutex
	data  map[string]string
	err   error
	calls atomic.Int64
}

func newFakeStore(keys ...string) *fakeStore {
	s := &fakeStore{data: make(map[string]string)}
	for _, k := range keys {
		s.data[k] = "value-" + k
	}
	return s
}

func (s *fakeStore) put(key string) {
	s.mu.Lock()
	s.data[key] = "value-" + key
	s.mu.Unlock()
}

func (s *fakeStore) keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		out = append(out, k)
	}
	return out
}

func (s *fakeStore) lookup(_ context.Context, key string) (string, bool, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", false, s.err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

// source enumerates the store's current keys, so Reload sees new ones.
func (s *fakeStore) source(_ context.Context, yield func(string) bool) error {
	for _, k := range s.keys() {
		if !yield(k) {
			return nil
		}
	}
	return nil
}

func numericKeys(n int) []string {
	keys := make([]string, n)
	for i := range n {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}

// harness wires a silent logger with a hook and a manual metric reader.
type harness struct {
	hook   *logtest.Hook
	reader *sdkmetric.ManualReader
	opts   []Option
}

func newHarness(t *testing.T, name string) *harness {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	return &harness{
		hook:   hook,
		reader: reader,
		opts: []Option{
			WithName(name),
			WithLogger(logger),
			WithMeterProvider(mp),
			WithFilterOptions(seedbloom.WithCapacity(1 << 20)),
		},
	}
}

// sum returns the total of an int64 counter over data points whose
// attributes include every key/value in match.
func (h *harness) sum(t *testing.T, name string, match ...attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, h.reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			data, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is %T", name, m.Data)
			for _, dp := range data.DataPoints {
				if hasAttrs(dp.Attributes, match) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func hasAttrs(set attribute.Set, match []attribute.KeyValue) bool {
	for _, kv := range match {
		v, ok := set.Value(kv.Key)
		if !ok || v.Emit() != kv.Value.Emit() {
			return false
		}
	}
	return true
}
