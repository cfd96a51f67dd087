package guard

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcalabro/seedbloom"
)

type options struct {
	name           string
	filterOpts     []seedbloom.Option
	logger         logrus.FieldLogger
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// Option configures a guard.
type Option func(*options)

func defaultOptions() options {
	return options{
		name:           "default",
		logger:         logrus.StandardLogger(),
		meterProvider:  otel.GetMeterProvider(),
		tracerProvider: otel.GetTracerProvider(),
	}
}

// WithName labels the guard in logs and metrics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithFilterOptions configures every filter the guard builds, including
// those built by Reload and Reset.
func WithFilterOptions(opts ...seedbloom.Option) Option {
	return func(o *options) {
		o.filterOpts = append(o.filterOpts, opts...)
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// Config is a declarative description of a guard's filter. The zero value
// selects the seedbloom defaults.
type Config struct {
	Name string

	// Capacity in bits. Mutually exclusive with ExpectedItems.
	Capacity uint64
	// Seeds of the hash family. Defaults to seedbloom.DefaultSeeds.
	Seeds []uint32

	// ExpectedItems and FalsePositiveRate size the filter with
	// seedbloom.OptimalParams.
	ExpectedItems     uint64
	FalsePositiveRate float64

	// Strict locks each filter operation end to end.
	Strict bool
	// Bitset selects bitset storage (implies Strict).
	Bitset bool
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Capacity > 0 && c.ExpectedItems > 0 {
		return fmt.Errorf("%w: capacity and expected items are mutually exclusive", ErrInvalidConfig)
	}
	if c.Capacity > seedbloom.MaxCapacity {
		return fmt.Errorf("%w: capacity %d exceeds %d", ErrInvalidConfig, c.Capacity, uint64(seedbloom.MaxCapacity))
	}
	if c.ExpectedItems > 0 && (c.FalsePositiveRate <= 0 || c.FalsePositiveRate >= 1) {
		return fmt.Errorf("%w: false positive rate must be in (0, 1), got %f", ErrInvalidConfig, c.FalsePositiveRate)
	}
	if c.ExpectedItems > 0 && len(c.Seeds) > 0 {
		return fmt.Errorf("%w: seeds cannot be combined with expected items", ErrInvalidConfig)
	}
	seeds := slices.Clone(c.Seeds)
	slices.Sort(seeds)
	if len(slices.Compact(seeds)) != len(c.Seeds) {
		return fmt.Errorf("%w: seeds must be distinct", ErrInvalidConfig)
	}
	return nil
}

// Options converts the configuration into guard options. Call Validate first.
func (c *Config) Options() []Option {
	var fopts []seedbloom.Option
	switch {
	case c.ExpectedItems > 0:
		fopts = append(fopts, seedbloom.WithEstimates(c.ExpectedItems, c.FalsePositiveRate))
	case c.Capacity > 0:
		fopts = append(fopts, seedbloom.WithCapacity(c.Capacity))
	}
	if len(c.Seeds) > 0 {
		fopts = append(fopts, seedbloom.WithSeeds(c.Seeds...))
	}
	if c.Strict {
		fopts = append(fopts, seedbloom.WithStrict())
	}
	if c.Bitset {
		fopts = append(fopts, seedbloom.WithBitset())
	}

	opts := []Option{WithFilterOptions(fopts...)}
	if c.Name != "" {
		opts = append(opts, WithName(c.Name))
	}
	return opts
}
