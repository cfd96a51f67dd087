package guard

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/jcalabro/seedbloom/guard"

const (
	kindWhiteList = "whitelist"
	kindBlackList = "blacklist"
)

// telemetry bundles the logger, tracer and instruments of one guard.
type telemetry struct {
	log    logrus.FieldLogger
	tracer trace.Tracer
	attrs  []attribute.KeyValue

	decisions       metric.Int64Counter
	marks           metric.Int64Counter
	preloads        metric.Int64Counter
	lookupErrors    metric.Int64Counter
	preloadDuration metric.Float64Histogram
}

func newTelemetry(kind string, o options) (*telemetry, error) {
	meter := o.meterProvider.Meter(instrumentationName)

	decisions, err := meter.Int64Counter(
		"seedbloom.guard.decisions",
		metric.WithDescription("Filter decisions taken by the guard"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	marks, err := meter.Int64Counter(
		"seedbloom.guard.marks",
		metric.WithDescription("Keys added to a black-list after a read-path miss"),
		metric.WithUnit("{key}"),
	)
	if err != nil {
		return nil, err
	}

	preloads, err := meter.Int64Counter(
		"seedbloom.guard.preloads",
		metric.WithDescription("Filter rebuilds (preload, reload, reset)"),
		metric.WithUnit("{rebuild}"),
	)
	if err != nil {
		return nil, err
	}

	lookupErrors, err := meter.Int64Counter(
		"seedbloom.guard.lookup.errors",
		metric.WithDescription("Read-path errors passed through the guard"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	preloadDuration, err := meter.Float64Histogram(
		"seedbloom.guard.preload.duration_ms",
		metric.WithDescription("Time spent building a replacement filter"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &telemetry{
		log: o.logger.WithFields(logrus.Fields{
			"guard": kind,
			"name":  o.name,
		}),
		tracer: o.tracerProvider.Tracer(instrumentationName),
		attrs: []attribute.KeyValue{
			attribute.String("guard.kind", kind),
			attribute.String("guard.name", o.name),
		},
		decisions:       decisions,
		marks:           marks,
		preloads:        preloads,
		lookupErrors:    lookupErrors,
		preloadDuration: preloadDuration,
	}, nil
}

func (t *telemetry) with(extra ...attribute.KeyValue) metric.MeasurementOption {
	attrs := make([]attribute.KeyValue, 0, len(t.attrs)+len(extra))
	attrs = append(attrs, t.attrs...)
	attrs = append(attrs, extra...)
	return metric.WithAttributes(attrs...)
}

// startGet opens the span around a guarded Get.
func (t *telemetry) startGet(ctx context.Context, name string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(t.attrs...))
}

func (t *telemetry) decision(ctx context.Context, span trace.Span, d Decision) {
	span.SetAttributes(attribute.String("guard.decision", d.String()))
	t.decisions.Add(ctx, 1, t.with(attribute.String("decision", d.String())))
}

func (t *telemetry) lookupError(ctx context.Context, span trace.Span, key string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	t.lookupErrors.Add(ctx, 1, t.with())
	t.log.WithError(err).WithField("key", key).Debug("read path failed")
}

func (t *telemetry) mark(ctx context.Context, key string) {
	t.marks.Add(ctx, 1, t.with())
	t.log.WithField("key", key).Debug("key marked absent")
}

func (t *telemetry) rebuilt(ctx context.Context, op string, keys int, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	opt := t.with(attribute.String("op", op), attribute.String("outcome", outcome))
	t.preloads.Add(ctx, 1, opt)
	t.preloadDuration.Record(ctx, float64(elapsed.Milliseconds()), opt)

	entry := t.log.WithFields(logrus.Fields{
		"op":      op,
		"keys":    keys,
		"elapsed": elapsed,
	})
	if err != nil {
		entry.WithError(err).Warn("filter rebuild failed, keeping previous filter")
		return
	}
	entry.Info("filter swapped in")
}
