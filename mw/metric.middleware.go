package mw

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric wraps a stage with metric measurements.
//
// This middleware provides two metrics:
// ipquery_stages_total as a counter of all stage calls and
// ipquery_stages_duration_seconds as a histogram of their execution time.
// Both carry the attributes stage and status (success or failure).
func Metric[in, out any, F DecoratorFunc[in, out]](meterProvider metric.MeterProvider, next F) F { //nolint:ireturn,lll // valid use of generics
	counter, duration := instruments(meterProvider)

	return func(ctx context.Context, in in) (out, error) {
		start := time.Now()

		result, err := next(ctx, in)

		opt := measurementAttributes(stageName(in), err)
		counter.Add(ctx, 1, opt)
		duration.Record(ctx, time.Since(start).Seconds(), opt)

		return result, err
	}
}

// MetricU see Metric.
func MetricU[in any, F DecoratorFuncUnary[in]](meterProvider metric.MeterProvider, next F) F { //nolint:ireturn,lll // valid use of generics
	counter, duration := instruments(meterProvider)

	return func(ctx context.Context, in in) error {
		start := time.Now()

		err := next(ctx, in)

		opt := measurementAttributes(stageName(in), err)
		counter.Add(ctx, 1, opt)
		duration.Record(ctx, time.Since(start).Seconds(), opt)

		return err
	}
}

func instruments(meterProvider metric.MeterProvider) (metric.Int64Counter, metric.Float64Histogram) {
	meter := meterProvider.Meter(instrumentationName)

	// errors are ignored on purpose: the otel api returns a working noop instrument in that case.
	counter, _ := meter.Int64Counter("ipquery_stages", metric.WithDescription("calls of a middleware stage"))
	duration, _ := meter.Float64Histogram("ipquery_stages_duration_seconds",
		metric.WithDescription("duration of a middleware stage"))

	return counter, duration
}

func measurementAttributes(stage string, err error) metric.MeasurementOption { //nolint:ireturn // otel api
	status := "success"
	if err != nil {
		status = "failure"
	}

	return metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	)
}
