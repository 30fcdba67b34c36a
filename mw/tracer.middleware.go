package mw

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "ipquery.middleware"

// Traced wraps a stage in its own span.
func Traced[in, out any, F DecoratorFunc[in, out]](traceProvider trace.TracerProvider, next F) F { //nolint:ireturn
	tracer := traceProvider.Tracer(instrumentationName)

	return func(ctx context.Context, in in) (out, error) {
		newCtx, span := tracer.Start(ctx, "stage",
			trace.WithAttributes(attribute.String("stage", stageName(in))),
		)
		defer span.End()

		result, err := next(newCtx, in)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}

		return result, err
	}
}

// TracedU see Traced.
func TracedU[in any, F DecoratorFuncUnary[in]](traceProvider trace.TracerProvider, next F) F { //nolint:ireturn
	tracer := traceProvider.Tracer(instrumentationName)

	return func(ctx context.Context, in in) error {
		newCtx, span := tracer.Start(ctx, "stage",
			trace.WithAttributes(attribute.String("stage", stageName(in))),
		)
		defer span.End()

		err := next(newCtx, in)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}

		return err
	}
}
