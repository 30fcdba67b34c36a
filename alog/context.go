package alog

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// AddAttr adds a single attribute to ctx. All attrs in ctx will be logged automatically,
// when a logger is called with the ctx.
func AddAttr(ctx context.Context, attr slog.Attr) context.Context {
	return AddAttrs(ctx, attr)
}

// AddAttrs adds multiple attributes to ctx.
func AddAttrs(ctx context.Context, newAttrs ...slog.Attr) context.Context {
	attrs := FromContext(ctx)

	// copy, so a ctx derived from a parent does not change the parent's attributes
	merged := make([]slog.Attr, 0, len(attrs)+len(newAttrs))
	merged = append(merged, attrs...)
	merged = append(merged, newAttrs...)

	return context.WithValue(ctx, ctxKey{}, merged)
}

// FromContext returns all attributes added to ctx.
func FromContext(ctx context.Context) []slog.Attr {
	if attrs, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		return attrs
	}

	return nil
}
