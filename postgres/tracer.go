package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey struct{}

var _ pgx.QueryTracer = (*queryTracer)(nil)

// queryTracer records a span for each query.
// The arguments are not recorded, they contain the client IPs.
type queryTracer struct {
	tracer trace.Tracer
}

func (p queryTracer) TraceQueryStart(
	ctx context.Context,
	conn *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	ctx, span := p.tracer.Start(ctx, "pgx", trace.WithAttributes(
		attribute.String("db_host", conn.Config().Host),
		attribute.Int("db_port", int(conn.Config().Port)),
		attribute.String("db_database", conn.Config().Database),
		attribute.String("db_user", conn.Config().User),
		attribute.String("sql", data.SQL),
		attribute.Int("sql_args", len(data.Args)),
	))

	return context.WithValue(ctx, ctxKey{}, span)
}

func (p queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(ctxKey{}).(trace.Span)
	if !ok {
		return
	}

	span.SetAttributes(attribute.Int64("sql_rows_affected", data.CommandTag.RowsAffected()))

	if data.Err != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("query failed: %v", data.Err))
	}

	span.End()
}
