package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/warehouse-core/pkg/tracing"
)

// Table runs statements against one table with metrics, tracing and query logs
type Table struct {
	pool *Pool
	name string
}

// Name returns the table name
func (t *Table) Name() string {
	return t.name
}

func (t *Table) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return tracing.StartSpan(ctx, tracerName, "postgres."+operation,
		tracing.DatabaseSpanAttributes("postgresql", operation, t.name)...)
}

func (t *Table) record(ctx context.Context, span trace.Span, operation string, start time.Time, rows int64, err error) {
	success := err == nil || errors.Is(err, pgx.ErrNoRows)
	duration := time.Since(start)
	if t.pool.metrics != nil {
		t.pool.metrics.RecordStoreOperation(t.name, operation, success, duration)
	}
	if t.pool.logger != nil {
		t.pool.logger.DatabaseQuery(ctx, t.name, operation, duration, success, rows)
	}
	if success {
		span.SetAttributes(attribute.Int64("db.rows_affected", rows))
		tracing.EndSpan(span, nil)
		return
	}
	tracing.EndSpan(span, err)
}

// Exec runs a statement that returns no rows
func (t *Table) Exec(ctx context.Context, operation, sql string, args ...any) (pgconn.CommandTag, error) {
	start := time.Now()
	ctx, span := t.startSpan(ctx, operation)
	tag, err := t.pool.querier(ctx).Exec(ctx, sql, args...)
	t.record(ctx, span, operation, start, tag.RowsAffected(), err)
	return tag, err
}

// Query runs a statement and hands every row to scan
func (t *Table) Query(ctx context.Context, operation, sql string, scan func(pgx.Rows) error, args ...any) error {
	start := time.Now()
	ctx, span := t.startSpan(ctx, operation)

	var n int64
	err := func() error {
		rows, err := t.pool.querier(ctx).Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			if err := scan(rows); err != nil {
				return err
			}
			n++
		}
		return rows.Err()
	}()

	t.record(ctx, span, operation, start, n, err)
	return err
}

// QueryRow runs a statement returning at most one row and scans it into dest.
// pgx.ErrNoRows is returned untouched.
func (t *Table) QueryRow(ctx context.Context, operation, sql string, args []any, dest ...any) error {
	start := time.Now()
	ctx, span := t.startSpan(ctx, operation)
	err := t.pool.querier(ctx).QueryRow(ctx, sql, args...).Scan(dest...)

	var n int64
	if err == nil {
		n = 1
	}
	t.record(ctx, span, operation, start, n, err)
	return err
}
