// Package postgres is the PostgreSQL store of the warehouse core. Aggregates
// are kept as JSONB documents next to the columns the queries filter and sort
// on; writes use a version compare-and-swap.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/wms-platform/warehouse-core/internal/domain"
	"github.com/wms-platform/warehouse-core/internal/infrastructure"
	"github.com/wms-platform/warehouse-core/pkg/logging"
	"github.com/wms-platform/warehouse-core/pkg/outbox"
	outboxpg "github.com/wms-platform/warehouse-core/pkg/outbox/postgres"
	pkgpostgres "github.com/wms-platform/warehouse-core/pkg/postgres"
)

// Migrations holds the schema of the store
//
//go:embed migrations/*.sql
var Migrations embed.FS

// NewMigrator returns a migrator for the embedded schema
func NewMigrator(pool *pkgpostgres.Pool, logger *logging.Logger) (*pkgpostgres.Migrator, error) {
	return pkgpostgres.NewMigrator(pool, Migrations, "migrations", logger)
}

// Store implements every repository port on one PostgreSQL database
type Store struct {
	pool *pkgpostgres.Pool

	records     *pkgpostgres.Table
	movements   *pkgpostgres.Table
	inbound     *pkgpostgres.Table
	outbound    *pkgpostgres.Table
	allocations *pkgpostgres.Table
	tasks       *pkgpostgres.Table
	waves       *pkgpostgres.Table
	products    *pkgpostgres.Table
	locations   *pkgpostgres.Table
	sequences   *pkgpostgres.Table

	outbox *outboxpg.OutboxRepository
	events *infrastructure.OutboxEvents
}

// NewStore binds the store to pool; events go to topic
func NewStore(pool *pkgpostgres.Pool, topic string) *Store {
	return &Store{
		pool:        pool,
		records:     pool.Table("inventory_records"),
		movements:   pool.Table("inventory_movements"),
		inbound:     pool.Table("inbound_orders"),
		outbound:    pool.Table("outbound_orders"),
		allocations: pool.Table("allocations"),
		tasks:       pool.Table("pick_tasks"),
		waves:       pool.Table("waves"),
		products:    pool.Table("products"),
		locations:   pool.Table("locations"),
		sequences:   pool.Table("sequences"),
		outbox:      outboxpg.NewOutboxRepository(pool),
		events:      infrastructure.NewOutboxEvents(topic),
	}
}

// Repositories exposes the store through the domain ports
func (s *Store) Repositories() domain.Repositories {
	return domain.Repositories{
		Tx:          s,
		Inventory:   &inventoryRepository{s},
		Inbound:     &inboundRepository{s},
		Outbound:    &outboundRepository{s},
		Allocations: &allocationRepository{s},
		PickTasks:   &pickTaskRepository{s},
		Waves:       &waveRepository{s},
		Products:    &catalog{s},
		Locations:   &catalog{s},
		Sequences:   &sequences{s},
		Events:      &eventSink{s},
	}
}

// Outbox exposes the outbox table to the publisher
func (s *Store) Outbox() outbox.Repository {
	return s.outbox
}

// HealthCheck pings the database
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.HealthCheck(ctx)
}

// WithTransaction runs fn in one transaction. Serialization failures and
// deadlocks are reported as concurrent modifications.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	err := s.pool.WithTransaction(ctx, fn)
	if err != nil && pkgpostgres.IsConflict(err) && !isDomainError(err) {
		return fmt.Errorf("%w: transaction aborted: %v", domain.ErrConcurrentModification, err)
	}
	return err
}

// versioned describes one aggregate row: the document plus the projected
// columns beyond id, tenant_id, version and doc.
type versioned struct {
	table   *pkgpostgres.Table
	entity  string
	id      string
	tenant  string
	columns []string
	values  []any
}

// save inserts the row at version 0 or updates it when the stored version
// still equals *version. On success *version is the new version; doc is
// encoded after the increment so the stored document carries it.
func (v versioned) save(ctx context.Context, version *int64, doc any) error {
	expected := *version
	*version = expected + 1

	payload, err := json.Marshal(doc)
	if err != nil {
		*version = expected
		return fmt.Errorf("failed to encode %s %s: %w", v.entity, v.id, err)
	}

	args := append([]any{v.id, v.tenant, *version, payload}, v.values...)
	var q string
	if expected == 0 {
		cols := append([]string{"id", "tenant_id", "version", "doc"}, v.columns...)
		q = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", v.table.Name(), strings.Join(cols, ", "), placeholders(1, len(cols)))
	} else {
		sets := []string{"version = $3", "doc = $4"}
		for i, c := range v.columns {
			sets = append(sets, fmt.Sprintf("%s = $%d", c, i+5))
		}
		args = append(args, expected)
		q = fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 AND tenant_id = $2 AND version = $%d",
			v.table.Name(), strings.Join(sets, ", "), len(args))
	}

	tag, err := v.table.Exec(ctx, "save", q, args...)
	if err != nil {
		*version = expected
		return writeError(err, v.entity, v.id)
	}
	if tag.RowsAffected() == 0 {
		*version = expected
		var exists bool
		err := v.table.QueryRow(ctx, "exists",
			fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND tenant_id = $2)", v.table.Name()),
			[]any{v.id, v.tenant}, &exists)
		if err != nil {
			return fmt.Errorf("failed to check %s %s: %w", v.entity, v.id, err)
		}
		if !exists {
			return domain.NotFound(v.entity, v.id)
		}
		return concurrent(v.entity, v.id)
	}
	return nil
}

// getOne decodes the document of id scoped to tenantID
func getOne[T any](ctx context.Context, table *pkgpostgres.Table, entity, tenantID, id string) (*T, error) {
	var doc []byte
	err := table.QueryRow(ctx, "get",
		fmt.Sprintf("SELECT doc FROM %s WHERE id = $1 AND tenant_id = $2", table.Name()),
		[]any{id, tenantID}, &doc)
	if err != nil {
		if pkgpostgres.IsNoRows(err) {
			return nil, domain.NotFound(entity, id)
		}
		return nil, fmt.Errorf("failed to get %s %s: %w", entity, id, err)
	}
	var out T
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s %s: %w", entity, id, err)
	}
	return &out, nil
}

// findAll decodes the documents selected by q
func findAll[T any](ctx context.Context, table *pkgpostgres.Table, q *query) ([]*T, error) {
	var out []*T
	err := table.Query(ctx, "find", q.sql(table.Name()), func(rows pgx.Rows) error {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return err
		}
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			return err
		}
		out = append(out, &v)
		return nil
	}, q.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table.Name(), err)
	}
	return out, nil
}

// query assembles a filtered, ordered and paged SELECT of doc
type query struct {
	conds  []string
	args   []any
	order  string
	limit  int
	offset int
}

func newQuery(tenantID string) *query {
	q := &query{}
	q.eq("tenant_id", tenantID)
	return q
}

func (q *query) eq(column string, value any) *query {
	q.args = append(q.args, value)
	q.conds = append(q.conds, fmt.Sprintf("%s = $%d", column, len(q.args)))
	return q
}

// eqIf adds the condition unless value is empty
func (q *query) eqIf(column, value string) *query {
	if value == "" {
		return q
	}
	return q.eq(column, value)
}

// in adds column = ANY(values) unless values is empty
func (q *query) in(column string, values []string) *query {
	if len(values) == 0 {
		return q
	}
	q.args = append(q.args, values)
	q.conds = append(q.conds, fmt.Sprintf("%s = ANY($%d)", column, len(q.args)))
	return q
}

func (q *query) where(cond string) *query {
	q.conds = append(q.conds, cond)
	return q
}

// page orders oldest first, ties by tiebreak
func (q *query) page(tiebreak string, limit, offset int) *query {
	q.order = "created_at, " + tiebreak
	q.limit = limit
	q.offset = offset
	return q
}

func (q *query) sql(table string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT doc FROM %s WHERE %s", table, strings.Join(q.conds, " AND "))
	if q.order != "" {
		b.WriteString(" ORDER BY " + q.order)
	}
	if q.limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.limit)
	}
	if q.offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.offset)
	}
	return b.String()
}

func placeholders(from, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ph, ", ")
}

func writeError(err error, entity, id string) error {
	if pkgpostgres.IsUniqueViolation(err) || pkgpostgres.IsConflict(err) {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrConcurrentModification, entity, id, err)
	}
	return fmt.Errorf("failed to save %s %s: %w", entity, id, err)
}

func concurrent(entity, id string) error {
	return fmt.Errorf("%w: %s %s", domain.ErrConcurrentModification, entity, id)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidQuantity, domain.ErrInsufficientAvailable, domain.ErrInsufficientReserved,
		domain.ErrInvalidAdjustment, domain.ErrInvalidState, domain.ErrConcurrentModification,
		domain.ErrNotFound, domain.ErrInvalidArgument,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
