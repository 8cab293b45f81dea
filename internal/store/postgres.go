package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/donaldgifford/storefront-proxy/pkg/types"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool    *pgxpool.Pool
	nowFunc func() time.Time
}

// NewPostgresStore connects and pings. Pool sizing comes from the
// connection string (pool_max_conns).
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool, nowFunc: time.Now}, nil
}

// Close shuts down the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) ([]string, error) {
	return RunMigrations(ctx, s.pool)
}

// RecordSearch inserts a search event, assigning ID and CreatedAt if unset.
func (s *PostgresStore) RecordSearch(ctx context.Context, e *domain.SearchEvent) error {
	s.stamp(&e.ID, &e.CreatedAt)

	_, err := s.pool.Exec(ctx, queryInsertSearchEvent, pgx.NamedArgs{
		"id":           e.ID,
		"term":         e.Term,
		"offset_value": e.Offset,
		"limit_value":  e.Limit,
		"results":      e.Results,
		"cached":       e.Cached,
		"status":       e.Status,
		"created_at":   e.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("inserting search event: %w", err)
	}
	return nil
}

// RecordClick inserts a click event, assigning ID and CreatedAt if unset.
func (s *PostgresStore) RecordClick(ctx context.Context, e *domain.ClickEvent) error {
	s.stamp(&e.ID, &e.CreatedAt)

	_, err := s.pool.Exec(ctx, queryInsertClickEvent, pgx.NamedArgs{
		"id":         e.ID,
		"target_url": e.TargetURL,
		"item_id":    e.ItemID,
		"created_at": e.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("inserting click event: %w", err)
	}
	return nil
}

// ListSearchEvents returns matching search events, newest first, and the
// total number of matches.
func (s *PostgresStore) ListSearchEvents(
	ctx context.Context,
	q *EventQuery,
) ([]domain.SearchEvent, int, error) {
	if q == nil {
		q = &EventQuery{}
	}
	dataSQL, countSQL, args, countArgs := q.ToSQL()

	var total int
	if err := s.pool.QueryRow(ctx, countSQL, args[:countArgs]...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting search events: %w", err)
	}

	rows, err := s.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying search events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.SearchEvent, 0)
	for rows.Next() {
		var e domain.SearchEvent
		if err := rows.Scan(
			&e.ID, &e.Term, &e.Offset, &e.Limit, &e.Results, &e.Cached, &e.Status, &e.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning search event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating search events: %w", err)
	}

	return events, total, nil
}

// TopQueries returns the most frequent successful search terms since the
// given time.
func (s *PostgresStore) TopQueries(
	ctx context.Context,
	since time.Time,
	limit int,
) ([]domain.QueryCount, error) {
	rows, err := s.pool.Query(ctx, queryTopQueries, since, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top queries: %w", err)
	}

	counts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.QueryCount, error) {
		var qc domain.QueryCount
		err := row.Scan(&qc.Term, &qc.Count)
		return qc, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning top queries: %w", err)
	}
	return counts, nil
}

// AcquireSchedulerLock takes the named job lock for holder unless another
// holder owns an unexpired one.
func (s *PostgresStore) AcquireSchedulerLock(
	ctx context.Context,
	jobName string,
	holder string,
	ttl time.Duration,
) (bool, error) {
	var got string
	err := s.pool.QueryRow(ctx, queryAcquireSchedulerLock, jobName, holder, s.nowFunc().Add(ttl)).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquiring scheduler lock: %w", err)
	}
	return true, nil
}

// ReleaseSchedulerLock drops the named job lock if holder owns it.
func (s *PostgresStore) ReleaseSchedulerLock(ctx context.Context, jobName, holder string) error {
	if _, err := s.pool.Exec(ctx, queryReleaseSchedulerLock, jobName, holder); err != nil {
		return fmt.Errorf("releasing scheduler lock: %w", err)
	}
	return nil
}

func (s *PostgresStore) stamp(id *string, at *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if at.IsZero() {
		*at = s.nowFunc().UTC()
	}
}
