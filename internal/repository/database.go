package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Database is a Querier that can also run a unit of work.
type Database interface {
	Querier

	// ExecTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise. fn must use the supplied ctx and
	// Querier for every statement that belongs to the unit of work.
	ExecTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error
}

// TxOptions bounds a unit of work independently of the caller's lifetime.
type TxOptions struct {
	// Timeout caps the whole transaction, including commit.
	Timeout time.Duration

	// LockTimeout caps waits on row locks, such as a contended stock row.
	LockTimeout time.Duration
}

// DefaultTxOptions are used for zero-valued fields.
var DefaultTxOptions = TxOptions{
	Timeout:     5 * time.Second,
	LockTimeout: 2 * time.Second,
}

// PgDatabase implements Database over a pgx pool.
type PgDatabase struct {
	*Queries
	pool *pgxpool.Pool
	opts TxOptions
}

var _ Database = (*PgDatabase)(nil)

// NewDatabase wraps pool. Zero fields in opts fall back to DefaultTxOptions.
func NewDatabase(pool *pgxpool.Pool, opts TxOptions) *PgDatabase {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTxOptions.Timeout
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultTxOptions.LockTimeout
	}
	return &PgDatabase{
		Queries: New(pool),
		pool:    pool,
		opts:    opts,
	}
}

// ExecTx runs on a context detached from the caller's cancellation. The
// transaction is bounded by opts.Timeout and by server-side statement and
// lock timeouts.
func (d *PgDatabase) ExecTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.Timeout)
	defer cancel()

	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", d.opts.Timeout.Milliseconds())); err != nil {
		return fmt.Errorf("set statement timeout: %w", err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", d.opts.LockTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("set lock timeout: %w", err)
	}

	if err := fn(ctx, d.Queries.WithTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Ping checks connectivity for the health endpoint.
func (d *PgDatabase) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}
