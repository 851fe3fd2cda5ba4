package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/questboard/questboard-api/internal/pkg/apperror"
	"github.com/questboard/questboard-api/internal/pkg/metrics"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
)

// TxFunc is one unit of work. It must not commit or roll back tx.
type TxFunc func(ctx context.Context, tx *sqlx.Tx) error

// Transactor runs units of work in a transaction and retries them from the top
// when PostgreSQL reports a lock conflict.
type Transactor struct {
	db          *sqlx.DB
	maxAttempts int
	backoff     time.Duration
}

// NewTransactor creates a transactor. maxAttempts < 1 is treated as 1.
func NewTransactor(db *sqlx.DB, maxAttempts int, backoff time.Duration) *Transactor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Transactor{db: db, maxAttempts: maxAttempts, backoff: backoff}
}

// DB returns the underlying pool for read-only queries.
func (t *Transactor) DB() *sqlx.DB {
	return t.db
}

// WithTx begins a transaction, runs fn and commits. Any error from fn rolls the
// whole unit back. Conflicts are retried; when attempts run out the caller gets
// an UNKNOWN error.
func (t *Transactor) WithTx(ctx context.Context, fn TxFunc) error {
	var err error
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		err = t.run(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}

		metrics.TxConflicts.Inc()
		log.Warn().Err(err).Int("attempt", attempt).Msg("transaction conflict, retrying")

		if attempt < t.maxAttempts && t.backoff > 0 {
			select {
			case <-ctx.Done():
				return apperror.Internal(ctx.Err(), "transaction abandoned")
			case <-time.After(time.Duration(attempt) * t.backoff):
			}
		}
	}
	return apperror.Internal(err, "conflict: transaction retries exhausted")
}

func (t *Transactor) run(ctx context.Context, fn TxFunc) error {
	tx, err := t.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return apperror.Internal(err, "begin tx")
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		if IsRetryable(err) {
			return err
		}
		return apperror.Internal(err, "commit tx")
	}
	return nil
}

// IsRetryable reports whether err is a PostgreSQL lock conflict.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch string(pqErr.Code) {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
		return true
	}
	return false
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// IsForeignKeyViolation reports whether err references a missing row.
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

// IsCheckViolation reports whether err violates the named check constraint.
func IsCheckViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23514" && pqErr.Constraint == constraint
}
