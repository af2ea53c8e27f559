package postgres

//go:generate go run go.uber.org/mock/mockgen -source=./tx.go -destination=./mocks/tx_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"unibook/config"
	"unibook/shared/constant"
	"unibook/shared/failure"
)

const (
	defaultTxMaxAttempts    = 3
	defaultTxRetryBackoffMS = 50
	defaultTxLockTimeoutMS  = 3000
)

// Txer runs a function inside a single database transaction on the write
// connection. Serialization failures, deadlocks and lock timeouts are retried
// a bounded number of times with backoff before being surfaced as a transient
// store error.
type Txer interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) error
}

type txerImpl struct {
	db          *Connection
	maxAttempts int
	backoff     time.Duration
	lockTimeout time.Duration
}

func NewTxer(db *Connection, cfg *config.Config) Txer {
	maxAttempts := cfg.DB.Postgres.Tx.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultTxMaxAttempts
	}

	backoffMS := cfg.DB.Postgres.Tx.RetryBackoffMS
	if backoffMS <= 0 {
		backoffMS = defaultTxRetryBackoffMS
	}

	lockTimeoutMS := cfg.DB.Postgres.Tx.LockTimeoutMS
	if lockTimeoutMS <= 0 {
		lockTimeoutMS = defaultTxLockTimeoutMS
	}

	return &txerImpl{
		db:          db,
		maxAttempts: maxAttempts,
		backoff:     time.Duration(backoffMS) * time.Millisecond,
		lockTimeout: time.Duration(lockTimeoutMS) * time.Millisecond,
	}
}

func (t *txerImpl) WithinTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	var err error

	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		err = t.runOnce(ctx, fn)
		if err == nil {
			return nil
		}

		if !IsTransientError(err) {
			return err
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("maxAttempts", t.maxAttempts).
			Msg("transient store error, retrying transaction")

		if attempt < t.maxAttempts {
			time.Sleep(t.backoff * time.Duration(attempt))
		}
	}

	return failure.ServiceUnavailable("store is contended, retry later") //nolint:wrapcheck
}

func (t *txerImpl) runOnce(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) (err error) {
	tx, err := t.db.Write.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()

			panic(p)
		}

		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Msg("failed to roll back transaction")
			}
		}
	}()

	// Bound lock waits so contended transactions fail fast and hit the retry
	// policy instead of hanging.
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", int(t.lockTimeout.Milliseconds()))); err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}

	if err = fn(ctx, tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// IsTransientError reports whether the error is a serialization failure,
// deadlock or lock timeout that is safe to retry.
func IsTransientError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	code := string(pqErr.Code)

	return code == constant.PqErrorCodeSerializationFailure ||
		code == constant.PqErrorCodeDeadlockDetected ||
		code == constant.PqErrorCodeLockNotAvailable
}

// IsUniqueViolation reports whether the error is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	return string(pqErr.Code) == constant.PqErrorCodeUniqueViolation
}
