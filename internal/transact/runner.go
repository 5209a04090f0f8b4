// Package transact runs units of work inside serializable transactions,
// retrying when the store reports a concurrent modification.
package transact

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hermodapp/hermod-backend/internal/domain"
)

// MaxRetries is how many times a conflicting unit of work is re-run after its
// first attempt.
const MaxRetries = 128

// Beginner is the slice of pgxpool.Pool the runner needs.
type Beginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Run executes fn inside a serializable transaction against db. When the
// commit or fn itself reports a serialization failure the transaction is
// rolled back and fn is re-run from scratch, so fn must not have side effects
// outside the transaction. Once the retry budget is spent Run fails with
// domain.ErrTooManyConcurrentAccesses.
func Run(ctx context.Context, db Beginner, fn func(tx pgx.Tx) error) error {
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		err := runOnce(ctx, db, fn)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
	}

	return domain.ErrTooManyConcurrentAccesses
}

func runOnce(ctx context.Context, db Beginner, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}

	// No-op after a successful commit, otherwise discards whatever the
	// attempt left behind.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	// serialization_failure, deadlock_detected
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
