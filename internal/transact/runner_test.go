package transact_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermodapp/hermod-backend/internal/domain"
	"github.com/hermodapp/hermod-backend/internal/transact"
)

type fakeDB struct {
	begins    int
	commits   int
	rollbacks int
}

func (db *fakeDB) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	db.begins++
	return &fakeTx{db: db}, nil
}

type fakeTx struct {
	pgx.Tx
	db   *fakeDB
	done bool
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	tx.done = true
	tx.db.commits++
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.done = true
	tx.db.rollbacks++
	return nil
}

func serializationFailure() error {
	return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
}

func TestRun_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := &fakeDB{}

	calls := 0
	err := transact.Run(ctx, db, func(tx pgx.Tx) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, db.commits)
	assert.Equal(t, 0, db.rollbacks)
}

func TestRun_RetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := &fakeDB{}

	attempts := 0
	err := transact.Run(ctx, db, func(tx pgx.Tx) error {
		attempts++
		if attempts < 5 {
			return serializationFailure()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 5, attempts)
	assert.Equal(t, 1, db.commits)
	assert.Equal(t, 4, db.rollbacks)
}

func TestRun_ExhaustsRetryBudget(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := &fakeDB{}

	attempts := 0
	err := transact.Run(ctx, db, func(tx pgx.Tx) error {
		attempts++
		return serializationFailure()
	})

	assert.Equal(t, domain.ErrTooManyConcurrentAccesses, err)
	assert.Equal(t, transact.MaxRetries+1, attempts)
	assert.Equal(t, 0, db.commits)
	assert.Equal(t, transact.MaxRetries+1, db.rollbacks)
}

func TestRun_DoesNotRetryOtherErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := &fakeDB{}
	boom := errors.New("boom")

	attempts := 0
	err := transact.Run(ctx, db, func(tx pgx.Tx) error {
		attempts++
		return boom
	})

	assert.Equal(t, boom, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 0, db.commits)
	assert.Equal(t, 1, db.rollbacks)
}
