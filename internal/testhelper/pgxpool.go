package testhelper

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func NewTestPgxPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	connString := os.Getenv("DATABASE_URL")

	if connString == "" {
		t.Skipf("skipping due to missing environment variable %v", "DATABASE_URL")
	}

	config, err := pgxpool.ParseConfig(connString)
	require.NoError(t, err)

	pool, err := pgxpool.NewWithConfig(ctx, config)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
	})

	return pool
}
