package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotto-ledger/internal/pkg/db"
)

func TestStorageCtxAppliesQueryTimeout(t *testing.T) {
	pool := &db.Pool{}

	before := time.Now()
	ctx, cancel := storageCtx(context.Background(), pool)
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok, "every storage operation must carry a deadline")
	assert.WithinDuration(t, before.Add(pool.QueryTimeout()), deadline, time.Second)
}

func TestWrapStorage(t *testing.T) {
	assert.NoError(t, wrapStorage(nil))

	// Timeouts and connection failures become the retriable sentinel.
	assert.ErrorIs(t, wrapStorage(context.DeadlineExceeded), ErrStorageUnavailable)
	assert.ErrorIs(t, wrapStorage(&pgconn.PgError{Code: "08006"}), ErrStorageUnavailable)

	// Business sentinels and other database errors pass through.
	assert.ErrorIs(t, wrapStorage(ErrPlayerNotFound), ErrPlayerNotFound)
	wrapped := wrapStorage(fmt.Errorf("insert failed: %w", &pgconn.PgError{Code: "23505"}))
	assert.NotErrorIs(t, wrapped, ErrStorageUnavailable)
}
