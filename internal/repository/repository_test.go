// Integration tests for the repositories. They spin up a PostgreSQL
// container with testcontainers-go and run the real embedded migrations;
// the suite is skipped when Docker is not available.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"lotto-ledger/internal/model"
	"lotto-ledger/internal/pkg/db"
)

// checkDockerAvailable checks if Docker is available and running.
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestDB creates a PostgreSQL container, applies the embedded
// migrations and returns a connection pool.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, db.Migrate(connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func TestPlayerRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	repo := NewPlayerRepository(pool)

	player, err := repo.Create(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), player.Balance)
	assert.True(t, player.Active)

	got, err := repo.GetByID(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, player.ID, got.ID)

	_, err = repo.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	updated, err := repo.AdjustBalance(ctx, player.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), updated.Balance)

	updated, err = repo.AdjustBalance(ctx, player.ID, -120)
	require.NoError(t, err)
	assert.Equal(t, int64(380), updated.Balance)

	require.NoError(t, repo.SetActive(ctx, player.ID, false))
	got, err = repo.GetByID(ctx, player.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	assert.ErrorIs(t, repo.SetActive(ctx, 99999, true), ErrPlayerNotFound)
}

func TestPricingRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	repo := NewPricingRepository(pool)

	// The seed migration configures sizes 5 through 8.
	price, err := repo.UnitPrice(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(20), price)

	_, err = repo.UnitPrice(ctx, 9)
	assert.ErrorIs(t, err, ErrNoPriceRow)

	table, err := repo.Table(ctx)
	require.NoError(t, err)
	require.Len(t, table, 4)
	assert.Equal(t, 5, table[0].TicketSize)
}

func TestDrawRepositoryUniqueness(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	repo := NewDrawRepository(pool)

	draw, err := repo.Insert(ctx, 2025, 10, []int{2, 5, 9})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5, 9}, draw.WinningNumbers)

	// Second insert for the same (year, week) must lose, regardless of
	// the numbers it carries.
	_, err = repo.Insert(ctx, 2025, 10, []int{1, 2, 3})
	assert.ErrorIs(t, err, ErrDrawExists)

	// The original numbers survive.
	got, err := repo.GetByID(ctx, draw.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5, 9}, got.WinningNumbers)

	locked, err := repo.Exists(ctx, 2025, 10)
	require.NoError(t, err)
	assert.True(t, locked)

	locked, err = repo.Exists(ctx, 2025, 11)
	require.NoError(t, err)
	assert.False(t, locked)

	_, err = repo.Insert(ctx, 2025, 11, []int{4, 8, 12})
	require.NoError(t, err)

	history, err := repo.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 11, history[0].Week, "newest first")
}

func TestBoardRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	players := NewPlayerRepository(pool)
	draws := NewDrawRepository(pool)
	repeats := NewRepeatRepository(pool)
	boards := NewBoardRepository(pool)

	player, err := players.Create(ctx, "bob")
	require.NoError(t, err)

	// An open board carries its purchase week and no draw.
	open, err := boards.Insert(ctx, player.ID, 2025, 10, []int{2, 5, 9, 11, 14}, 1, 20, nil)
	require.NoError(t, err)
	assert.Nil(t, open.DrawID)
	assert.Nil(t, open.IsWinner)

	loser, err := boards.Insert(ctx, player.ID, 2025, 10, []int{1, 3, 4, 6, 7}, 2, 40, nil)
	require.NoError(t, err)

	draw, err := draws.Insert(ctx, 2025, 10, []int{2, 5, 9})
	require.NoError(t, err)

	claimed, err := boards.ClaimWeek(ctx, 2025, 10, draw.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), claimed)

	evaluated, err := boards.EvaluateDraw(ctx, draw.ID, draw.WinningNumbers)
	require.NoError(t, err)
	assert.Equal(t, int64(2), evaluated)

	// Re-running the evaluation touches nothing.
	evaluated, err = boards.EvaluateDraw(ctx, draw.ID, draw.WinningNumbers)
	require.NoError(t, err)
	assert.Equal(t, int64(0), evaluated)

	got, err := boards.GetByID(ctx, open.ID)
	require.NoError(t, err)
	require.NotNil(t, got.IsWinner)
	assert.True(t, *got.IsWinner)

	got, err = boards.GetByID(ctx, loser.ID)
	require.NoError(t, err)
	require.NotNil(t, got.IsWinner)
	assert.False(t, *got.IsWinner)

	winners, err := boards.WinnersForDraw(ctx, draw.ID)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Equal(t, open.ID, winners[0].ID)

	// Repeat board idempotency: one board per (repeat, draw).
	repeat, err := repeats.Insert(ctx, player.ID, []int{2, 5, 9, 11, 14}, 1, 20, 3)
	require.NoError(t, err)

	first, inserted, err := boards.InsertForRepeat(ctx, repeat.ID, player.ID, draw.ID, 2025, 10, repeat.Numbers, repeat.Times, 20)
	require.NoError(t, err)
	assert.True(t, inserted)
	require.NotNil(t, first.RepeatID)

	second, inserted, err := boards.InsertForRepeat(ctx, repeat.ID, player.ID, draw.ID, 2025, 10, repeat.Numbers, repeat.Times, 20)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Nil(t, second)
}

func TestRepeatRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	players := NewPlayerRepository(pool)
	repo := NewRepeatRepository(pool)

	player, err := players.Create(ctx, "carol")
	require.NoError(t, err)

	repeat, err := repo.Insert(ctx, player.ID, []int{1, 2, 3, 4, 5}, 2, 40, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, repeat.RemainingWeeks)
	assert.False(t, repeat.OptedOut)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	dec, err := repo.DecrementWeeks(ctx, repeat.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, dec.RemainingWeeks)

	// Stop is scoped to the owner.
	assert.ErrorIs(t, repo.Stop(ctx, player.ID+1, repeat.ID), ErrRepeatNotFound)

	require.NoError(t, repo.Stop(ctx, player.ID, repeat.ID))
	got, err := repo.GetByID(ctx, repeat.ID)
	require.NoError(t, err)
	assert.True(t, got.OptedOut)
	assert.Equal(t, 0, got.RemainingWeeks)

	// Stopping again is a no-op, not an error.
	require.NoError(t, repo.Stop(ctx, player.ID, repeat.ID))

	active, err = repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestLedgerRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	players := NewPlayerRepository(pool)
	repo := NewLedgerRepository(pool)

	player, err := players.Create(ctx, "dora")
	require.NoError(t, err)

	ref := "campaign-topup"
	entry, err := repo.Insert(ctx, player.ID, model.KindDeposit, 200, model.StatusPending, nil, "11111111-2222-3333-4444-555555555555", &ref)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, entry.Status)
	assert.Nil(t, entry.ProcessedAt)

	sum, err := repo.SumApproved(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum, "pending entries carry no balance")

	resolved, ok, err := repo.ResolvePending(ctx, entry.ID, model.StatusApproved, 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.StatusApproved, resolved.Status)
	require.NotNil(t, resolved.ProcessedBy)
	assert.Equal(t, int64(42), *resolved.ProcessedBy)
	assert.NotNil(t, resolved.ProcessedAt)

	// A second resolution finds nothing pending.
	again, ok, err := repo.ResolvePending(ctx, entry.ID, model.StatusRejected, 42)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, again)

	got, err := repo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)

	sum, err = repo.SumApproved(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), sum)

	_, err = repo.Insert(ctx, player.ID, model.KindPurchase, -50, model.StatusApproved, nil, "66666666-7777-8888-9999-000000000000", nil)
	require.NoError(t, err)

	sum, err = repo.SumApproved(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), sum)

	entries, err := repo.ListByPlayer(ctx, player.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.KindPurchase, entries[0].Kind, "newest first")

	pending, err := repo.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = repo.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}
