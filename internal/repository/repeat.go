package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lotto-ledger/internal/model"
)

// ErrRepeatNotFound is returned when a repeat does not exist (or belongs
// to a different player than the caller claims).
var ErrRepeatNotFound = errors.New("repeat not found")

const repeatColumns = "id, player_id, numbers, times, price_per_week, remaining_weeks, opted_out, created_at, updated_at"

// RepeatRepository handles standing repeat-order persistence.
type RepeatRepository struct {
	db Querier
}

// NewRepeatRepository creates a new RepeatRepository instance.
func NewRepeatRepository(pool *pgxpool.Pool) *RepeatRepository {
	return &RepeatRepository{db: pool}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *RepeatRepository) WithTx(tx pgx.Tx) *RepeatRepository {
	return &RepeatRepository{db: tx}
}

func scanRepeat(row pgx.Row) (*model.Repeat, error) {
	var rep model.Repeat
	err := row.Scan(
		&rep.ID,
		&rep.PlayerID,
		&rep.Numbers,
		&rep.Times,
		&rep.PricePerWeek,
		&rep.RemainingWeeks,
		&rep.OptedOut,
		&rep.CreatedAt,
		&rep.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// Insert creates a repeat. The stake multiplier is stored explicitly so
// materialization never has to recover it from a price division.
func (r *RepeatRepository) Insert(ctx context.Context, playerID int64, numbers []int, times int, pricePerWeek int64, remainingWeeks int) (*model.Repeat, error) {
	const query = `
		INSERT INTO repeats (player_id, numbers, times, price_per_week, remaining_weeks, opted_out, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, NOW(), NOW())
		RETURNING ` + repeatColumns

	repeat, err := scanRepeat(r.db.QueryRow(ctx, query, playerID, numbers, times, pricePerWeek, remainingWeeks))
	if err != nil {
		return nil, fmt.Errorf("failed to insert repeat: %w", err)
	}
	return repeat, nil
}

// GetByID retrieves a repeat by id.
func (r *RepeatRepository) GetByID(ctx context.Context, id int64) (*model.Repeat, error) {
	const query = `SELECT ` + repeatColumns + ` FROM repeats WHERE id = $1`

	repeat, err := scanRepeat(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRepeatNotFound
		}
		return nil, fmt.Errorf("failed to get repeat: %w", err)
	}
	return repeat, nil
}

// GetForUpdate retrieves a repeat with a row lock, blocking concurrent
// writers until the transaction ends.
func (r *RepeatRepository) GetForUpdate(ctx context.Context, id int64) (*model.Repeat, error) {
	const query = `SELECT ` + repeatColumns + ` FROM repeats WHERE id = $1 FOR UPDATE`

	repeat, err := scanRepeat(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRepeatNotFound
		}
		return nil, fmt.Errorf("failed to get repeat for update: %w", err)
	}
	return repeat, nil
}

// ListByPlayer retrieves a player's repeats, newest first.
func (r *RepeatRepository) ListByPlayer(ctx context.Context, playerID int64) ([]*model.Repeat, error) {
	const query = `
		SELECT ` + repeatColumns + `
		FROM repeats
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
	`

	return r.list(ctx, query, playerID)
}

// ListActive retrieves every repeat that is still eligible for
// materialization: not opted out and with weeks remaining.
func (r *RepeatRepository) ListActive(ctx context.Context) ([]*model.Repeat, error) {
	const query = `
		SELECT ` + repeatColumns + `
		FROM repeats
		WHERE NOT opted_out AND remaining_weeks > 0
		ORDER BY id
	`

	return r.list(ctx, query)
}

// Stop opts a player's repeat out and zeroes its remaining weeks.
// Stopping an already-stopped repeat is a no-op. Returns
// ErrRepeatNotFound when the repeat does not exist or belongs to a
// different player.
func (r *RepeatRepository) Stop(ctx context.Context, playerID, repeatID int64) error {
	const query = `
		UPDATE repeats
		SET opted_out = TRUE, remaining_weeks = 0, updated_at = NOW()
		WHERE id = $1 AND player_id = $2
	`

	tag, err := r.db.Exec(ctx, query, repeatID, playerID)
	if err != nil {
		return fmt.Errorf("failed to stop repeat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRepeatNotFound
	}
	return nil
}

// Terminate ends a repeat from the materialization path (insufficient
// funds). Same terminal state as Stop but keyed by id alone.
func (r *RepeatRepository) Terminate(ctx context.Context, repeatID int64) error {
	const query = `
		UPDATE repeats
		SET opted_out = TRUE, remaining_weeks = 0, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.Exec(ctx, query, repeatID); err != nil {
		return fmt.Errorf("failed to terminate repeat: %w", err)
	}
	return nil
}

// DecrementWeeks consumes one week from a repeat, clamped at zero.
func (r *RepeatRepository) DecrementWeeks(ctx context.Context, repeatID int64) (*model.Repeat, error) {
	const query = `
		UPDATE repeats
		SET remaining_weeks = GREATEST(remaining_weeks - 1, 0), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + repeatColumns

	repeat, err := scanRepeat(r.db.QueryRow(ctx, query, repeatID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRepeatNotFound
		}
		return nil, fmt.Errorf("failed to decrement repeat weeks: %w", err)
	}
	return repeat, nil
}

func (r *RepeatRepository) list(ctx context.Context, query string, args ...any) ([]*model.Repeat, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list repeats: %w", err)
	}
	defer rows.Close()

	var repeats []*model.Repeat
	for rows.Next() {
		repeat, err := scanRepeat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan repeat: %w", err)
		}
		repeats = append(repeats, repeat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating repeats: %w", err)
	}

	return repeats, nil
}
