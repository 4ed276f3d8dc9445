package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lotto-ledger/internal/model"
)

// Common errors for repository operations.
var (
	ErrPlayerNotFound = errors.New("player not found")
)

const playerColumns = "id, name, active, balance, created_at, updated_at"

// PlayerRepository handles player data persistence.
type PlayerRepository struct {
	db Querier
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: pool}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *PlayerRepository) WithTx(tx pgx.Tx) *PlayerRepository {
	return &PlayerRepository{db: tx}
}

func scanPlayer(row pgx.Row) (*model.Player, error) {
	var p model.Player
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Active,
		&p.Balance,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create creates a new player with a zero balance.
func (r *PlayerRepository) Create(ctx context.Context, name string) (*model.Player, error) {
	const query = `
		INSERT INTO players (name, active, balance, created_at, updated_at)
		VALUES ($1, TRUE, 0, NOW(), NOW())
		RETURNING ` + playerColumns

	player, err := scanPlayer(r.db.QueryRow(ctx, query, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return player, nil
}

// GetByID retrieves a player by id.
// Returns ErrPlayerNotFound if the player does not exist.
func (r *PlayerRepository) GetByID(ctx context.Context, id int64) (*model.Player, error) {
	const query = `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	player, err := scanPlayer(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

// GetForUpdate retrieves a player and takes a row lock on it. Must be
// called inside a transaction; the lock serializes concurrent balance
// operations on the same player.
func (r *PlayerRepository) GetForUpdate(ctx context.Context, id int64) (*model.Player, error) {
	const query = `SELECT ` + playerColumns + ` FROM players WHERE id = $1 FOR UPDATE`

	player, err := scanPlayer(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to lock player: %w", err)
	}
	return player, nil
}

// AdjustBalance adds the given delta (negative to debit) to a player's
// balance. Callers are responsible for writing the matching ledger entry
// in the same transaction.
func (r *PlayerRepository) AdjustBalance(ctx context.Context, id int64, delta int64) (*model.Player, error) {
	const query = `
		UPDATE players
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + playerColumns

	player, err := scanPlayer(r.db.QueryRow(ctx, query, id, delta))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to adjust balance: %w", err)
	}
	return player, nil
}

// SetActive flips the activation flag on a player account.
func (r *PlayerRepository) SetActive(ctx context.Context, id int64, active bool) error {
	const query = `UPDATE players SET active = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("failed to set player active flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}
