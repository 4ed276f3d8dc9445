package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lotto-ledger/internal/model"
)

// ErrDrawExists is returned when a draw already exists for a (year, week)
// key. The uniqueness constraint on draws(year, week) makes the losing
// writer of a race receive this error rather than overwrite anything.
var (
	ErrDrawExists   = errors.New("draw already exists for week")
	ErrDrawNotFound = errors.New("draw not found")
)

const drawColumns = "id, year, week, winning_numbers, created_at"

// DrawRepository handles draw data persistence.
type DrawRepository struct {
	db Querier
}

// NewDrawRepository creates a new DrawRepository instance.
func NewDrawRepository(pool *pgxpool.Pool) *DrawRepository {
	return &DrawRepository{db: pool}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *DrawRepository) WithTx(tx pgx.Tx) *DrawRepository {
	return &DrawRepository{db: tx}
}

func scanDraw(row pgx.Row) (*model.Draw, error) {
	var d model.Draw
	err := row.Scan(
		&d.ID,
		&d.Year,
		&d.Week,
		&d.WinningNumbers,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Insert creates the draw row for (year, week). The winning numbers are
// write-once: if any draw already exists for the key, ErrDrawExists is
// returned and nothing is written.
func (r *DrawRepository) Insert(ctx context.Context, year, week int, winningNumbers []int) (*model.Draw, error) {
	const query = `
		INSERT INTO draws (year, week, winning_numbers, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT ON CONSTRAINT draws_year_week_key DO NOTHING
		RETURNING ` + drawColumns

	draw, err := scanDraw(r.db.QueryRow(ctx, query, year, week, winningNumbers))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDrawExists
		}
		return nil, fmt.Errorf("failed to insert draw: %w", err)
	}
	return draw, nil
}

// GetByID retrieves a draw by id.
func (r *DrawRepository) GetByID(ctx context.Context, id int64) (*model.Draw, error) {
	const query = `SELECT ` + drawColumns + ` FROM draws WHERE id = $1`

	draw, err := scanDraw(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDrawNotFound
		}
		return nil, fmt.Errorf("failed to get draw: %w", err)
	}
	return draw, nil
}

// Exists reports whether a draw has been entered for (year, week).
func (r *DrawRepository) Exists(ctx context.Context, year, week int) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM draws WHERE year = $1 AND week = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, year, week).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check draw existence: %w", err)
	}
	return exists, nil
}

// History retrieves all draws, newest first.
func (r *DrawRepository) History(ctx context.Context) ([]*model.Draw, error) {
	const query = `SELECT ` + drawColumns + ` FROM draws ORDER BY year DESC, week DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get draw history: %w", err)
	}
	defer rows.Close()

	var draws []*model.Draw
	for rows.Next() {
		draw, err := scanDraw(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draw: %w", err)
		}
		draws = append(draws, draw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating draws: %w", err)
	}

	return draws, nil
}
