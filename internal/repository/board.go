package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lotto-ledger/internal/model"
)

// ErrBoardNotFound is returned when a board does not exist.
var ErrBoardNotFound = errors.New("board not found")

const boardColumns = "id, player_id, year, week, draw_id, numbers, times, price, repeat_id, is_winner, created_at"

// BoardRepository handles board (purchased ticket) persistence.
type BoardRepository struct {
	db Querier
}

// NewBoardRepository creates a new BoardRepository instance.
func NewBoardRepository(pool *pgxpool.Pool) *BoardRepository {
	return &BoardRepository{db: pool}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *BoardRepository) WithTx(tx pgx.Tx) *BoardRepository {
	return &BoardRepository{db: tx}
}

func scanBoard(row pgx.Row) (*model.Board, error) {
	var b model.Board
	err := row.Scan(
		&b.ID,
		&b.PlayerID,
		&b.Year,
		&b.Week,
		&b.DrawID,
		&b.Numbers,
		&b.Times,
		&b.Price,
		&b.RepeatID,
		&b.IsWinner,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Insert creates a board for the given purchase week. DrawID stays null
// until the week's draw is locked and claims the board. repeatID is set
// for the board a repeat creates up front and nil for plain purchases.
func (r *BoardRepository) Insert(ctx context.Context, playerID int64, year, week int, numbers []int, times int, price int64, repeatID *int64) (*model.Board, error) {
	const query = `
		INSERT INTO boards (player_id, year, week, numbers, times, price, repeat_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING ` + boardColumns

	board, err := scanBoard(r.db.QueryRow(ctx, query, playerID, year, week, numbers, times, price, repeatID))
	if err != nil {
		return nil, fmt.Errorf("failed to insert board: %w", err)
	}
	return board, nil
}

// InsertForRepeat creates a board materialized from a repeat, attached to
// the given draw. The partial unique index on (repeat_id, draw_id) makes
// this idempotent: if the repeat already produced a board for the draw,
// no row is written and (nil, false, nil) is returned so the caller can
// skip the debit.
func (r *BoardRepository) InsertForRepeat(ctx context.Context, repeatID int64, playerID int64, drawID int64, year, week int, numbers []int, times int, price int64) (*model.Board, bool, error) {
	const query = `
		INSERT INTO boards (player_id, year, week, draw_id, numbers, times, price, repeat_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (repeat_id, draw_id) WHERE repeat_id IS NOT NULL DO NOTHING
		RETURNING ` + boardColumns

	board, err := scanBoard(r.db.QueryRow(ctx, query, playerID, year, week, drawID, numbers, times, price, repeatID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to insert repeat board: %w", err)
	}
	return board, true, nil
}

// ClaimWeek attaches all still-open boards of (year, week) to the given
// draw. Returns the number of boards claimed.
func (r *BoardRepository) ClaimWeek(ctx context.Context, year, week int, drawID int64) (int64, error) {
	const query = `
		UPDATE boards
		SET draw_id = $3
		WHERE year = $1 AND week = $2 AND draw_id IS NULL
	`

	tag, err := r.db.Exec(ctx, query, year, week, drawID)
	if err != nil {
		return 0, fmt.Errorf("failed to claim boards for week: %w", err)
	}
	return tag.RowsAffected(), nil
}

// EvaluateDraw scores every unevaluated board of the draw: a board wins
// when it contains all of the draw's winning numbers. is_winner is only
// ever set, never toggled, so re-running the evaluation is safe.
func (r *BoardRepository) EvaluateDraw(ctx context.Context, drawID int64, winningNumbers []int) (int64, error) {
	const query = `
		UPDATE boards
		SET is_winner = numbers @> $2
		WHERE draw_id = $1 AND is_winner IS NULL
	`

	tag, err := r.db.Exec(ctx, query, drawID, winningNumbers)
	if err != nil {
		return 0, fmt.Errorf("failed to evaluate boards: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetByID retrieves a board by id.
func (r *BoardRepository) GetByID(ctx context.Context, id int64) (*model.Board, error) {
	const query = `SELECT ` + boardColumns + ` FROM boards WHERE id = $1`

	board, err := scanBoard(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBoardNotFound
		}
		return nil, fmt.Errorf("failed to get board: %w", err)
	}
	return board, nil
}

// ListByPlayer retrieves a player's boards, newest first.
func (r *BoardRepository) ListByPlayer(ctx context.Context, playerID int64, limit int) ([]*model.Board, error) {
	const query = `
		SELECT ` + boardColumns + `
		FROM boards
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	return r.list(ctx, query, playerID, limit)
}

// WinnersForDraw retrieves the winning boards of a draw.
func (r *BoardRepository) WinnersForDraw(ctx context.Context, drawID int64) ([]*model.Board, error) {
	const query = `
		SELECT ` + boardColumns + `
		FROM boards
		WHERE draw_id = $1 AND is_winner = TRUE
		ORDER BY id
	`

	return r.list(ctx, query, drawID)
}

func (r *BoardRepository) list(ctx context.Context, query string, args ...any) ([]*model.Board, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	defer rows.Close()

	var boards []*model.Board
	for rows.Next() {
		board, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan board: %w", err)
		}
		boards = append(boards, board)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating boards: %w", err)
	}

	return boards, nil
}
