package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lotto-ledger/internal/model"
)

// ErrEntryNotFound is returned when a ledger entry does not exist.
var ErrEntryNotFound = errors.New("ledger entry not found")

const ledgerColumns = "id, player_id, kind, amount, status, board_id, reference, mobile_pay_ref, processed_by, processed_at, created_at"

// LedgerRepository handles the balance-affecting event log. Entries are
// append-only; only status/processed_by/processed_at ever change, and
// only away from pending.
type LedgerRepository struct {
	db Querier
}

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: pool}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *LedgerRepository) WithTx(tx pgx.Tx) *LedgerRepository {
	return &LedgerRepository{db: tx}
}

func scanEntry(row pgx.Row) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	err := row.Scan(
		&e.ID,
		&e.PlayerID,
		&e.Kind,
		&e.Amount,
		&e.Status,
		&e.BoardID,
		&e.Reference,
		&e.MobilePayRef,
		&e.ProcessedBy,
		&e.ProcessedAt,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Insert appends a ledger entry.
func (r *LedgerRepository) Insert(ctx context.Context, playerID int64, kind string, amount int64, status string, boardID *int64, reference string, mobilePayRef *string) (*model.LedgerEntry, error) {
	const query = `
		INSERT INTO ledger (player_id, kind, amount, status, board_id, reference, mobile_pay_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING ` + ledgerColumns

	entry, err := scanEntry(r.db.QueryRow(ctx, query, playerID, kind, amount, status, boardID, reference, mobilePayRef))
	if err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return entry, nil
}

// GetByID retrieves a ledger entry by id.
func (r *LedgerRepository) GetByID(ctx context.Context, id int64) (*model.LedgerEntry, error) {
	const query = `SELECT ` + ledgerColumns + ` FROM ledger WHERE id = $1`

	entry, err := scanEntry(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return entry, nil
}

// ResolvePending transitions a pending entry to the given status and
// stamps the processing admin. The status guard in the WHERE clause makes
// the transition one-way: resolving a non-pending entry updates nothing
// and returns (nil, false, nil).
func (r *LedgerRepository) ResolvePending(ctx context.Context, id int64, status string, adminID int64) (*model.LedgerEntry, bool, error) {
	const query = `
		UPDATE ledger
		SET status = $2, processed_by = $3, processed_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + ledgerColumns

	entry, err := scanEntry(r.db.QueryRow(ctx, query, id, status, adminID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to resolve ledger entry: %w", err)
	}
	return entry, true, nil
}

// SumApproved returns the sum of approved entry amounts for a player,
// the derived ledger-as-truth balance.
func (r *LedgerRepository) SumApproved(ctx context.Context, playerID int64) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger
		WHERE player_id = $1 AND status = 'approved'
	`

	var sum int64
	if err := r.db.QueryRow(ctx, query, playerID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum approved entries: %w", err)
	}
	return sum, nil
}

// ListByPlayer retrieves a player's ledger entries, newest first.
func (r *LedgerRepository) ListByPlayer(ctx context.Context, playerID int64, limit int) ([]*model.LedgerEntry, error) {
	const query = `
		SELECT ` + ledgerColumns + `
		FROM ledger
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	return r.list(ctx, query, playerID, limit)
}

// ListPending retrieves all pending entries, oldest first, for the admin
// approval queue.
func (r *LedgerRepository) ListPending(ctx context.Context) ([]*model.LedgerEntry, error) {
	const query = `
		SELECT ` + ledgerColumns + `
		FROM ledger
		WHERE status = 'pending'
		ORDER BY created_at, id
	`

	return r.list(ctx, query)
}

func (r *LedgerRepository) list(ctx context.Context, query string, args ...any) ([]*model.LedgerEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	return entries, nil
}
