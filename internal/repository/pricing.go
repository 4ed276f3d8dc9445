package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lotto-ledger/internal/model"
)

// ErrNoPriceRow is returned when no unit price is configured for a ticket size.
var ErrNoPriceRow = errors.New("no price configured for ticket size")

// PricingRepository reads the ticket pricing table. Prices are admin
// configuration; they are read fresh for every purchase, never cached.
type PricingRepository struct {
	db Querier
}

// NewPricingRepository creates a new PricingRepository instance.
func NewPricingRepository(pool *pgxpool.Pool) *PricingRepository {
	return &PricingRepository{db: pool}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *PricingRepository) WithTx(tx pgx.Tx) *PricingRepository {
	return &PricingRepository{db: tx}
}

// UnitPrice returns the configured unit price for a ticket size.
// Returns ErrNoPriceRow if the size has no configured row.
func (r *PricingRepository) UnitPrice(ctx context.Context, ticketSize int) (int64, error) {
	const query = `SELECT unit_price FROM pricing WHERE ticket_size = $1`

	var price int64
	err := r.db.QueryRow(ctx, query, ticketSize).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoPriceRow
		}
		return 0, fmt.Errorf("failed to get unit price: %w", err)
	}
	return price, nil
}

// Table returns the full pricing table ordered by ticket size.
func (r *PricingRepository) Table(ctx context.Context) ([]model.PricingRow, error) {
	const query = `SELECT ticket_size, unit_price FROM pricing ORDER BY ticket_size`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get pricing table: %w", err)
	}
	defer rows.Close()

	var table []model.PricingRow
	for rows.Next() {
		var row model.PricingRow
		if err := rows.Scan(&row.TicketSize, &row.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan pricing row: %w", err)
		}
		table = append(table, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pricing rows: %w", err)
	}

	return table, nil
}
