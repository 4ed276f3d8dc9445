package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"lotto-ledger/internal/model"
	"lotto-ledger/internal/pkg/db"
	"lotto-ledger/internal/repository"
)

// PurchaseService prices and purchases board batches against a player's
// balance. A batch is all-or-nothing: the whole batch is priced first,
// checked once against the pre-batch balance, and committed in a single
// transaction with its ledger entries and the balance decrement.
type PurchaseService struct {
	pool        *db.Pool
	playerRepo  *repository.PlayerRepository
	pricingRepo *repository.PricingRepository
	boardRepo   *repository.BoardRepository
	ledgerRepo  *repository.LedgerRepository
	drawRepo    *repository.DrawRepository
	now         Clock
}

// NewPurchaseService creates a new PurchaseService instance.
func NewPurchaseService(
	pool *db.Pool,
	playerRepo *repository.PlayerRepository,
	pricingRepo *repository.PricingRepository,
	boardRepo *repository.BoardRepository,
	ledgerRepo *repository.LedgerRepository,
	drawRepo *repository.DrawRepository,
	now Clock,
) *PurchaseService {
	return &PurchaseService{
		pool:        pool,
		playerRepo:  playerRepo,
		pricingRepo: pricingRepo,
		boardRepo:   boardRepo,
		ledgerRepo:  ledgerRepo,
		drawRepo:    drawRepo,
		now:         now,
	}
}

// Purchase validates and prices a batch of tickets, then commits every
// board, one approved purchase ledger entry per board, and exactly one
// balance decrement as a single atomic unit. If the player's balance
// cannot cover the whole batch, nothing is persisted.
func (s *PurchaseService) Purchase(ctx context.Context, playerID int64, batch []TicketRequest) ([]*model.Board, error) {
	if len(batch) == 0 {
		return nil, ErrInvalidTicket
	}
	for _, item := range batch {
		if err := validateTicket(item.Numbers, item.Times); err != nil {
			return nil, err
		}
	}

	ctx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, wrapStorage(fmt.Errorf("failed to begin purchase: %w", err))
	}
	defer tx.Rollback(ctx)

	boards, err := s.purchaseInTx(ctx, tx, playerID, batch)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapStorage(fmt.Errorf("failed to commit purchase: %w", err))
	}

	log.Info().
		Int64("player_id", playerID).
		Int("boards", len(boards)).
		Msg("Purchase committed")

	return boards, nil
}

// BoardsForPlayer retrieves a player's boards, newest first.
func (s *PurchaseService) BoardsForPlayer(ctx context.Context, playerID int64, limit int) ([]*model.Board, error) {
	ctx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	boards, err := s.boardRepo.ListByPlayer(ctx, playerID, limit)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return boards, nil
}

// PriceTable returns the configured ticket pricing table.
func (s *PurchaseService) PriceTable(ctx context.Context) ([]model.PricingRow, error) {
	ctx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	table, err := s.pricingRepo.Table(ctx)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return table, nil
}

// purchaseInTx runs the batch purchase inside the given transaction.
func (s *PurchaseService) purchaseInTx(ctx context.Context, tx pgx.Tx, playerID int64, batch []TicketRequest) ([]*model.Board, error) {
	playerRepo := s.playerRepo.WithTx(tx)
	pricingRepo := s.pricingRepo.WithTx(tx)
	boardRepo := s.boardRepo.WithTx(tx)
	ledgerRepo := s.ledgerRepo.WithTx(tx)

	// Row lock serializes concurrent purchases by the same player, so the
	// balance snapshot below cannot be outrun by another batch.
	player, err := playerRepo.GetForUpdate(ctx, playerID)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, wrapStorage(err)
	}
	if !player.Active {
		return nil, ErrPlayerInactive
	}

	// Price the entire batch before touching anything. Prices come from
	// the table fresh every time; an admin may have changed them.
	prices := make([]int64, len(batch))
	var total int64
	for i, item := range batch {
		unitPrice, err := pricingRepo.UnitPrice(ctx, len(item.Numbers))
		if err != nil {
			if errors.Is(err, repository.ErrNoPriceRow) {
				log.Error().
					Int("ticket_size", len(item.Numbers)).
					Msg("No price row configured for ticket size")
				return nil, ErrNoSuchPrice
			}
			return nil, wrapStorage(err)
		}
		prices[i] = unitPrice * int64(item.Times)
		total += prices[i]
	}

	// One check against the pre-batch balance snapshot covers the batch.
	if player.Balance < total {
		return nil, &InsufficientBalanceError{
			Balance:   player.Balance,
			Required:  total,
			Shortfall: total - player.Balance,
		}
	}

	year, week := isoWeek(s.now())

	// A locked week's numbers are public. Selling a board into it would
	// either orphan the board (no draw will ever claim it) or decide a
	// winner at purchase time, so the sale is refused outright.
	locked, err := s.drawRepo.WithTx(tx).Exists(ctx, year, week)
	if err != nil {
		return nil, wrapStorage(err)
	}
	if locked {
		return nil, ErrWeekClosed
	}

	// Boards land in the caller's submitted order.
	boards := make([]*model.Board, 0, len(batch))
	for i, item := range batch {
		board, err := boardRepo.Insert(ctx, playerID, year, week, item.Numbers, item.Times, prices[i], nil)
		if err != nil {
			return nil, wrapStorage(err)
		}
		boards = append(boards, board)

		_, err = ledgerRepo.Insert(ctx, playerID, model.KindPurchase, -prices[i], model.StatusApproved, &board.ID, uuid.NewString(), nil)
		if err != nil {
			return nil, wrapStorage(err)
		}
	}

	if _, err := playerRepo.AdjustBalance(ctx, playerID, -total); err != nil {
		return nil, wrapStorage(err)
	}

	return boards, nil
}
