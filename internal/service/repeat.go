package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"lotto-ledger/internal/model"
	"lotto-ledger/internal/pkg/db"
	"lotto-ledger/internal/pkg/lock"
	"lotto-ledger/internal/repository"
)

// RepeatService manages standing repeat orders: creation with an
// immediate first board, opt-out, and the draw-triggered materialization
// sweep that turns each active repeat into the new draw's board.
type RepeatService struct {
	pool        *db.Pool
	repeatRepo  *repository.RepeatRepository
	playerRepo  *repository.PlayerRepository
	pricingRepo *repository.PricingRepository
	boardRepo   *repository.BoardRepository
	ledgerRepo  *repository.LedgerRepository
	drawRepo    *repository.DrawRepository
	sweepLock   *lock.KeyedLock
	now         Clock
}

// NewRepeatService creates a new RepeatService instance.
func NewRepeatService(
	pool *db.Pool,
	repeatRepo *repository.RepeatRepository,
	playerRepo *repository.PlayerRepository,
	pricingRepo *repository.PricingRepository,
	boardRepo *repository.BoardRepository,
	ledgerRepo *repository.LedgerRepository,
	drawRepo *repository.DrawRepository,
	now Clock,
) *RepeatService {
	return &RepeatService{
		pool:        pool,
		repeatRepo:  repeatRepo,
		playerRepo:  playerRepo,
		pricingRepo: pricingRepo,
		boardRepo:   boardRepo,
		ledgerRepo:  ledgerRepo,
		drawRepo:    drawRepo,
		sweepLock:   lock.NewKeyedLock(),
		now:         now,
	}
}

// SweepReport summarizes one materialization run for a draw.
type SweepReport struct {
	DrawID       int64 `json:"draw_id"`
	Eligible     int   `json:"eligible"`
	Materialized int   `json:"materialized"`
	Skipped      int   `json:"skipped"`
	Terminated   int   `json:"terminated"`
	Failed       int   `json:"failed"`
}

// Create validates a repeat order, debits and materializes this week's
// board immediately (same atomicity rules as a purchase), and persists
// the repeat with one week already consumed.
func (s *RepeatService) Create(ctx context.Context, playerID int64, numbers []int, times, weeks int) (*model.Repeat, error) {
	if err := validateTicket(numbers, times); err != nil {
		return nil, err
	}
	if weeks < 1 {
		return nil, ErrInvalidWeeks
	}

	ctx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, wrapStorage(fmt.Errorf("failed to begin repeat creation: %w", err))
	}
	defer tx.Rollback(ctx)

	playerRepo := s.playerRepo.WithTx(tx)
	repeatRepo := s.repeatRepo.WithTx(tx)
	boardRepo := s.boardRepo.WithTx(tx)
	ledgerRepo := s.ledgerRepo.WithTx(tx)

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

	unitPrice, err := s.pricingRepo.WithTx(tx).UnitPrice(ctx, len(numbers))
	if err != nil {
		if errors.Is(err, repository.ErrNoPriceRow) {
			log.Error().Int("ticket_size", len(numbers)).Msg("No price row configured for ticket size")
			return nil, ErrNoSuchPrice
		}
		return nil, wrapStorage(err)
	}
	pricePerWeek := unitPrice * int64(times)

	if player.Balance < pricePerWeek {
		return nil, &InsufficientBalanceError{
			Balance:   player.Balance,
			Required:  pricePerWeek,
			Shortfall: pricePerWeek - player.Balance,
		}
	}

	year, week := isoWeek(s.now())

	// Same rule as a purchase: no sale into a week whose numbers are
	// already public. The repeat starts with next week's draw instead.
	locked, err := s.drawRepo.WithTx(tx).Exists(ctx, year, week)
	if err != nil {
		return nil, wrapStorage(err)
	}
	if locked {
		return nil, ErrWeekClosed
	}

	// The board created here consumes the first week.
	repeat, err := repeatRepo.Insert(ctx, playerID, numbers, times, pricePerWeek, weeks-1)
	if err != nil {
		return nil, wrapStorage(err)
	}
	board, err := boardRepo.Insert(ctx, playerID, year, week, numbers, times, pricePerWeek, &repeat.ID)
	if err != nil {
		return nil, wrapStorage(err)
	}

	_, err = ledgerRepo.Insert(ctx, playerID, model.KindPurchase, -pricePerWeek, model.StatusApproved, &board.ID, uuid.NewString(), nil)
	if err != nil {
		return nil, wrapStorage(err)
	}

	if _, err := playerRepo.AdjustBalance(ctx, playerID, -pricePerWeek); err != nil {
		return nil, wrapStorage(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapStorage(fmt.Errorf("failed to commit repeat creation: %w", err))
	}

	log.Info().
		Int64("player_id", playerID).
		Int64("repeat_id", repeat.ID).
		Int("weeks", weeks).
		Int64("price_per_week", pricePerWeek).
		Msg("Repeat created")

	return repeat, nil
}

// Stop opts a repeat out. Stopping an already-stopped repeat is a no-op;
// stopping another player's repeat fails with ErrRepeatNotFound.
func (s *RepeatService) Stop(ctx context.Context, playerID, repeatID int64) error {
	ctx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	err := s.repeatRepo.Stop(ctx, playerID, repeatID)
	if err != nil {
		if errors.Is(err, repository.ErrRepeatNotFound) {
			return ErrRepeatNotFound
		}
		return wrapStorage(err)
	}

	log.Info().Int64("player_id", playerID).Int64("repeat_id", repeatID).Msg("Repeat stopped")
	return nil
}

// ListByPlayer retrieves a player's repeats.
func (s *RepeatService) ListByPlayer(ctx context.Context, playerID int64) ([]*model.Repeat, error) {
	ctx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	repeats, err := s.repeatRepo.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return repeats, nil
}

// MaterializeForDraw runs the sweep for a locked draw: every active
// repeat gets one board for the draw, debited in its own transaction.
// A repeat that already produced a board for the draw is skipped, so the
// sweep can be re-run safely after a partial failure. One player's
// underfunded or misconfigured repeat never blocks another's.
func (s *RepeatService) MaterializeForDraw(ctx context.Context, drawID int64) (*SweepReport, error) {
	// The timeout bounds the setup reads only; each repeat gets its own
	// bounded transaction below, so a long sweep is not cut short.
	readCtx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	draw, err := s.drawRepo.GetByID(readCtx, drawID)
	if err != nil {
		if errors.Is(err, repository.ErrDrawNotFound) {
			return nil, ErrDrawNotFound
		}
		return nil, wrapStorage(err)
	}

	// Serialize overlapping in-process sweeps for the same draw. The
	// unique (repeat_id, draw_id) index keeps concurrent processes safe;
	// this just stops two goroutines walking the same repeat list.
	s.sweepLock.Lock(draw.ID)
	defer s.sweepLock.Unlock(draw.ID)

	repeats, err := s.repeatRepo.ListActive(readCtx)
	if err != nil {
		return nil, wrapStorage(err)
	}

	report := &SweepReport{DrawID: draw.ID, Eligible: len(repeats)}
	for _, repeat := range repeats {
		outcome, err := s.materializeOne(ctx, draw, repeat)
		if err != nil {
			report.Failed++
			log.Error().Err(err).
				Int64("repeat_id", repeat.ID).
				Int64("draw_id", draw.ID).
				Msg("Failed to materialize repeat")
			continue
		}
		switch outcome {
		case outcomeMaterialized:
			report.Materialized++
		case outcomeSkipped:
			report.Skipped++
		case outcomeTerminated:
			report.Terminated++
		}
	}

	log.Info().
		Int64("draw_id", draw.ID).
		Int("eligible", report.Eligible).
		Int("materialized", report.Materialized).
		Int("skipped", report.Skipped).
		Int("terminated", report.Terminated).
		Int("failed", report.Failed).
		Msg("Repeat materialization sweep finished")

	return report, nil
}

type sweepOutcome int

const (
	outcomeMaterialized sweepOutcome = iota
	outcomeSkipped
	outcomeTerminated
)

// materializeOne handles a single repeat for the draw as one atomic unit.
func (s *RepeatService) materializeOne(ctx context.Context, draw *model.Draw, repeat *model.Repeat) (sweepOutcome, error) {
	ctx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	// Price is consulted fresh each cycle. A missing row is operator
	// configuration drift, not a balance problem: skip, do not terminate.
	unitPrice, err := s.pricingRepo.UnitPrice(ctx, len(repeat.Numbers))
	if err != nil {
		if errors.Is(err, repository.ErrNoPriceRow) {
			log.Error().
				Int64("repeat_id", repeat.ID).
				Int("ticket_size", len(repeat.Numbers)).
				Msg("No price row for repeat ticket size, skipping this cycle")
			return outcomeSkipped, nil
		}
		return 0, wrapStorage(err)
	}
	price := unitPrice * int64(repeat.Times)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, wrapStorage(fmt.Errorf("failed to begin materialization: %w", err))
	}
	defer tx.Rollback(ctx)

	playerRepo := s.playerRepo.WithTx(tx)
	repeatRepo := s.repeatRepo.WithTx(tx)
	boardRepo := s.boardRepo.WithTx(tx)
	ledgerRepo := s.ledgerRepo.WithTx(tx)

	// The sweep's repeat list is a snapshot taken outside this
	// transaction. Re-read under a row lock: a Stop or a concurrent
	// sweep for another draw may have ended the repeat in the meantime,
	// and an ended repeat must never produce another board.
	repeat, err = repeatRepo.GetForUpdate(ctx, repeat.ID)
	if err != nil {
		if errors.Is(err, repository.ErrRepeatNotFound) {
			return outcomeSkipped, nil
		}
		return 0, wrapStorage(err)
	}
	if repeat.OptedOut || repeat.RemainingWeeks <= 0 {
		return outcomeSkipped, nil
	}

	player, err := playerRepo.GetForUpdate(ctx, repeat.PlayerID)
	if err != nil {
		return 0, wrapStorage(err)
	}

	// Insufficient funds permanently ends the repeat; it never silently
	// retries a missed week.
	if player.Balance < price {
		if err := repeatRepo.Terminate(ctx, repeat.ID); err != nil {
			return 0, wrapStorage(err)
		}
		if err := tx.Commit(ctx); err != nil {
			return 0, wrapStorage(fmt.Errorf("failed to commit repeat termination: %w", err))
		}
		log.Warn().
			Int64("repeat_id", repeat.ID).
			Int64("player_id", repeat.PlayerID).
			Int64("balance", player.Balance).
			Int64("price", price).
			Msg("Repeat terminated: insufficient balance")
		return outcomeTerminated, nil
	}

	board, inserted, err := boardRepo.InsertForRepeat(ctx, repeat.ID, repeat.PlayerID, draw.ID, draw.Year, draw.Week, repeat.Numbers, repeat.Times, price)
	if err != nil {
		return 0, wrapStorage(err)
	}
	if !inserted {
		// A board for (repeat, draw) already exists: either a re-run of
		// the sweep or the repeat's own first-week board claimed by this
		// draw. Either way the week is paid for.
		return outcomeSkipped, nil
	}

	_, err = ledgerRepo.Insert(ctx, repeat.PlayerID, model.KindPurchase, -price, model.StatusApproved, &board.ID, uuid.NewString(), nil)
	if err != nil {
		return 0, wrapStorage(err)
	}

	if _, err := playerRepo.AdjustBalance(ctx, repeat.PlayerID, -price); err != nil {
		return 0, wrapStorage(err)
	}

	if _, err := repeatRepo.DecrementWeeks(ctx, repeat.ID); err != nil {
		return 0, wrapStorage(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, wrapStorage(fmt.Errorf("failed to commit materialization: %w", err))
	}

	return outcomeMaterialized, nil
}
