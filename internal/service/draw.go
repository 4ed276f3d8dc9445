package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"lotto-ledger/internal/model"
	"lotto-ledger/internal/pkg/db"
	"lotto-ledger/internal/repository"
)

// DrawService locks weekly draws and evaluates winners. A (year, week)
// key goes from open (no draw row) to locked (row with winning numbers)
// exactly once; the database uniqueness constraint arbitrates races.
type DrawService struct {
	pool      *db.Pool
	drawRepo  *repository.DrawRepository
	boardRepo *repository.BoardRepository
	repeats   *RepeatService
}

// NewDrawService creates a new DrawService instance.
func NewDrawService(
	pool *db.Pool,
	drawRepo *repository.DrawRepository,
	boardRepo *repository.BoardRepository,
	repeats *RepeatService,
) *DrawService {
	return &DrawService{
		pool:      pool,
		drawRepo:  drawRepo,
		boardRepo: boardRepo,
		repeats:   repeats,
	}
}

// EnterWinningNumbers locks (year, week) with the given three winning
// numbers, claims the week's open boards for the new draw, materializes
// active repeats, and evaluates every board of the draw.
//
// The lock itself (draw insert + board claim) is one transaction; only
// one caller can win it, all others get ErrDrawAlreadyLocked. The sweep
// and the evaluation run after the lock committed and are idempotent, so
// a failure there is retriable via Resweep without re-entering numbers.
func (s *DrawService) EnterWinningNumbers(ctx context.Context, year, week int, winningNumbers []int) (*model.Draw, error) {
	if len(winningNumbers) != model.WinningNumCount || !validNumbers(winningNumbers, model.WinningNumCount, model.WinningNumCount) {
		return nil, ErrInvalidWinningNumbers
	}
	if week < 1 || week > 53 {
		return nil, ErrInvalidWeekKey
	}

	// The timeout covers the lock transaction only; the sweep below
	// bounds its own work per repeat.
	lockCtx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	tx, err := s.pool.Begin(lockCtx)
	if err != nil {
		return nil, wrapStorage(fmt.Errorf("failed to begin draw lock: %w", err))
	}
	defer tx.Rollback(lockCtx)

	draw, err := s.drawRepo.WithTx(tx).Insert(lockCtx, year, week, winningNumbers)
	if err != nil {
		if errors.Is(err, repository.ErrDrawExists) {
			return nil, ErrDrawAlreadyLocked
		}
		return nil, wrapStorage(err)
	}

	claimed, err := s.boardRepo.WithTx(tx).ClaimWeek(lockCtx, year, week, draw.ID)
	if err != nil {
		return nil, wrapStorage(err)
	}

	if err := tx.Commit(lockCtx); err != nil {
		return nil, wrapStorage(fmt.Errorf("failed to commit draw lock: %w", err))
	}

	log.Info().
		Int64("draw_id", draw.ID).
		Int("year", year).
		Int("week", week).
		Ints("winning_numbers", winningNumbers).
		Int64("boards_claimed", claimed).
		Msg("Draw locked")

	// The draw is locked at this point. Sweep and evaluation failures are
	// logged and left for Resweep; they never unlock the draw.
	if _, err := s.repeats.MaterializeForDraw(ctx, draw.ID); err != nil {
		log.Error().Err(err).Int64("draw_id", draw.ID).Msg("Repeat sweep failed after draw lock")
	}

	if err := s.evaluate(ctx, draw); err != nil {
		log.Error().Err(err).Int64("draw_id", draw.ID).Msg("Winner evaluation failed after draw lock")
	}

	return draw, nil
}

// Resweep re-runs the claim, materialization and winner evaluation for
// an already locked draw. Every step is idempotent: claiming only
// touches boards with no draw yet, repeats that produced a board are
// skipped and evaluated boards keep their result. The claim also mops up
// a board that raced the draw lock into its week with no draw attached.
func (s *DrawService) Resweep(ctx context.Context, drawID int64) (*SweepReport, error) {
	readCtx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	draw, err := s.drawRepo.GetByID(readCtx, drawID)
	if err != nil {
		if errors.Is(err, repository.ErrDrawNotFound) {
			return nil, ErrDrawNotFound
		}
		return nil, wrapStorage(err)
	}

	if _, err := s.boardRepo.ClaimWeek(readCtx, draw.Year, draw.Week, draw.ID); err != nil {
		return nil, wrapStorage(err)
	}

	report, err := s.repeats.MaterializeForDraw(ctx, draw.ID)
	if err != nil {
		return nil, err
	}

	if err := s.evaluate(ctx, draw); err != nil {
		return nil, err
	}

	return report, nil
}

func (s *DrawService) evaluate(ctx context.Context, draw *model.Draw) error {
	ctx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	evaluated, err := s.boardRepo.EvaluateDraw(ctx, draw.ID, draw.WinningNumbers)
	if err != nil {
		return wrapStorage(err)
	}

	log.Info().
		Int64("draw_id", draw.ID).
		Int64("boards_evaluated", evaluated).
		Msg("Winner evaluation finished")

	return nil
}

// IsWeekLocked reports whether winning numbers have been entered for
// (year, week). Pure read, no side effects.
func (s *DrawService) IsWeekLocked(ctx context.Context, year, week int) (bool, error) {
	ctx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	locked, err := s.drawRepo.Exists(ctx, year, week)
	if err != nil {
		return false, wrapStorage(err)
	}
	return locked, nil
}

// History retrieves all draws, newest first.
func (s *DrawService) History(ctx context.Context) ([]*model.Draw, error) {
	ctx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	draws, err := s.drawRepo.History(ctx)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return draws, nil
}

// Winners retrieves the winning boards of a draw.
func (s *DrawService) Winners(ctx context.Context, drawID int64) ([]*model.Board, error) {
	ctx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	if _, err := s.drawRepo.GetByID(ctx, drawID); err != nil {
		if errors.Is(err, repository.ErrDrawNotFound) {
			return nil, ErrDrawNotFound
		}
		return nil, wrapStorage(err)
	}

	boards, err := s.boardRepo.WinnersForDraw(ctx, drawID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return boards, nil
}
