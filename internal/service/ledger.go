package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"lotto-ledger/internal/model"
	"lotto-ledger/internal/pkg/db"
	"lotto-ledger/internal/repository"
)

// LedgerService owns the deposit lifecycle and the derived balance read
// path. Deposits are recorded pending and only touch the balance when an
// admin approves them; the approval credits the balance in the same
// transaction that flips the entry's status.
type LedgerService struct {
	pool       *db.Pool
	playerRepo *repository.PlayerRepository
	ledgerRepo *repository.LedgerRepository
	boardRepo  *repository.BoardRepository
	maxDeposit int64
}

// NewLedgerService creates a new LedgerService instance.
func NewLedgerService(
	pool *db.Pool,
	playerRepo *repository.PlayerRepository,
	ledgerRepo *repository.LedgerRepository,
	boardRepo *repository.BoardRepository,
	maxDeposit int64,
) *LedgerService {
	return &LedgerService{
		pool:       pool,
		playerRepo: playerRepo,
		ledgerRepo: ledgerRepo,
		boardRepo:  boardRepo,
		maxDeposit: maxDeposit,
	}
}

// RequestDeposit records a pending deposit. The balance is untouched
// until an admin resolves the entry.
func (s *LedgerService) RequestDeposit(ctx context.Context, playerID, amount int64, mobilePayRef string) (*model.LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if s.maxDeposit > 0 && amount > s.maxDeposit {
		return nil, ErrInvalidAmount
	}

	ctx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	if _, err := s.playerRepo.GetByID(ctx, playerID); err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, wrapStorage(err)
	}

	var ref *string
	if mobilePayRef != "" {
		ref = &mobilePayRef
	}

	entry, err := s.ledgerRepo.Insert(ctx, playerID, model.KindDeposit, amount, model.StatusPending, nil, uuid.NewString(), ref)
	if err != nil {
		return nil, wrapStorage(err)
	}

	log.Info().
		Int64("player_id", playerID).
		Int64("entry_id", entry.ID).
		Int64("amount", amount).
		Msg("Deposit requested")

	return entry, nil
}

// ResolveDeposit approves or rejects a pending deposit. Approval credits
// the player's balance in the same transaction as the status change.
// Resolving an entry that is no longer pending is a no-op that returns
// the entry unchanged, so a double approval can never double-credit.
func (s *LedgerService) ResolveDeposit(ctx context.Context, entryID int64, decision string, adminID int64) (*model.LedgerEntry, error) {
	if decision != model.DecisionApproved && decision != model.DecisionRejected {
		return nil, ErrInvalidDecision
	}

	ctx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, wrapStorage(fmt.Errorf("failed to begin deposit resolution: %w", err))
	}
	defer tx.Rollback(ctx)

	ledgerRepo := s.ledgerRepo.WithTx(tx)

	entry, resolved, err := ledgerRepo.ResolvePending(ctx, entryID, decision, adminID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	if !resolved {
		// Not pending anymore (or never existed): status transitions are
		// one-way, so return the entry as it stands.
		entry, err = s.ledgerRepo.GetByID(ctx, entryID)
		if err != nil {
			if errors.Is(err, repository.ErrEntryNotFound) {
				return nil, ErrEntryNotFound
			}
			return nil, wrapStorage(err)
		}
		return entry, nil
	}

	if decision == model.DecisionApproved {
		if _, err := s.playerRepo.WithTx(tx).AdjustBalance(ctx, entry.PlayerID, entry.Amount); err != nil {
			return nil, wrapStorage(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapStorage(fmt.Errorf("failed to commit deposit resolution: %w", err))
	}

	log.Info().
		Int64("entry_id", entry.ID).
		Int64("player_id", entry.PlayerID).
		Str("decision", decision).
		Int64("admin_id", adminID).
		Msg("Deposit resolved")

	return entry, nil
}

// Refund credits a player for a board as an approved refund entry, with
// the balance update in the same transaction.
func (s *LedgerService) Refund(ctx context.Context, playerID, boardID, amount, adminID int64) (*model.LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	ctx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	board, err := s.boardRepo.GetByID(ctx, boardID)
	if err != nil {
		if errors.Is(err, repository.ErrBoardNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, wrapStorage(err)
	}
	if board.PlayerID != playerID {
		return nil, ErrBoardNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, wrapStorage(fmt.Errorf("failed to begin refund: %w", err))
	}
	defer tx.Rollback(ctx)

	entry, err := s.ledgerRepo.WithTx(tx).Insert(ctx, playerID, model.KindRefund, amount, model.StatusApproved, &boardID, uuid.NewString(), nil)
	if err != nil {
		return nil, wrapStorage(err)
	}

	if _, err := s.playerRepo.WithTx(tx).AdjustBalance(ctx, playerID, amount); err != nil {
		return nil, wrapStorage(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapStorage(fmt.Errorf("failed to commit refund: %w", err))
	}

	log.Info().
		Int64("player_id", playerID).
		Int64("board_id", boardID).
		Int64("amount", amount).
		Int64("admin_id", adminID).
		Msg("Refund issued")

	return entry, nil
}

// GetBalance returns the player's spendable balance derived from the
// ledger: the sum of approved entry amounts.
func (s *LedgerService) GetBalance(ctx context.Context, playerID int64) (int64, error) {
	ctx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	if _, err := s.playerRepo.GetByID(ctx, playerID); err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return 0, ErrPlayerNotFound
		}
		return 0, wrapStorage(err)
	}

	sum, err := s.ledgerRepo.SumApproved(ctx, playerID)
	if err != nil {
		return 0, wrapStorage(err)
	}
	return sum, nil
}

// History retrieves a player's ledger entries, newest first.
func (s *LedgerService) History(ctx context.Context, playerID int64, limit int) ([]*model.LedgerEntry, error) {
	ctx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	entries, err := s.ledgerRepo.ListByPlayer(ctx, playerID, limit)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return entries, nil
}

// PendingDeposits retrieves the admin approval queue, oldest first.
func (s *LedgerService) PendingDeposits(ctx context.Context) ([]*model.LedgerEntry, error) {
	ctx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	entries, err := s.ledgerRepo.ListPending(ctx)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return entries, nil
}

// SetPlayerActive toggles a player's activation flag. A deactivated
// player keeps their balance and history but cannot purchase boards or
// create repeats until reactivated.
func (s *LedgerService) SetPlayerActive(ctx context.Context, playerID int64, active bool) error {
	ctx, cancel := storageCtx(ctx, s.pool)
	defer cancel()

	if err := s.playerRepo.SetActive(ctx, playerID, active); err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return ErrPlayerNotFound
		}
		return wrapStorage(err)
	}

	log.Info().Int64("player_id", playerID).Bool("active", active).Msg("Player activation changed")
	return nil
}
