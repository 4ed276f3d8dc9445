// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"lotto-ledger/internal/pkg/db"
)

// Business-rule errors. These are returned as typed values so callers can
// surface each failure as a distinct, user-displayable reason; none of
// them is retried automatically.
var (
	ErrInvalidTicket         = errors.New("ticket must pick 5-8 distinct numbers between 1 and 16")
	ErrInvalidMultiplier     = errors.New("stake multiplier must be at least 1")
	ErrInvalidWeeks          = errors.New("repeat must run for at least 1 week")
	ErrInvalidWinningNumbers = errors.New("draw requires exactly 3 distinct winning numbers between 1 and 16")
	ErrInvalidWeekKey        = errors.New("week number must be between 1 and 53")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInvalidDecision       = errors.New("decision must be approved or rejected")
	ErrPlayerNotFound        = errors.New("player not found")
	ErrPlayerInactive        = errors.New("player account is deactivated")
	ErrDrawAlreadyLocked     = errors.New("winning numbers already entered for this week")
	ErrWeekClosed            = errors.New("the current week's draw is already locked")
	ErrDrawNotFound          = errors.New("draw not found")
	ErrRepeatNotFound        = errors.New("repeat not found")
	ErrEntryNotFound         = errors.New("ledger entry not found")
	ErrBoardNotFound         = errors.New("board not found")
	ErrNoSuchPrice           = errors.New("no price configured for ticket size")
)

// ErrStorageUnavailable marks transient infrastructure failures. Every
// operation is a single atomic unit, so the caller may retry the whole
// operation after receiving it; the service itself never retries.
var ErrStorageUnavailable = errors.New("storage unavailable")

// InsufficientBalanceError carries the shortfall so it can be shown to
// the player verbatim.
type InsufficientBalanceError struct {
	Balance   int64
	Required  int64
	Shortfall int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %d, need %d (short %d)", e.Balance, e.Required, e.Shortfall)
}

// IsInsufficientBalance reports whether err is an insufficient-balance
// failure and returns the typed error when it is.
func IsInsufficientBalance(err error) (*InsufficientBalanceError, bool) {
	var ibe *InsufficientBalanceError
	if errors.As(err, &ibe) {
		return ibe, true
	}
	return nil, false
}

// storageCtx bounds one storage-backed operation with the pool's query
// timeout. An operation that exceeds it fails with DeadlineExceeded,
// which wrapStorage turns into ErrStorageUnavailable.
func storageCtx(ctx context.Context, pool *db.Pool) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, pool.QueryTimeout())
}

// wrapStorage classifies timeouts and connection failures from the
// storage layer as ErrStorageUnavailable. Anything else passes through
// unchanged, so business sentinels survive the wrapping.
func wrapStorage(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %s", ErrStorageUnavailable, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "08") {
		return fmt.Errorf("%w: %s", ErrStorageUnavailable, err)
	}
	return err
}
