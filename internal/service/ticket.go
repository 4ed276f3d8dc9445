package service

import (
	"time"

	"lotto-ledger/internal/model"
)

// TicketRequest is one board of a purchase batch: the chosen numbers and
// the stake multiplier.
type TicketRequest struct {
	Numbers []int `json:"numbers"`
	Times   int   `json:"times"`
}

// Clock supplies the current time; injected so week boundaries are
// testable.
type Clock func() time.Time

// isoWeek returns the ISO 8601 (year, week) key for t. This is the
// explicit "current open week" every board is entered into at purchase
// time.
func isoWeek(t time.Time) (year, week int) {
	return t.ISOWeek()
}

// validNumbers reports whether the numbers form a legal ticket: the
// right count of distinct values inside the 1-16 universe.
func validNumbers(numbers []int, minLen, maxLen int) bool {
	if len(numbers) < minLen || len(numbers) > maxLen {
		return false
	}
	seen := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		if n < model.NumberMin || n > model.NumberMax {
			return false
		}
		if seen[n] {
			return false
		}
		seen[n] = true
	}
	return true
}

// validateTicket checks one purchase item against the board rules.
func validateTicket(numbers []int, times int) error {
	if !validNumbers(numbers, model.MinTicketSize, model.MaxTicketSize) {
		return ErrInvalidTicket
	}
	if times < 1 {
		return ErrInvalidMultiplier
	}
	return nil
}

// boardWins reports whether the board contains all of the draw's winning
// numbers. The rule is set inclusion: every winning number must appear
// among the board's own chosen numbers, not the reverse.
func boardWins(boardNumbers, winningNumbers []int) bool {
	chosen := make(map[int]bool, len(boardNumbers))
	for _, n := range boardNumbers {
		chosen[n] = true
	}
	for _, w := range winningNumbers {
		if !chosen[w] {
			return false
		}
	}
	return true
}
