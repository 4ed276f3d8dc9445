// Package model defines the data models for the lotto ledger service.
package model

import "time"

// Player represents a registered player account.
// Balance is an integer amount in minor currency units and is maintained
// in the same transaction as every ledger write; the authoritative value
// is the sum of approved ledger entries.
type Player struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	Balance   int64     `db:"balance" json:"balance"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PricingRow maps a ticket size (count of chosen numbers) to its unit price.
type PricingRow struct {
	TicketSize int   `db:"ticket_size" json:"ticket_size"`
	UnitPrice  int64 `db:"unit_price" json:"unit_price"`
}

// Draw fixes the three winning numbers for an ISO (year, week) key.
// At most one draw exists per (year, week); winning numbers are write-once.
type Draw struct {
	ID             int64     `db:"id" json:"id"`
	Year           int       `db:"year" json:"year"`
	Week           int       `db:"week" json:"week"`
	WinningNumbers []int     `db:"winning_numbers" json:"winning_numbers"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Board is a purchased ticket: 5-8 distinct numbers from 1-16 plus a stake
// multiplier, entered into the ISO week it was purchased in. DrawID stays
// nil until that week's draw is locked; IsWinner is set exactly once when
// the board is evaluated.
type Board struct {
	ID        int64     `db:"id" json:"id"`
	PlayerID  int64     `db:"player_id" json:"player_id"`
	Year      int       `db:"year" json:"year"`
	Week      int       `db:"week" json:"week"`
	DrawID    *int64    `db:"draw_id" json:"draw_id"`
	Numbers   []int     `db:"numbers" json:"numbers"`
	Times     int       `db:"times" json:"times"`
	Price     int64     `db:"price" json:"price"`
	RepeatID  *int64    `db:"repeat_id" json:"repeat_id"`
	IsWinner  *bool     `db:"is_winner" json:"is_winner"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Repeat is a standing instruction to materialize one board per draw for
// RemainingWeeks more weeks. OptedOut is terminal; RemainingWeeks only
// ever decreases.
type Repeat struct {
	ID             int64     `db:"id" json:"id"`
	PlayerID       int64     `db:"player_id" json:"player_id"`
	Numbers        []int     `db:"numbers" json:"numbers"`
	Times          int       `db:"times" json:"times"`
	PricePerWeek   int64     `db:"price_per_week" json:"price_per_week"`
	RemainingWeeks int       `db:"remaining_weeks" json:"remaining_weeks"`
	OptedOut       bool      `db:"opted_out" json:"opted_out"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// LedgerEntry records one balance-affecting event. Amount is signed:
// positive for money in, negative for money out. Only Status, ProcessedBy
// and ProcessedAt ever change after creation, and only pending entries
// transition.
type LedgerEntry struct {
	ID           int64      `db:"id" json:"id"`
	PlayerID     int64      `db:"player_id" json:"player_id"`
	Kind         string     `db:"kind" json:"kind"`
	Amount       int64      `db:"amount" json:"amount"`
	Status       string     `db:"status" json:"status"`
	BoardID      *int64     `db:"board_id" json:"board_id"`
	Reference    string     `db:"reference" json:"reference"`
	MobilePayRef *string    `db:"mobile_pay_ref" json:"mobile_pay_ref"`
	ProcessedBy  *int64     `db:"processed_by" json:"processed_by"`
	ProcessedAt  *time.Time `db:"processed_at" json:"processed_at"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// Ledger entry kinds.
const (
	KindDeposit  = "deposit"  // player top-up, pending until an admin resolves it
	KindPurchase = "purchase" // board purchase debit, approved at creation
	KindRefund   = "refund"   // admin compensation credit, approved at creation
)

// Ledger entry statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Deposit resolution decisions.
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// Ticket rule bounds: a board picks 5-8 distinct numbers from 1-16, and a
// draw fixes exactly 3 winning numbers from the same universe.
const (
	MinTicketSize   = 5
	MaxTicketSize   = 8
	NumberMin       = 1
	NumberMax       = 16
	WinningNumCount = 3
)
