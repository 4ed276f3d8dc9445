// Property-based tests for the batch purchase rules. The simulation
// mirrors the pricing and atomicity logic in PurchaseService.Purchase
// without database dependencies.
package service

import (
	"testing"

	"pgregory.net/rapid"
)

// purchaseResult is the outcome of a simulated batch purchase.
type purchaseResult struct {
	BalanceBefore int64
	BalanceAfter  int64
	Total         int64
	BoardsCreated int
	Err           error
}

// simulatePurchase mirrors PurchaseService.purchaseInTx: validate every
// item, price the whole batch against the pricing table, check once
// against the pre-batch balance, then commit everything or nothing.
func simulatePurchase(balance int64, pricing map[int]int64, batch []TicketRequest) purchaseResult {
	result := purchaseResult{BalanceBefore: balance, BalanceAfter: balance}

	for _, item := range batch {
		if err := validateTicket(item.Numbers, item.Times); err != nil {
			result.Err = err
			return result
		}
	}

	var total int64
	for _, item := range batch {
		unitPrice, ok := pricing[len(item.Numbers)]
		if !ok {
			result.Err = ErrNoSuchPrice
			return result
		}
		total += unitPrice * int64(item.Times)
	}
	result.Total = total

	if balance < total {
		result.Err = &InsufficientBalanceError{
			Balance:   balance,
			Required:  total,
			Shortfall: total - balance,
		}
		return result
	}

	result.BoardsCreated = len(batch)
	result.BalanceAfter = balance - total
	return result
}

// genTicket draws a valid ticket request.
func genTicket(t *rapid.T) TicketRequest {
	size := rapid.IntRange(5, 8).Draw(t, "size")
	perm := rapid.SliceOfNDistinct(rapid.IntRange(1, 16), size, size, rapid.ID[int]).Draw(t, "numbers")
	times := rapid.IntRange(1, 10).Draw(t, "times")
	return TicketRequest{Numbers: perm, Times: times}
}

// TestPurchaseAllOrNothingProperty checks that a batch either creates
// every board and debits exactly the batch total, or creates nothing and
// leaves the balance unchanged.
func TestPurchaseAllOrNothingProperty(t *testing.T) {
	pricing := map[int]int64{5: 20, 6: 40, 7: 80, 8: 160}

	rapid.Check(t, func(t *rapid.T) {
		balance := rapid.Int64Range(0, 5000).Draw(t, "balance")
		numItems := rapid.IntRange(1, 6).Draw(t, "numItems")

		batch := make([]TicketRequest, numItems)
		var expectedTotal int64
		for i := range batch {
			batch[i] = genTicket(t)
			expectedTotal += pricing[len(batch[i].Numbers)] * int64(batch[i].Times)
		}

		result := simulatePurchase(balance, pricing, batch)

		if balance >= expectedTotal {
			if result.Err != nil {
				t.Fatalf("expected success with balance %d and total %d: %v", balance, expectedTotal, result.Err)
			}
			if result.BoardsCreated != numItems {
				t.Fatalf("created %d boards, want %d", result.BoardsCreated, numItems)
			}
			if result.BalanceAfter != balance-expectedTotal {
				t.Fatalf("balance %d after purchase, want %d", result.BalanceAfter, balance-expectedTotal)
			}
		} else {
			ibe, ok := IsInsufficientBalance(result.Err)
			if !ok {
				t.Fatalf("expected insufficient balance error, got %v", result.Err)
			}
			if ibe.Shortfall != expectedTotal-balance {
				t.Fatalf("shortfall %d, want %d", ibe.Shortfall, expectedTotal-balance)
			}
			if result.BoardsCreated != 0 {
				t.Fatal("failed batch must create no boards")
			}
			if result.BalanceAfter != balance {
				t.Fatal("failed batch must leave the balance unchanged")
			}
		}
	})
}

// TestPurchaseNeverOverdrawsProperty checks that no successful purchase
// can push a balance below zero.
func TestPurchaseNeverOverdrawsProperty(t *testing.T) {
	pricing := map[int]int64{5: 20, 6: 40, 7: 80, 8: 160}

	rapid.Check(t, func(t *rapid.T) {
		balance := rapid.Int64Range(0, 500).Draw(t, "balance")
		numItems := rapid.IntRange(1, 8).Draw(t, "numItems")

		batch := make([]TicketRequest, numItems)
		for i := range batch {
			batch[i] = genTicket(t)
		}

		result := simulatePurchase(balance, pricing, batch)
		if result.BalanceAfter < 0 {
			t.Fatalf("balance went negative: %d", result.BalanceAfter)
		}
	})
}

// TestPurchaseRejectsInvalidTicketProperty checks that any malformed
// item fails the whole batch before pricing.
func TestPurchaseRejectsInvalidTicketProperty(t *testing.T) {
	pricing := map[int]int64{5: 20, 6: 40, 7: 80, 8: 160}

	rapid.Check(t, func(t *rapid.T) {
		// A ticket with an out-of-universe number.
		size := rapid.IntRange(5, 8).Draw(t, "size")
		numbers := rapid.SliceOfNDistinct(rapid.IntRange(1, 16), size, size, rapid.ID[int]).Draw(t, "numbers")
		numbers[0] = rapid.IntRange(17, 100).Draw(t, "badNumber")

		batch := []TicketRequest{{Numbers: numbers, Times: 1}}
		result := simulatePurchase(10000, pricing, batch)

		if result.Err == nil {
			t.Fatal("expected validation failure")
		}
		if result.BoardsCreated != 0 || result.BalanceAfter != result.BalanceBefore {
			t.Fatal("invalid batch must not change any state")
		}
	})
}
