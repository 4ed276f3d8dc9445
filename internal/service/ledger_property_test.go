// Property-based tests for the deposit lifecycle and the derived
// balance. The simulation mirrors LedgerService: entries transition only
// from pending, approval credits exactly once, and the balance always
// equals the sum of approved amounts.
package service

import (
	"testing"

	"pgregory.net/rapid"

	"lotto-ledger/internal/model"
)

// simEntry is one ledger entry in the simulation.
type simEntry struct {
	Amount int64
	Status string
}

// resolveSim mirrors LedgerService.ResolveDeposit: only pending entries
// transition, and only an approval credits the balance.
func resolveSim(e *simEntry, decision string, balance int64) int64 {
	if e.Status != model.StatusPending {
		return balance
	}
	e.Status = decision
	if decision == model.DecisionApproved {
		return balance + e.Amount
	}
	return balance
}

// sumApproved mirrors LedgerRepository.SumApproved.
func sumApproved(entries []*simEntry) int64 {
	var sum int64
	for _, e := range entries {
		if e.Status == model.StatusApproved {
			sum += e.Amount
		}
	}
	return sum
}

// TestDepositResolutionProperty checks that repeated and conflicting
// resolutions never double-credit and that rejected deposits never touch
// the balance.
func TestDepositResolutionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numEntries := rapid.IntRange(1, 10).Draw(t, "numEntries")

		entries := make([]*simEntry, numEntries)
		for i := range entries {
			entries[i] = &simEntry{
				Amount: rapid.Int64Range(1, 10000).Draw(t, "amount"),
				Status: model.StatusPending,
			}
		}

		var balance int64
		numResolutions := rapid.IntRange(1, 40).Draw(t, "numResolutions")
		for i := 0; i < numResolutions; i++ {
			idx := rapid.IntRange(0, numEntries-1).Draw(t, "idx")
			decision := rapid.SampledFrom([]string{model.DecisionApproved, model.DecisionRejected}).Draw(t, "decision")
			balance = resolveSim(entries[idx], decision, balance)
		}

		// Ledger-as-truth: the maintained balance and the derived sum
		// must agree at all times.
		if balance != sumApproved(entries) {
			t.Fatalf("balance %d diverged from approved sum %d", balance, sumApproved(entries))
		}

		// No entry may be double-counted: the balance can never exceed
		// the sum of all amounts.
		var totalDeposited int64
		for _, e := range entries {
			totalDeposited += e.Amount
		}
		if balance > totalDeposited {
			t.Fatalf("balance %d exceeds total deposited %d", balance, totalDeposited)
		}
	})
}

// TestDepositTransitionsAreOneWayProperty checks that once resolved, an
// entry's status never changes again.
func TestDepositTransitionsAreOneWayProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := &simEntry{
			Amount: rapid.Int64Range(1, 10000).Draw(t, "amount"),
			Status: model.StatusPending,
		}

		first := rapid.SampledFrom([]string{model.DecisionApproved, model.DecisionRejected}).Draw(t, "first")
		balance := resolveSim(e, first, 0)
		statusAfterFirst := e.Status

		numRetries := rapid.IntRange(1, 10).Draw(t, "numRetries")
		for i := 0; i < numRetries; i++ {
			decision := rapid.SampledFrom([]string{model.DecisionApproved, model.DecisionRejected}).Draw(t, "retry")
			balance = resolveSim(e, decision, balance)
		}

		if e.Status != statusAfterFirst {
			t.Fatalf("status changed after resolution: %s -> %s", statusAfterFirst, e.Status)
		}

		wantBalance := int64(0)
		if first == model.DecisionApproved {
			wantBalance = e.Amount
		}
		if balance != wantBalance {
			t.Fatalf("balance %d after retries, want %d", balance, wantBalance)
		}
	})
}
