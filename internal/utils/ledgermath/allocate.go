// Package ledgermath holds the pure computation core of the expense engine:
// exact share allocation, balance folding, and transfer netting. Everything
// here works on integer minor units, is deterministic, and has no I/O or
// shared state, so it is safely callable from any goroutine.
package ledgermath

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoParticipants indicates an allocation was requested for an empty participant set.
	ErrNoParticipants = errors.New("participant set is empty")
	// ErrNonPositiveTotal indicates the expense total is zero or negative.
	ErrNonPositiveTotal = errors.New("total must be positive")
	// ErrPercentageSum indicates the supplied percentages do not sum to 100%.
	ErrPercentageSum = errors.New("percentages must sum to 100")
)

// percentEpsilon is the tolerance for percentage-sum validation, in percent
// points (0.01 == one hundredth of a percent).
var percentEpsilon = decimal.New(1, -2)

var oneHundred = decimal.NewFromInt(100)

// AllocateEqual splits total minor units evenly across participants. Integer
// division leaves a remainder of 0..n-1 minor units, which is distributed one
// unit at a time to the first participants in lexicographic ID order. The
// returned shares always sum to exactly total.
//
// The participant order of the result is lexicographic by ID regardless of
// input order, which keeps the remainder rule deterministic for testing.
func AllocateEqual(total int64, participantIDs []string) (map[string]int64, error) {
	if total <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNonPositiveTotal, total)
	}
	ids, err := sortedUnique(participantIDs)
	if err != nil {
		return nil, err
	}

	n := int64(len(ids))
	base := total / n
	remainder := total % n

	shares := make(map[string]int64, len(ids))
	for i, id := range ids {
		share := base
		if int64(i) < remainder {
			share++
		}
		shares[id] = share
	}
	return shares, nil
}

// AllocateByPercentage splits total minor units according to per-participant
// percentages. The percentages must sum to 100 within percentEpsilon; the
// epsilon is validation slack only and never shifts the allocation. Each share
// starts as floor(total * pct / sum(pct)), so flooring leaves 0..n-1 leftover
// minor units, which are distributed one at a time in lexicographic
// participant ID order, the same remainder rule as AllocateEqual. The
// returned shares always sum to exactly total.
func AllocateByPercentage(total int64, percentages map[string]decimal.Decimal) (map[string]int64, error) {
	if total <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNonPositiveTotal, total)
	}
	if len(percentages) == 0 {
		return nil, ErrNoParticipants
	}

	ids := make([]string, 0, len(percentages))
	sum := decimal.Zero
	for id, pct := range percentages {
		if pct.IsNegative() {
			return nil, fmt.Errorf("%w: negative percentage %s for participant %s", ErrPercentageSum, pct.String(), id)
		}
		ids = append(ids, id)
		sum = sum.Add(pct)
	}
	sort.Strings(ids)

	if sum.Sub(oneHundred).Abs().GreaterThan(percentEpsilon) {
		return nil, fmt.Errorf("%w: got %s", ErrPercentageSum, sum.String())
	}

	totalDec := decimal.NewFromInt(total)
	shares := make(map[string]int64, len(ids))
	var allocated int64
	for _, id := range ids {
		// Exact weighted integer division against the actual sum:
		// floor(total * pct / sum). QuoRem keeps the division exact, so
		// the floored shares can never exceed total.
		quotient, _ := totalDec.Mul(percentages[id]).QuoRem(sum, 0)
		share := quotient.IntPart()
		shares[id] = share
		allocated += share
	}

	// Flooring leaves 0..len(ids)-1 minor units unallocated; hand them out
	// one at a time in ID order so the sum invariant holds exactly.
	for i := 0; allocated < total; i++ {
		shares[ids[i]]++
		allocated++
	}
	return shares, nil
}

// ValidateCustomShares checks that caller-supplied explicit shares cover the
// total exactly. It returns the deficit (total - sum of shares), which is
// zero when valid.
func ValidateCustomShares(total int64, shares map[string]int64) (int64, error) {
	if total <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrNonPositiveTotal, total)
	}
	if len(shares) == 0 {
		return 0, ErrNoParticipants
	}
	var sum int64
	for _, amount := range shares {
		sum += amount
	}
	return total - sum, nil
}

// sortedUnique sorts the IDs and rejects duplicates and empty sets.
func sortedUnique(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, ErrNoParticipants
	}
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	for i := 1; i < len(out); i++ {
		if out[i] == out[i-1] {
			return nil, fmt.Errorf("duplicate participant %s in split", out[i])
		}
	}
	return out, nil
}
