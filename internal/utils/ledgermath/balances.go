package ledgermath

import (
	"github.com/triptally/triptally_backend/internal/core/domain"
)

// ComputeBalances folds a group's expenses into one net balance per
// participant, partitioned by currency. For each non-voided expense the payer
// is credited the total and every share holder is debited their share; a
// payer who is also in their own split therefore nets out to their actual
// share. Voided expenses are skipped.
//
// The fold is a single linear pass over exact minor-unit integers, so the
// result is identical regardless of expense order. For every currency bucket
// the net balances sum to zero as long as each expense satisfies the
// shares-sum-to-total invariant.
func ComputeBalances(expenses []domain.Expense) map[string]map[string]int64 {
	buckets := make(map[string]map[string]int64)

	for _, exp := range expenses {
		if exp.Voided {
			continue
		}
		bucket := buckets[exp.TotalAmount.CurrencyCode]
		if bucket == nil {
			bucket = make(map[string]int64)
			buckets[exp.TotalAmount.CurrencyCode] = bucket
		}

		bucket[exp.PayerID] += exp.TotalAmount.MinorUnits
		for _, share := range exp.Shares {
			bucket[share.ParticipantID] -= share.Amount.MinorUnits
		}
	}

	return buckets
}

// ApplySettlements folds confirmed settlement payments into balance buckets:
// the paying debtor's balance improves by the amount, the receiving
// creditor's drops by it. Pending records are ignored — until both sides
// acknowledge, the debt still stands. The per-currency sum-to-zero property
// is preserved because every settlement moves equal and opposite amounts.
func ApplySettlements(buckets map[string]map[string]int64, settlements []domain.SettlementRecord) {
	for _, rec := range settlements {
		if rec.Status != domain.SettlementConfirmed {
			continue
		}
		bucket := buckets[rec.Amount.CurrencyCode]
		if bucket == nil {
			bucket = make(map[string]int64)
			buckets[rec.Amount.CurrencyCode] = bucket
		}
		bucket[rec.FromParticipantID] += rec.Amount.MinorUnits
		bucket[rec.ToParticipantID] -= rec.Amount.MinorUnits
	}
}
