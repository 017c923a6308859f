package services

import (
	"context"

	"github.com/triptally/triptally_backend/internal/dto"
)

// BalanceSvcFacade derives net balances and settlement suggestions from the
// ledger. Both are recomputed on read from a consistent snapshot; they have
// no lifecycle of their own.
type BalanceSvcFacade interface {
	// GetBalances returns the per-currency net balance of every participant
	// with a non-zero position, plus the groupVersion of the snapshot.
	GetBalances(ctx context.Context, groupID string, requestingParticipantID string) (*dto.BalancesResponse, error)

	// GetSettlementSuggestions returns, per currency, a transfer list that
	// zeroes all balances with at most n-1 transfers.
	GetSettlementSuggestions(ctx context.Context, groupID string, requestingParticipantID string) (*dto.SuggestionsResponse, error)
}
