package dto

import "github.com/triptally/triptally_backend/internal/core/domain"

// ParticipantBalance is one participant's net position in one currency.
// Positive means the group owes them, negative means they owe the group.
type ParticipantBalance struct {
	ParticipantID string       `json:"participantID"`
	Net           domain.Money `json:"net"`
}

// BalancesResponse is the per-currency balance breakdown for a group,
// computed from the consistent expense snapshot at GroupVersion. Groups that
// mix currencies get one bucket per currency; the engine never converts.
type BalancesResponse struct {
	GroupID      string                          `json:"groupID"`
	GroupVersion int64                           `json:"groupVersion"`
	Balances     map[string][]ParticipantBalance `json:"balances"` // keyed by currency code
}

// SuggestionsResponse lists the suggested transfers that would settle the
// group, per currency, plus the ledger version they were computed from.
// Clients must pass GroupVersion back when recording a settlement so stale
// suggestions can be detected.
type SuggestionsResponse struct {
	GroupID      string                                   `json:"groupID"`
	GroupVersion int64                                    `json:"groupVersion"`
	Suggestions  map[string][]domain.SettlementSuggestion `json:"suggestions"` // keyed by currency code
}
