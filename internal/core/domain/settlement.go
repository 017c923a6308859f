package domain

import "time"

// SettlementStatus indicates the state of a settlement record.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "PENDING"
	SettlementConfirmed SettlementStatus = "CONFIRMED"
)

// SettlementSuggestion is a computed, not-yet-acted-upon transfer that would
// help zero out a group's balances. Suggestions are derived on read and never
// persisted.
type SettlementSuggestion struct {
	FromParticipantID string `json:"fromParticipantID"`
	ToParticipantID   string `json:"toParticipantID"`
	Amount            Money  `json:"amount"`
}

// SettlementRecord is a persisted, user-acknowledged instance of acting on a
// suggestion. LedgerVersionAtCreation pins the groupVersion the suggestion
// was computed from, so a confirmation against a moved-on ledger can be
// rejected as stale instead of silently trusted.
//
// Records are never deleted, only superseded.
type SettlementRecord struct {
	SettlementID            string           `json:"settlementID"` // Primary Key (UUID)
	GroupID                 string           `json:"groupID"`
	FromParticipantID       string           `json:"fromParticipantID"` // debtor (paid)
	ToParticipantID         string           `json:"toParticipantID"`   // creditor (received)
	Amount                  Money            `json:"amount"`
	Status                  SettlementStatus `json:"status"`
	PayerConfirmed          bool             `json:"payerConfirmed"`
	PayeeConfirmed          bool             `json:"payeeConfirmed"`
	ConfirmedAt             *time.Time       `json:"confirmedAt,omitempty"`
	LedgerVersionAtCreation int64            `json:"ledgerVersionAtCreation"`
	Version                 int64            `json:"version"`
	AuditFields
}
