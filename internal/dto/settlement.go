package dto

import (
	"time"

	"github.com/triptally/triptally_backend/internal/core/domain"
)

// RecordSettlementRequest records that a participant is acting on a
// settlement suggestion. LedgerVersion must be the groupVersion the
// suggestion was computed from (echoed by the suggestions endpoint); it is
// pinned on the record so a later confirmation against a moved-on ledger is
// flagged stale.
type RecordSettlementRequest struct {
	FromParticipantID string `json:"fromParticipantID" binding:"required"`
	ToParticipantID   string `json:"toParticipantID" binding:"required"`
	MinorUnits        int64  `json:"minorUnits" binding:"required,gt=0"`
	CurrencyCode      string `json:"currencyCode" binding:"required,iso4217"`
	LedgerVersion     int64  `json:"ledgerVersion" binding:"required"`
}

// SettlementResponse is the API representation of a settlement record.
type SettlementResponse struct {
	SettlementID            string       `json:"settlementID"`
	GroupID                 string       `json:"groupID"`
	FromParticipantID       string       `json:"fromParticipantID"`
	ToParticipantID         string       `json:"toParticipantID"`
	Amount                  domain.Money `json:"amount"`
	Status                  string       `json:"status"`
	PayerConfirmed          bool         `json:"payerConfirmed"`
	PayeeConfirmed          bool         `json:"payeeConfirmed"`
	ConfirmedAt             *time.Time   `json:"confirmedAt,omitempty"`
	LedgerVersionAtCreation int64        `json:"ledgerVersionAtCreation"`
	CreatedAt               time.Time    `json:"createdAt"`
	CreatedBy               string       `json:"createdBy"`
}

// ToSettlementResponse converts a domain.SettlementRecord to its API form.
func ToSettlementResponse(rec *domain.SettlementRecord) SettlementResponse {
	return SettlementResponse{
		SettlementID:            rec.SettlementID,
		GroupID:                 rec.GroupID,
		FromParticipantID:       rec.FromParticipantID,
		ToParticipantID:         rec.ToParticipantID,
		Amount:                  rec.Amount,
		Status:                  string(rec.Status),
		PayerConfirmed:          rec.PayerConfirmed,
		PayeeConfirmed:          rec.PayeeConfirmed,
		ConfirmedAt:             rec.ConfirmedAt,
		LedgerVersionAtCreation: rec.LedgerVersionAtCreation,
		CreatedAt:               rec.CreatedAt,
		CreatedBy:               rec.CreatedBy,
	}
}

// ToSettlementResponses converts a slice of settlement records.
func ToSettlementResponses(recs []domain.SettlementRecord) []SettlementResponse {
	responses := make([]SettlementResponse, len(recs))
	for i := range recs {
		responses[i] = ToSettlementResponse(&recs[i])
	}
	return responses
}
