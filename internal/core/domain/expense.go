package domain

import "github.com/shopspring/decimal"

// SplitType indicates how an expense total is divided among participants.
type SplitType string

const (
	SplitEqual      SplitType = "EQUAL"
	SplitCustom     SplitType = "CUSTOM"
	SplitPercentage SplitType = "PERCENTAGE"
)

// ParticipantShare is one participant's portion of an expense. Amount is
// always an exact Money value; Percentage is retained only as the caller's
// original input for PERCENTAGE splits.
type ParticipantShare struct {
	ParticipantID string           `json:"participantID"`
	Amount        Money            `json:"amount"`
	Percentage    *decimal.Decimal `json:"percentage,omitempty"`
}

// Expense represents a single shared expense within a group.
//
// Invariant: the sum of Shares[i].Amount equals TotalAmount exactly, in the
// same currency, for every persisted expense. Version increments on each
// mutation; a stale version on update is rejected. Voided expenses are kept
// for audit continuity and excluded from balance computation.
type Expense struct {
	ExpenseID   string             `json:"expenseID"` // Primary Key (UUID)
	GroupID     string             `json:"groupID"`
	PayerID     string             `json:"payerID"`
	TotalAmount Money              `json:"totalAmount"`
	Description string             `json:"description"`
	Category    string             `json:"category"` // Free-form tag (e.g., "food", "lodging")
	SplitType   SplitType          `json:"splitType"`
	Shares      []ParticipantShare `json:"shares"`
	Version     int64              `json:"version"`
	Voided      bool               `json:"voided"`
	AuditFields
}
