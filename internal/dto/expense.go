package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/triptally/triptally_backend/internal/core/domain"
)

// ShareInput is one participant's entry in a split request. MinorUnits is
// required for CUSTOM splits, Percentage for PERCENTAGE splits; EQUAL splits
// need only the participant IDs.
type ShareInput struct {
	ParticipantID string           `json:"participantID" binding:"required"`
	MinorUnits    *int64           `json:"minorUnits,omitempty"`
	Percentage    *decimal.Decimal `json:"percentage,omitempty"`
}

// CreateExpenseRequest is the payload for adding an expense to a group.
// The acting participant comes from the authenticated token, never from the
// body; PayerID may name any group member (recording on someone's behalf).
type CreateExpenseRequest struct {
	PayerID         string           `json:"payerID" binding:"required"`
	TotalMinorUnits int64            `json:"totalMinorUnits" binding:"required,gt=0"`
	CurrencyCode    string           `json:"currencyCode" binding:"required,iso4217"`
	Description     string           `json:"description" binding:"required"`
	Category        string           `json:"category"`
	SplitType       domain.SplitType `json:"splitType" binding:"required,oneof=EQUAL CUSTOM PERCENTAGE"`
	Participants    []ShareInput     `json:"participants" binding:"required,min=1,dive"`
}

// UpdateExpenseRequest is the payload for editing an expense. Version is the
// version the caller last observed; a stale value is rejected with a
// conflict. Nil fields are left unchanged. Changing the money side (payer,
// total, split type, participants) requires resupplying TotalMinorUnits,
// SplitType and Participants so the shares can be recomputed as a whole.
type UpdateExpenseRequest struct {
	Version         int64             `json:"version" binding:"required"`
	Description     *string           `json:"description,omitempty"`
	Category        *string           `json:"category,omitempty"`
	PayerID         *string           `json:"payerID,omitempty"`
	TotalMinorUnits *int64            `json:"totalMinorUnits,omitempty"`
	SplitType       *domain.SplitType `json:"splitType,omitempty" binding:"omitempty,oneof=EQUAL CUSTOM PERCENTAGE"`
	Participants    []ShareInput      `json:"participants,omitempty" binding:"omitempty,min=1,dive"`
}

// VoidExpenseRequest carries the observed version for voiding an expense.
type VoidExpenseRequest struct {
	Version int64 `json:"version" binding:"required"`
}

// ListExpensesParams are the query parameters for listing a group's expenses.
type ListExpensesParams struct {
	SinceVersion *int64 `form:"sinceVersion"`
	IncludeVoided bool  `form:"includeVoided"`
}

// ShareResponse is one participant's share in an expense response.
type ShareResponse struct {
	ParticipantID string           `json:"participantID"`
	Amount        domain.Money     `json:"amount"`
	Percentage    *decimal.Decimal `json:"percentage,omitempty"`
}

// ExpenseResponse is the API representation of an expense.
type ExpenseResponse struct {
	ExpenseID   string          `json:"expenseID"`
	GroupID     string          `json:"groupID"`
	PayerID     string          `json:"payerID"`
	TotalAmount domain.Money    `json:"totalAmount"`
	Description string          `json:"description"`
	Category    string          `json:"category,omitempty"`
	SplitType   string          `json:"splitType"`
	Shares      []ShareResponse `json:"shares"`
	Version     int64           `json:"version"`
	Voided      bool            `json:"voided"`
	CreatedAt   time.Time       `json:"createdAt"`
	CreatedBy   string          `json:"createdBy"`
}

// ExpenseMutationResponse pairs a mutated expense with the group's ledger
// version after the mutation, so clients can detect staleness on later reads.
type ExpenseMutationResponse struct {
	Expense      ExpenseResponse `json:"expense"`
	GroupVersion int64           `json:"groupVersion"`
}

// ListExpensesResponse is a consistent snapshot of a group's expenses.
type ListExpensesResponse struct {
	Expenses     []ExpenseResponse `json:"expenses"`
	GroupVersion int64             `json:"groupVersion"`
}

// ToExpenseResponse converts a domain.Expense to its API representation.
func ToExpenseResponse(exp *domain.Expense) ExpenseResponse {
	shares := make([]ShareResponse, len(exp.Shares))
	for i, s := range exp.Shares {
		shares[i] = ShareResponse{
			ParticipantID: s.ParticipantID,
			Amount:        s.Amount,
			Percentage:    s.Percentage,
		}
	}
	return ExpenseResponse{
		ExpenseID:   exp.ExpenseID,
		GroupID:     exp.GroupID,
		PayerID:     exp.PayerID,
		TotalAmount: exp.TotalAmount,
		Description: exp.Description,
		Category:    exp.Category,
		SplitType:   string(exp.SplitType),
		Shares:      shares,
		Version:     exp.Version,
		Voided:      exp.Voided,
		CreatedAt:   exp.CreatedAt,
		CreatedBy:   exp.CreatedBy,
	}
}

// ToExpenseResponses converts a slice of domain expenses.
func ToExpenseResponses(exps []domain.Expense) []ExpenseResponse {
	responses := make([]ExpenseResponse, len(exps))
	for i := range exps {
		responses[i] = ToExpenseResponse(&exps[i])
	}
	return responses
}
