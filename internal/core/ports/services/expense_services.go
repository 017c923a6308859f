package services

import (
	"context"

	"github.com/triptally/triptally_backend/internal/core/domain"
	"github.com/triptally/triptally_backend/internal/dto"
)

// ExpenseReaderSvc defines read operations on the expense ledger.
type ExpenseReaderSvc interface {
	// GetExpenseByID retrieves a single expense visible to the requesting participant.
	GetExpenseByID(ctx context.Context, groupID string, expenseID string, requestingParticipantID string) (*domain.Expense, error)

	// ListExpenses retrieves a consistent snapshot of a group's expenses
	// plus the groupVersion the snapshot was read at.
	ListExpenses(ctx context.Context, groupID string, requestingParticipantID string, params dto.ListExpensesParams) (*dto.ListExpensesResponse, error)
}

// ExpenseWriterSvc defines ledger mutations. Each mutation is guarded by
// optimistic versioning; creates are deduplicated by idempotency key.
type ExpenseWriterSvc interface {
	// CreateExpense validates, splits and persists a new expense. A replayed
	// idempotency key returns the originally created expense unchanged.
	CreateExpense(ctx context.Context, groupID string, req dto.CreateExpenseRequest, idempotencyKey string, creatorParticipantID string) (*domain.Expense, int64, error)

	// UpdateExpense applies a versioned patch to an expense. A stale version
	// fails with apperrors.ErrConflict.
	UpdateExpense(ctx context.Context, groupID string, expenseID string, req dto.UpdateExpenseRequest, actingParticipantID string) (*domain.Expense, int64, error)

	// VoidExpense soft-deletes an expense through the same versioned path.
	VoidExpense(ctx context.Context, groupID string, expenseID string, expectedVersion int64, actingParticipantID string) (int64, error)
}

// ExpenseSvcFacade combines all expense-ledger service interfaces.
type ExpenseSvcFacade interface {
	ExpenseReaderSvc
	ExpenseWriterSvc
}
