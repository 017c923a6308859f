package repositories

import (
	"context"
	"time"

	"github.com/triptally/triptally_backend/internal/core/domain"
)

// ExpenseReader defines read operations for expense ledger data.
type ExpenseReader interface {
	// FindExpenseByID retrieves a specific expense (with its shares) by ID.
	FindExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error)

	// ListExpensesByGroup retrieves a group's expenses together with the
	// groupVersion they were read at, as one consistent snapshot. A non-nil
	// sinceVersion filters to expenses touched after that ledger version.
	ListExpensesByGroup(ctx context.Context, groupID string, sinceVersion *int64) ([]domain.Expense, int64, error)

	// GetGroupVersion returns the current monotonic ledger version for a group.
	GetGroupVersion(ctx context.Context, groupID string) (int64, error)
}

// ExpenseWriter defines write operations for expense ledger data. Every
// mutation bumps the group's ledger version and returns the new value.
type ExpenseWriter interface {
	// SaveExpense persists a new expense and its shares atomically. When the
	// idempotency key was already used for a completed save, the previously
	// created expense is returned instead of a duplicate being written.
	SaveExpense(ctx context.Context, expense domain.Expense, idempotencyKey string) (*domain.Expense, int64, error)

	// UpdateExpense replaces an expense's mutable fields and shares via
	// compare-and-swap on (expenseID, expectedVersion). A stale version
	// fails with apperrors.ErrConflict; nothing is partially written.
	UpdateExpense(ctx context.Context, expense domain.Expense, expectedVersion int64) (int64, error)

	// VoidExpense soft-deletes an expense via the same CAS discipline.
	VoidExpense(ctx context.Context, expenseID string, expectedVersion int64, voidedBy string, voidedAt time.Time) (int64, error)
}

// ExpenseRepositoryFacade combines all expense repository interfaces.
type ExpenseRepositoryFacade interface {
	ExpenseReader
	ExpenseWriter
}
