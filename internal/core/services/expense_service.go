package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/triptally/triptally_backend/internal/apperrors"
	"github.com/triptally/triptally_backend/internal/core/domain"
	portsrepo "github.com/triptally/triptally_backend/internal/core/ports/repositories"
	portssvc "github.com/triptally/triptally_backend/internal/core/ports/services"
	"github.com/triptally/triptally_backend/internal/dto"
	"github.com/triptally/triptally_backend/internal/middleware"
	"github.com/triptally/triptally_backend/internal/utils/ledgermath"
)

var (
	ErrSplitMismatch        = errors.New("shares do not sum to expense total")
	ErrDuplicateParticipant = errors.New("duplicate participant in split")
	ErrNotGroupMember       = errors.New("participant is not a member of the group")
	ErrExpenseVoided        = errors.New("expense is voided")
	ErrNotExpenseOwner      = errors.New("only the expense creator or a group admin may modify it")
	ErrShareDetailMissing   = errors.New("share detail missing for split type")
)

// expenseService implements the expense ledger together with its optimistic
// concurrency discipline: versioned CAS mutations, idempotency-key replay and
// group version tracking are enforced here and in the repository it drives.
type expenseService struct {
	expenseRepo   portsrepo.ExpenseRepositoryFacade
	membershipSvc portssvc.MembershipSvcFacade
	currencySvc   portssvc.CurrencySvcFacade
}

// NewExpenseService creates the expense ledger service.
func NewExpenseService(expenseRepo portsrepo.ExpenseRepositoryFacade, membershipSvc portssvc.MembershipSvcFacade, currencySvc portssvc.CurrencySvcFacade) portssvc.ExpenseSvcFacade {
	return &expenseService{
		expenseRepo:   expenseRepo,
		membershipSvc: membershipSvc,
		currencySvc:   currencySvc,
	}
}

var _ portssvc.ExpenseSvcFacade = (*expenseService)(nil)

// computeShares turns the caller-declared split into exact per-participant
// Money shares. All three split modes funnel through the same
// remainder-distribution arithmetic in ledgermath, so the shares always sum
// to the total exactly.
func computeShares(total domain.Money, splitType domain.SplitType, inputs []dto.ShareInput) ([]domain.ParticipantShare, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, ledgermath.ErrNoParticipants)
	}

	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		if _, dup := seen[in.ParticipantID]; dup {
			return nil, fmt.Errorf("%w: %w: %s", apperrors.ErrValidation, ErrDuplicateParticipant, in.ParticipantID)
		}
		seen[in.ParticipantID] = struct{}{}
	}

	var amounts map[string]int64
	percentages := make(map[string]*decimal.Decimal)

	switch splitType {
	case domain.SplitEqual:
		ids := make([]string, len(inputs))
		for i, in := range inputs {
			ids[i] = in.ParticipantID
		}
		allocated, err := ledgermath.AllocateEqual(total.MinorUnits, ids)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
		}
		amounts = allocated

	case domain.SplitCustom:
		amounts = make(map[string]int64, len(inputs))
		for _, in := range inputs {
			if in.MinorUnits == nil {
				return nil, fmt.Errorf("%w: %w: minorUnits required for participant %s", apperrors.ErrValidation, ErrShareDetailMissing, in.ParticipantID)
			}
			if *in.MinorUnits < 0 {
				return nil, fmt.Errorf("%w: share for participant %s must not be negative, got %d", apperrors.ErrValidation, in.ParticipantID, *in.MinorUnits)
			}
			amounts[in.ParticipantID] = *in.MinorUnits
		}
		deficit, err := ledgermath.ValidateCustomShares(total.MinorUnits, amounts)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
		}
		if deficit != 0 {
			return nil, fmt.Errorf("%w: %w: off by %d minor units", apperrors.ErrValidation, ErrSplitMismatch, deficit)
		}

	case domain.SplitPercentage:
		pcts := make(map[string]decimal.Decimal, len(inputs))
		for _, in := range inputs {
			if in.Percentage == nil {
				return nil, fmt.Errorf("%w: %w: percentage required for participant %s", apperrors.ErrValidation, ErrShareDetailMissing, in.ParticipantID)
			}
			pcts[in.ParticipantID] = *in.Percentage
			pct := *in.Percentage
			percentages[in.ParticipantID] = &pct
		}
		allocated, err := ledgermath.AllocateByPercentage(total.MinorUnits, pcts)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
		}
		amounts = allocated

	default:
		return nil, fmt.Errorf("%w: unknown split type %q", apperrors.ErrValidation, splitType)
	}

	ids := make([]string, 0, len(amounts))
	for id := range amounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	shares := make([]domain.ParticipantShare, len(ids))
	for i, id := range ids {
		shares[i] = domain.ParticipantShare{
			ParticipantID: id,
			Amount:        domain.NewMoney(amounts[id], total.CurrencyCode),
			Percentage:    percentages[id],
		}
	}
	return shares, nil
}

// validateParticipants checks that the payer and every share holder belong
// to the group.
func (s *expenseService) validateParticipants(ctx context.Context, groupID string, payerID string, shares []domain.ParticipantShare) error {
	memberIDs, err := s.membershipSvc.ListMemberIDs(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to list group members: %w", err)
	}
	members := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		members[id] = struct{}{}
	}

	if _, ok := members[payerID]; !ok {
		return fmt.Errorf("%w: %w: payer %s", apperrors.ErrValidation, ErrNotGroupMember, payerID)
	}
	for _, share := range shares {
		if _, ok := members[share.ParticipantID]; !ok {
			return fmt.Errorf("%w: %w: %s", apperrors.ErrValidation, ErrNotGroupMember, share.ParticipantID)
		}
	}
	return nil
}

// CreateExpense validates, splits and persists a new expense.
// Implements portssvc.ExpenseWriterSvc.
func (s *expenseService) CreateExpense(ctx context.Context, groupID string, req dto.CreateExpenseRequest, idempotencyKey string, creatorParticipantID string) (*domain.Expense, int64, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.membershipSvc.AuthorizeMemberAction(ctx, creatorParticipantID, groupID, domain.RoleMember); err != nil {
		logger.Warn("Authorization failed for CreateExpense", slog.String("group_id", groupID), slog.String("error", err.Error()))
		return nil, 0, err
	}

	if req.TotalMinorUnits <= 0 {
		return nil, 0, fmt.Errorf("%w: %v: got %d", apperrors.ErrValidation, ledgermath.ErrNonPositiveTotal, req.TotalMinorUnits)
	}
	if err := s.currencySvc.ValidateCurrency(ctx, req.CurrencyCode); err != nil {
		return nil, 0, err
	}

	total := domain.NewMoney(req.TotalMinorUnits, req.CurrencyCode)
	shares, err := computeShares(total, req.SplitType, req.Participants)
	if err != nil {
		return nil, 0, err
	}
	if err := s.validateParticipants(ctx, groupID, req.PayerID, shares); err != nil {
		return nil, 0, err
	}

	now := time.Now().UTC()
	expense := domain.Expense{
		ExpenseID:   uuid.NewString(),
		GroupID:     groupID,
		PayerID:     req.PayerID,
		TotalAmount: total,
		Description: req.Description,
		Category:    req.Category,
		SplitType:   req.SplitType,
		Shares:      shares,
		Version:     1,
		Voided:      false,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorParticipantID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorParticipantID,
		},
	}

	saved, groupVersion, err := s.expenseRepo.SaveExpense(ctx, expense, idempotencyKey)
	if err != nil {
		logger.Error("Failed to save expense", slog.String("group_id", groupID), slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to save expense: %w", err)
	}

	if saved.ExpenseID != expense.ExpenseID {
		logger.Info("Idempotent replay returned prior expense", slog.String("expense_id", saved.ExpenseID), slog.String("idempotency_key", idempotencyKey))
	} else {
		logger.Info("Expense created", slog.String("expense_id", saved.ExpenseID), slog.String("group_id", groupID), slog.Int64("group_version", groupVersion))
	}
	return saved, groupVersion, nil
}

// UpdateExpense applies a versioned patch to an expense.
// Implements portssvc.ExpenseWriterSvc.
func (s *expenseService) UpdateExpense(ctx context.Context, groupID string, expenseID string, req dto.UpdateExpenseRequest, actingParticipantID string) (*domain.Expense, int64, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.membershipSvc.AuthorizeMemberAction(ctx, actingParticipantID, groupID, domain.RoleMember); err != nil {
		logger.Warn("Authorization failed for UpdateExpense", slog.String("group_id", groupID), slog.String("error", err.Error()))
		return nil, 0, err
	}

	expense, err := s.fetchGroupExpense(ctx, groupID, expenseID)
	if err != nil {
		return nil, 0, err
	}
	if expense.Voided {
		return nil, 0, fmt.Errorf("%w: %w", apperrors.ErrValidation, ErrExpenseVoided)
	}
	if err := s.authorizeMutation(ctx, expense, actingParticipantID); err != nil {
		return nil, 0, err
	}

	if req.Description != nil {
		expense.Description = *req.Description
	}
	if req.Category != nil {
		expense.Category = *req.Category
	}

	// Money-side changes are recomputed as a whole so the sum invariant
	// never depends on a partial patch.
	if req.PayerID != nil || req.TotalMinorUnits != nil || req.SplitType != nil || len(req.Participants) > 0 {
		if req.TotalMinorUnits == nil || req.SplitType == nil || len(req.Participants) == 0 {
			return nil, 0, fmt.Errorf("%w: changing the split requires totalMinorUnits, splitType and participants together", apperrors.ErrValidation)
		}
		if *req.TotalMinorUnits <= 0 {
			return nil, 0, fmt.Errorf("%w: %v: got %d", apperrors.ErrValidation, ledgermath.ErrNonPositiveTotal, *req.TotalMinorUnits)
		}
		if req.PayerID != nil {
			expense.PayerID = *req.PayerID
		}
		expense.TotalAmount = domain.NewMoney(*req.TotalMinorUnits, expense.TotalAmount.CurrencyCode)
		expense.SplitType = *req.SplitType

		shares, err := computeShares(expense.TotalAmount, expense.SplitType, req.Participants)
		if err != nil {
			return nil, 0, err
		}
		if err := s.validateParticipants(ctx, groupID, expense.PayerID, shares); err != nil {
			return nil, 0, err
		}
		expense.Shares = shares
	}

	expense.Version = req.Version + 1
	expense.LastUpdatedAt = time.Now().UTC()
	expense.LastUpdatedBy = actingParticipantID

	groupVersion, err := s.expenseRepo.UpdateExpense(ctx, *expense, req.Version)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			logger.Warn("Version conflict updating expense", slog.String("expense_id", expenseID), slog.Int64("expected_version", req.Version))
		} else {
			logger.Error("Failed to update expense", slog.String("expense_id", expenseID), slog.String("error", err.Error()))
		}
		return nil, 0, err
	}

	logger.Info("Expense updated", slog.String("expense_id", expenseID), slog.Int64("group_version", groupVersion))
	return expense, groupVersion, nil
}

// VoidExpense soft-deletes an expense through the versioned path.
// Implements portssvc.ExpenseWriterSvc.
func (s *expenseService) VoidExpense(ctx context.Context, groupID string, expenseID string, expectedVersion int64, actingParticipantID string) (int64, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.membershipSvc.AuthorizeMemberAction(ctx, actingParticipantID, groupID, domain.RoleMember); err != nil {
		logger.Warn("Authorization failed for VoidExpense", slog.String("group_id", groupID), slog.String("error", err.Error()))
		return 0, err
	}

	expense, err := s.fetchGroupExpense(ctx, groupID, expenseID)
	if err != nil {
		return 0, err
	}
	if expense.Voided {
		return 0, fmt.Errorf("%w: %w", apperrors.ErrValidation, ErrExpenseVoided)
	}
	if err := s.authorizeMutation(ctx, expense, actingParticipantID); err != nil {
		return 0, err
	}

	groupVersion, err := s.expenseRepo.VoidExpense(ctx, expenseID, expectedVersion, actingParticipantID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			logger.Warn("Version conflict voiding expense", slog.String("expense_id", expenseID), slog.Int64("expected_version", expectedVersion))
		} else {
			logger.Error("Failed to void expense", slog.String("expense_id", expenseID), slog.String("error", err.Error()))
		}
		return 0, err
	}

	logger.Info("Expense voided", slog.String("expense_id", expenseID), slog.Int64("group_version", groupVersion))
	return groupVersion, nil
}

// GetExpenseByID retrieves a single expense. Implements portssvc.ExpenseReaderSvc.
func (s *expenseService) GetExpenseByID(ctx context.Context, groupID string, expenseID string, requestingParticipantID string) (*domain.Expense, error) {
	if err := s.membershipSvc.AuthorizeMemberAction(ctx, requestingParticipantID, groupID, domain.RoleMember); err != nil {
		return nil, err
	}
	return s.fetchGroupExpense(ctx, groupID, expenseID)
}

// ListExpenses retrieves a consistent snapshot of a group's expenses.
// Implements portssvc.ExpenseReaderSvc.
func (s *expenseService) ListExpenses(ctx context.Context, groupID string, requestingParticipantID string, params dto.ListExpensesParams) (*dto.ListExpensesResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.membershipSvc.AuthorizeMemberAction(ctx, requestingParticipantID, groupID, domain.RoleMember); err != nil {
		return nil, err
	}

	expenses, groupVersion, err := s.expenseRepo.ListExpensesByGroup(ctx, groupID, params.SinceVersion)
	if err != nil {
		logger.Error("Failed to list expenses", slog.String("group_id", groupID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to retrieve expenses: %w", err)
	}

	if !params.IncludeVoided {
		filtered := expenses[:0]
		for _, exp := range expenses {
			if !exp.Voided {
				filtered = append(filtered, exp)
			}
		}
		expenses = filtered
	}

	logger.Debug("Expenses listed", slog.String("group_id", groupID), slog.Int("count", len(expenses)), slog.Int64("group_version", groupVersion))
	return &dto.ListExpensesResponse{
		Expenses:     dto.ToExpenseResponses(expenses),
		GroupVersion: groupVersion,
	}, nil
}

// fetchGroupExpense loads an expense and hides its existence from other groups.
func (s *expenseService) fetchGroupExpense(ctx context.Context, groupID string, expenseID string) (*domain.Expense, error) {
	expense, err := s.expenseRepo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to find expense %s: %w", expenseID, err)
	}
	if expense.GroupID != groupID {
		return nil, apperrors.ErrNotFound
	}
	return expense, nil
}

// authorizeMutation enforces the creator-or-admin rule for expense edits.
func (s *expenseService) authorizeMutation(ctx context.Context, expense *domain.Expense, actingParticipantID string) error {
	if expense.CreatedBy == actingParticipantID {
		return nil
	}
	if err := s.membershipSvc.AuthorizeMemberAction(ctx, actingParticipantID, expense.GroupID, domain.RoleAdmin); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrForbidden, ErrNotExpenseOwner)
	}
	return nil
}
