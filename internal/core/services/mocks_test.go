package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/triptally/triptally_backend/internal/core/domain"
	portsrepo "github.com/triptally/triptally_backend/internal/core/ports/repositories"
	portssvc "github.com/triptally/triptally_backend/internal/core/ports/services"
)

// --- Mock ExpenseRepository ---

type MockExpenseRepository struct {
	mock.Mock
}

var _ portsrepo.ExpenseRepositoryFacade = (*MockExpenseRepository)(nil)

func (m *MockExpenseRepository) FindExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error) {
	args := m.Called(ctx, expenseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Expense), args.Error(1)
}

func (m *MockExpenseRepository) ListExpensesByGroup(ctx context.Context, groupID string, sinceVersion *int64) ([]domain.Expense, int64, error) {
	args := m.Called(ctx, groupID, sinceVersion)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]domain.Expense), args.Get(1).(int64), args.Error(2)
}

func (m *MockExpenseRepository) GetGroupVersion(ctx context.Context, groupID string) (int64, error) {
	args := m.Called(ctx, groupID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockExpenseRepository) SaveExpense(ctx context.Context, expense domain.Expense, idempotencyKey string) (*domain.Expense, int64, error) {
	args := m.Called(ctx, expense, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).(*domain.Expense), args.Get(1).(int64), args.Error(2)
}

func (m *MockExpenseRepository) UpdateExpense(ctx context.Context, expense domain.Expense, expectedVersion int64) (int64, error) {
	args := m.Called(ctx, expense, expectedVersion)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockExpenseRepository) VoidExpense(ctx context.Context, expenseID string, expectedVersion int64, voidedBy string, voidedAt time.Time) (int64, error) {
	args := m.Called(ctx, expenseID, expectedVersion, voidedBy, voidedAt)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock SettlementRepository ---

type MockSettlementRepository struct {
	mock.Mock
}

var _ portsrepo.SettlementRepositoryFacade = (*MockSettlementRepository)(nil)

func (m *MockSettlementRepository) FindSettlementByID(ctx context.Context, settlementID string) (*domain.SettlementRecord, error) {
	args := m.Called(ctx, settlementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettlementRecord), args.Error(1)
}

func (m *MockSettlementRepository) ListSettlementsByGroup(ctx context.Context, groupID string) ([]domain.SettlementRecord, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SettlementRecord), args.Error(1)
}

func (m *MockSettlementRepository) SaveSettlement(ctx context.Context, record domain.SettlementRecord, idempotencyKey string) (*domain.SettlementRecord, error) {
	args := m.Called(ctx, record, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettlementRecord), args.Error(1)
}

func (m *MockSettlementRepository) UpdateSettlement(ctx context.Context, record domain.SettlementRecord, expectedVersion int64) error {
	args := m.Called(ctx, record, expectedVersion)
	return args.Error(0)
}

// --- Mock MembershipService ---

type MockMembershipService struct {
	mock.Mock
}

var _ portssvc.MembershipSvcFacade = (*MockMembershipService)(nil)

func (m *MockMembershipService) AuthorizeMemberAction(ctx context.Context, participantID string, groupID string, required domain.MemberRole) error {
	args := m.Called(ctx, participantID, groupID, required)
	return args.Error(0)
}

func (m *MockMembershipService) IsMember(ctx context.Context, groupID string, participantID string) (bool, error) {
	args := m.Called(ctx, groupID, participantID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMembershipService) ListMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// --- Mock CurrencyService ---

type MockCurrencyService struct {
	mock.Mock
}

var _ portssvc.CurrencySvcFacade = (*MockCurrencyService)(nil)

func (m *MockCurrencyService) ValidateCurrency(ctx context.Context, currencyCode string) error {
	args := m.Called(ctx, currencyCode)
	return args.Error(0)
}

func (m *MockCurrencyService) GetCurrency(ctx context.Context, currencyCode string) (*domain.Currency, error) {
	args := m.Called(ctx, currencyCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Currency), args.Error(1)
}

func (m *MockCurrencyService) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Currency), args.Error(1)
}
