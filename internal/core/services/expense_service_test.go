package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/triptally/triptally_backend/internal/apperrors"
	"github.com/triptally/triptally_backend/internal/core/domain"
	portssvc "github.com/triptally/triptally_backend/internal/core/ports/services"
	"github.com/triptally/triptally_backend/internal/core/services"
	"github.com/triptally/triptally_backend/internal/dto"
)

type ExpenseServiceTestSuite struct {
	suite.Suite
	mockExpenseRepo   *MockExpenseRepository
	mockMembershipSvc *MockMembershipService
	mockCurrencySvc   *MockCurrencyService
	service           portssvc.ExpenseSvcFacade
	groupID           string
	creatorID         string
}

func (suite *ExpenseServiceTestSuite) SetupTest() {
	suite.mockExpenseRepo = new(MockExpenseRepository)
	suite.mockMembershipSvc = new(MockMembershipService)
	suite.mockCurrencySvc = new(MockCurrencyService)
	suite.service = services.NewExpenseService(suite.mockExpenseRepo, suite.mockMembershipSvc, suite.mockCurrencySvc)

	suite.groupID = uuid.NewString()
	suite.creatorID = "alice"
}

func (suite *ExpenseServiceTestSuite) expectMemberAuth(participantID string) {
	suite.mockMembershipSvc.On("AuthorizeMemberAction", mock.Anything, participantID, suite.groupID, domain.RoleMember).Return(nil).Once()
}

func (suite *ExpenseServiceTestSuite) expectMembers(ids ...string) {
	suite.mockMembershipSvc.On("ListMemberIDs", mock.Anything, suite.groupID).Return(ids, nil).Once()
}

func equalSplitRequest(total int64, participantIDs ...string) dto.CreateExpenseRequest {
	req := dto.CreateExpenseRequest{
		PayerID:         participantIDs[0],
		TotalMinorUnits: total,
		CurrencyCode:    "USD",
		Description:     "Dinner",
		SplitType:       domain.SplitEqual,
	}
	for _, id := range participantIDs {
		req.Participants = append(req.Participants, dto.ShareInput{ParticipantID: id})
	}
	return req
}

func (suite *ExpenseServiceTestSuite) TestCreateExpense_EqualSplit() {
	ctx := context.Background()
	req := equalSplitRequest(9000, "alice", "bob", "carol")

	suite.expectMemberAuth(suite.creatorID)
	suite.mockCurrencySvc.On("ValidateCurrency", ctx, "USD").Return(nil).Once()
	suite.expectMembers("alice", "bob", "carol")
	suite.mockExpenseRepo.On("SaveExpense", ctx, mock.AnythingOfType("domain.Expense"), "key-1").
		Run(func(args mock.Arguments) {
			exp := args.Get(1).(domain.Expense)
			suite.Len(exp.Shares, 3)
			for _, share := range exp.Shares {
				suite.Equal(int64(3000), share.Amount.MinorUnits)
			}
		}).
		Return(&domain.Expense{ExpenseID: uuid.NewString()}, int64(7), nil).Once()

	expense, groupVersion, err := suite.service.CreateExpense(ctx, suite.groupID, req, "key-1", suite.creatorID)

	suite.Require().NoError(err)
	suite.Require().NotNil(expense)
	suite.Equal(int64(7), groupVersion)
	suite.mockExpenseRepo.AssertExpectations(suite.T())
	suite.mockMembershipSvc.AssertExpectations(suite.T())
}

func (suite *ExpenseServiceTestSuite) TestCreateExpense_RemainderDeterministic() {
	ctx := context.Background()
	req := equalSplitRequest(10000, "carol", "alice", "bob")

	suite.expectMemberAuth(suite.creatorID)
	suite.mockCurrencySvc.On("ValidateCurrency", ctx, "USD").Return(nil).Once()
	suite.expectMembers("alice", "bob", "carol")

	var savedShares []domain.ParticipantShare
	suite.mockExpenseRepo.On("SaveExpense", ctx, mock.AnythingOfType("domain.Expense"), "").
		Run(func(args mock.Arguments) {
			savedShares = args.Get(1).(domain.Expense).Shares
		}).
		Return(&domain.Expense{ExpenseID: uuid.NewString()}, int64(1), nil).Once()

	_, _, err := suite.service.CreateExpense(ctx, suite.groupID, req, "", suite.creatorID)

	suite.Require().NoError(err)
	suite.Require().Len(savedShares, 3)
	// Shares come back in lexicographic ID order; the extra minor unit lands on alice.
	suite.Equal("alice", savedShares[0].ParticipantID)
	suite.Equal(int64(3334), savedShares[0].Amount.MinorUnits)
	suite.Equal(int64(3333), savedShares[1].Amount.MinorUnits)
	suite.Equal(int64(3333), savedShares[2].Amount.MinorUnits)
}

func (suite *ExpenseServiceTestSuite) TestCreateExpense_CustomSplitMismatch() {
	ctx := context.Background()
	sixty, thirty := int64(6000), int64(3000)
	req := dto.CreateExpenseRequest{
		PayerID:         "alice",
		TotalMinorUnits: 10000,
		CurrencyCode:    "USD",
		Description:     "Hotel",
		SplitType:       domain.SplitCustom,
		Participants: []dto.ShareInput{
			{ParticipantID: "alice", MinorUnits: &sixty},
			{ParticipantID: "bob", MinorUnits: &thirty},
		},
	}

	suite.expectMemberAuth(suite.creatorID)
	suite.mockCurrencySvc.On("ValidateCurrency", ctx, "USD").Return(nil).Once()

	_, _, err := suite.service.CreateExpense(ctx, suite.groupID, req, "", suite.creatorID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.ErrorIs(err, services.ErrSplitMismatch)
	suite.mockExpenseRepo.AssertNotCalled(suite.T(), "SaveExpense")
}

func (suite *ExpenseServiceTestSuite) TestCreateExpense_CustomSplitNegativeShareRejected() {
	ctx := context.Background()
	overpay, clawback := int64(12000), int64(-2000)
	req := dto.CreateExpenseRequest{
		PayerID:         "alice",
		TotalMinorUnits: 10000,
		CurrencyCode:    "USD",
		Description:     "Hotel",
		SplitType:       domain.SplitCustom,
		Participants: []dto.ShareInput{
			{ParticipantID: "alice", MinorUnits: &overpay},
			{ParticipantID: "bob", MinorUnits: &clawback},
		},
	}

	suite.expectMemberAuth(suite.creatorID)
	suite.mockCurrencySvc.On("ValidateCurrency", ctx, "USD").Return(nil).Once()

	_, _, err := suite.service.CreateExpense(ctx, suite.groupID, req, "", suite.creatorID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockExpenseRepo.AssertNotCalled(suite.T(), "SaveExpense")
}

func (suite *ExpenseServiceTestSuite) TestCreateExpense_PercentageSplit() {
	ctx := context.Background()
	seventy := decimal.NewFromInt(70)
	thirty := decimal.NewFromInt(30)
	req := dto.CreateExpenseRequest{
		PayerID:         "alice",
		TotalMinorUnits: 10000,
		CurrencyCode:    "USD",
		Description:     "Taxi",
		SplitType:       domain.SplitPercentage,
		Participants: []dto.ShareInput{
			{ParticipantID: "alice", Percentage: &seventy},
			{ParticipantID: "bob", Percentage: &thirty},
		},
	}

	suite.expectMemberAuth(suite.creatorID)
	suite.mockCurrencySvc.On("ValidateCurrency", ctx, "USD").Return(nil).Once()
	suite.expectMembers("alice", "bob")

	var savedShares []domain.ParticipantShare
	suite.mockExpenseRepo.On("SaveExpense", ctx, mock.AnythingOfType("domain.Expense"), "").
		Run(func(args mock.Arguments) {
			savedShares = args.Get(1).(domain.Expense).Shares
		}).
		Return(&domain.Expense{ExpenseID: uuid.NewString()}, int64(1), nil).Once()

	_, _, err := suite.service.CreateExpense(ctx, suite.groupID, req, "", suite.creatorID)

	suite.Require().NoError(err)
	suite.Require().Len(savedShares, 2)
	suite.Equal(int64(7000), savedShares[0].Amount.MinorUnits)
	suite.Equal(int64(3000), savedShares[1].Amount.MinorUnits)
	suite.Require().NotNil(savedShares[0].Percentage)
	suite.True(savedShares[0].Percentage.Equal(seventy))
}

func (suite *ExpenseServiceTestSuite) TestCreateExpense_NonMemberParticipantRejected() {
	ctx := context.Background()
	req := equalSplitRequest(9000, "alice", "bob", "mallory")

	suite.expectMemberAuth(suite.creatorID)
	suite.mockCurrencySvc.On("ValidateCurrency", ctx, "USD").Return(nil).Once()
	suite.expectMembers("alice", "bob", "carol")

	_, _, err := suite.service.CreateExpense(ctx, suite.groupID, req, "", suite.creatorID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.ErrorIs(err, services.ErrNotGroupMember)
	suite.mockExpenseRepo.AssertNotCalled(suite.T(), "SaveExpense")
}

func (suite *ExpenseServiceTestSuite) TestCreateExpense_DuplicateParticipantRejected() {
	ctx := context.Background()
	req := equalSplitRequest(9000, "alice", "bob", "alice")

	suite.expectMemberAuth(suite.creatorID)
	suite.mockCurrencySvc.On("ValidateCurrency", ctx, "USD").Return(nil).Once()

	_, _, err := suite.service.CreateExpense(ctx, suite.groupID, req, "", suite.creatorID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrDuplicateParticipant)
}

func (suite *ExpenseServiceTestSuite) TestCreateExpense_IdempotentReplayReturnsPrior() {
	ctx := context.Background()
	req := equalSplitRequest(9000, "alice", "bob", "carol")
	prior := &domain.Expense{ExpenseID: uuid.NewString(), GroupID: suite.groupID, Version: 1}

	for i := 0; i < 2; i++ {
		suite.expectMemberAuth(suite.creatorID)
		suite.mockCurrencySvc.On("ValidateCurrency", ctx, "USD").Return(nil).Once()
		suite.expectMembers("alice", "bob", "carol")
	}
	// The repository resolves the key both times to the same stored row.
	suite.mockExpenseRepo.On("SaveExpense", ctx, mock.AnythingOfType("domain.Expense"), "retry-key").
		Return(prior, int64(4), nil).Twice()

	first, v1, err := suite.service.CreateExpense(ctx, suite.groupID, req, "retry-key", suite.creatorID)
	suite.Require().NoError(err)
	second, v2, err := suite.service.CreateExpense(ctx, suite.groupID, req, "retry-key", suite.creatorID)
	suite.Require().NoError(err)

	suite.Equal(first.ExpenseID, second.ExpenseID)
	suite.Equal(v1, v2)
}

func (suite *ExpenseServiceTestSuite) TestUpdateExpense_VersionConflict() {
	ctx := context.Background()
	expenseID := uuid.NewString()
	existing := &domain.Expense{
		ExpenseID:   expenseID,
		GroupID:     suite.groupID,
		PayerID:     "alice",
		TotalAmount: domain.NewMoney(9000, "USD"),
		SplitType:   domain.SplitEqual,
		Version:     3,
		AuditFields: domain.AuditFields{CreatedBy: suite.creatorID},
	}
	desc := "Corrected dinner"
	req := dto.UpdateExpenseRequest{Version: 2, Description: &desc}

	suite.expectMemberAuth(suite.creatorID)
	suite.mockExpenseRepo.On("FindExpenseByID", ctx, expenseID).Return(existing, nil).Once()
	suite.mockExpenseRepo.On("UpdateExpense", ctx, mock.AnythingOfType("domain.Expense"), int64(2)).
		Return(int64(0), apperrors.ErrConflict).Once()

	_, _, err := suite.service.UpdateExpense(ctx, suite.groupID, expenseID, req, suite.creatorID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrConflict)
}

// casExpenseRepo is a fake whose UpdateExpense enforces real compare-and-swap,
// for exercising concurrent edits end to end through the service.
type casExpenseRepo struct {
	MockExpenseRepository
	mu      sync.Mutex
	version int64
}

func (r *casExpenseRepo) UpdateExpense(ctx context.Context, expense domain.Expense, expectedVersion int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.version != expectedVersion {
		return 0, apperrors.ErrConflict
	}
	r.version = expense.Version
	return r.version, nil
}

func (suite *ExpenseServiceTestSuite) TestUpdateExpense_ConcurrentEditsOneWins() {
	ctx := context.Background()
	expenseID := uuid.NewString()
	existing := &domain.Expense{
		ExpenseID:   expenseID,
		GroupID:     suite.groupID,
		PayerID:     "alice",
		TotalAmount: domain.NewMoney(9000, "USD"),
		SplitType:   domain.SplitEqual,
		Version:     1,
		AuditFields: domain.AuditFields{CreatedBy: suite.creatorID},
	}

	repo := &casExpenseRepo{version: 1}
	repo.On("FindExpenseByID", mock.Anything, expenseID).Return(existing, nil)
	suite.mockMembershipSvc.On("AuthorizeMemberAction", mock.Anything, suite.creatorID, suite.groupID, domain.RoleMember).Return(nil)
	service := services.NewExpenseService(repo, suite.mockMembershipSvc, suite.mockCurrencySvc)

	const writers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, conflicts := 0, 0
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			desc := "edit"
			req := dto.UpdateExpenseRequest{Version: 1, Description: &desc}
			_, _, err := service.UpdateExpense(ctx, suite.groupID, expenseID, req, suite.creatorID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperrors.ErrConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	suite.Equal(1, successes)
	suite.Equal(writers-1, conflicts)
}

func (suite *ExpenseServiceTestSuite) TestUpdateExpense_VoidedRejected() {
	ctx := context.Background()
	expenseID := uuid.NewString()
	existing := &domain.Expense{
		ExpenseID:   expenseID,
		GroupID:     suite.groupID,
		Voided:      true,
		Version:     2,
		AuditFields: domain.AuditFields{CreatedBy: suite.creatorID},
	}
	desc := "too late"
	req := dto.UpdateExpenseRequest{Version: 2, Description: &desc}

	suite.expectMemberAuth(suite.creatorID)
	suite.mockExpenseRepo.On("FindExpenseByID", ctx, expenseID).Return(existing, nil).Once()

	_, _, err := suite.service.UpdateExpense(ctx, suite.groupID, expenseID, req, suite.creatorID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrExpenseVoided)
	suite.mockExpenseRepo.AssertNotCalled(suite.T(), "UpdateExpense")
}

func (suite *ExpenseServiceTestSuite) TestUpdateExpense_NonCreatorNeedsAdmin() {
	ctx := context.Background()
	expenseID := uuid.NewString()
	existing := &domain.Expense{
		ExpenseID:   expenseID,
		GroupID:     suite.groupID,
		Version:     1,
		AuditFields: domain.AuditFields{CreatedBy: "alice"},
	}
	desc := "sneaky edit"
	req := dto.UpdateExpenseRequest{Version: 1, Description: &desc}

	suite.mockMembershipSvc.On("AuthorizeMemberAction", mock.Anything, "bob", suite.groupID, domain.RoleMember).Return(nil).Once()
	suite.mockExpenseRepo.On("FindExpenseByID", ctx, expenseID).Return(existing, nil).Once()
	suite.mockMembershipSvc.On("AuthorizeMemberAction", mock.Anything, "bob", suite.groupID, domain.RoleAdmin).
		Return(apperrors.ErrForbidden).Once()

	_, _, err := suite.service.UpdateExpense(ctx, suite.groupID, expenseID, req, "bob")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *ExpenseServiceTestSuite) TestVoidExpense() {
	ctx := context.Background()
	expenseID := uuid.NewString()
	existing := &domain.Expense{
		ExpenseID:   expenseID,
		GroupID:     suite.groupID,
		Version:     2,
		AuditFields: domain.AuditFields{CreatedBy: suite.creatorID},
	}

	suite.expectMemberAuth(suite.creatorID)
	suite.mockExpenseRepo.On("FindExpenseByID", ctx, expenseID).Return(existing, nil).Once()
	suite.mockExpenseRepo.On("VoidExpense", ctx, expenseID, int64(2), suite.creatorID, mock.AnythingOfType("time.Time")).
		Return(int64(9), nil).Once()

	groupVersion, err := suite.service.VoidExpense(ctx, suite.groupID, expenseID, 2, suite.creatorID)

	suite.Require().NoError(err)
	suite.Equal(int64(9), groupVersion)
}

func (suite *ExpenseServiceTestSuite) TestGetExpenseByID_WrongGroupHidden() {
	ctx := context.Background()
	expenseID := uuid.NewString()
	other := &domain.Expense{ExpenseID: expenseID, GroupID: uuid.NewString()}

	suite.expectMemberAuth(suite.creatorID)
	suite.mockExpenseRepo.On("FindExpenseByID", ctx, expenseID).Return(other, nil).Once()

	_, err := suite.service.GetExpenseByID(ctx, suite.groupID, expenseID, suite.creatorID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *ExpenseServiceTestSuite) TestListExpenses_FiltersVoided() {
	ctx := context.Background()
	expenses := []domain.Expense{
		{ExpenseID: "e1", GroupID: suite.groupID, TotalAmount: domain.NewMoney(100, "USD")},
		{ExpenseID: "e2", GroupID: suite.groupID, TotalAmount: domain.NewMoney(200, "USD"), Voided: true},
	}

	suite.expectMemberAuth(suite.creatorID)
	suite.mockExpenseRepo.On("ListExpensesByGroup", ctx, suite.groupID, (*int64)(nil)).
		Return(expenses, int64(5), nil).Once()

	resp, err := suite.service.ListExpenses(ctx, suite.groupID, suite.creatorID, dto.ListExpensesParams{})

	suite.Require().NoError(err)
	suite.Equal(int64(5), resp.GroupVersion)
	suite.Require().Len(resp.Expenses, 1)
	suite.Equal("e1", resp.Expenses[0].ExpenseID)
}

func TestExpenseServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ExpenseServiceTestSuite))
}
