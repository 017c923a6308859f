package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/triptally/triptally_backend/internal/apperrors"
	"github.com/triptally/triptally_backend/internal/core/domain"
	portssvc "github.com/triptally/triptally_backend/internal/core/ports/services"
	"github.com/triptally/triptally_backend/internal/core/services"
	"github.com/triptally/triptally_backend/internal/dto"
)

type BalanceServiceTestSuite struct {
	suite.Suite
	mockExpenseRepo    *MockExpenseRepository
	mockSettlementRepo *MockSettlementRepository
	mockMembershipSvc  *MockMembershipService
	service            portssvc.BalanceSvcFacade
	groupID            string
	requesterID        string
}

func (suite *BalanceServiceTestSuite) SetupTest() {
	suite.mockExpenseRepo = new(MockExpenseRepository)
	suite.mockSettlementRepo = new(MockSettlementRepository)
	suite.mockMembershipSvc = new(MockMembershipService)
	suite.service = services.NewBalanceService(suite.mockExpenseRepo, suite.mockSettlementRepo, suite.mockMembershipSvc)

	suite.groupID = uuid.NewString()
	suite.requesterID = "alice"

	suite.mockMembershipSvc.On("AuthorizeMemberAction", mock.Anything, suite.requesterID, suite.groupID, domain.RoleMember).Return(nil)
}

// dinnerExpenses is the $90 three-way dinner fronted by alice.
func (suite *BalanceServiceTestSuite) dinnerExpenses() []domain.Expense {
	return []domain.Expense{
		expense("alice", 9000, "USD", map[string]int64{"alice": 3000, "bob": 3000, "carol": 3000}),
	}
}

func expense(payerID string, total int64, currency string, shares map[string]int64) domain.Expense {
	exp := domain.Expense{
		ExpenseID:   uuid.NewString(),
		PayerID:     payerID,
		TotalAmount: domain.NewMoney(total, currency),
		SplitType:   domain.SplitEqual,
	}
	for id, amount := range shares {
		exp.Shares = append(exp.Shares, domain.ParticipantShare{
			ParticipantID: id,
			Amount:        domain.NewMoney(amount, currency),
		})
	}
	return exp
}

func (suite *BalanceServiceTestSuite) TestGetBalances() {
	ctx := context.Background()

	suite.mockExpenseRepo.On("GetGroupVersion", ctx, suite.groupID).Return(int64(3), nil).Once()
	suite.mockExpenseRepo.On("ListExpensesByGroup", ctx, suite.groupID, (*int64)(nil)).
		Return(suite.dinnerExpenses(), int64(3), nil).Once()
	suite.mockSettlementRepo.On("ListSettlementsByGroup", ctx, suite.groupID).
		Return([]domain.SettlementRecord{}, nil).Once()

	resp, err := suite.service.GetBalances(ctx, suite.groupID, suite.requesterID)

	suite.Require().NoError(err)
	suite.Equal(int64(3), resp.GroupVersion)
	usd := resp.Balances["USD"]
	suite.Require().Len(usd, 3)
	suite.Equal(dto.ParticipantBalance{ParticipantID: "alice", Net: domain.NewMoney(6000, "USD")}, usd[0])
	suite.Equal(dto.ParticipantBalance{ParticipantID: "bob", Net: domain.NewMoney(-3000, "USD")}, usd[1])
	suite.Equal(dto.ParticipantBalance{ParticipantID: "carol", Net: domain.NewMoney(-3000, "USD")}, usd[2])
}

func (suite *BalanceServiceTestSuite) TestGetBalances_ConfirmedSettlementApplied() {
	ctx := context.Background()
	confirmed := domain.SettlementRecord{
		FromParticipantID: "bob",
		ToParticipantID:   "alice",
		Amount:            domain.NewMoney(3000, "USD"),
		Status:            domain.SettlementConfirmed,
	}

	suite.mockExpenseRepo.On("GetGroupVersion", ctx, suite.groupID).Return(int64(3), nil).Once()
	suite.mockExpenseRepo.On("ListExpensesByGroup", ctx, suite.groupID, (*int64)(nil)).
		Return(suite.dinnerExpenses(), int64(3), nil).Once()
	suite.mockSettlementRepo.On("ListSettlementsByGroup", ctx, suite.groupID).
		Return([]domain.SettlementRecord{confirmed}, nil).Once()

	resp, err := suite.service.GetBalances(ctx, suite.groupID, suite.requesterID)

	suite.Require().NoError(err)
	usd := resp.Balances["USD"]
	suite.Require().Len(usd, 3)
	suite.Equal(int64(3000), usd[0].Net.MinorUnits)  // alice
	suite.Equal(int64(0), usd[1].Net.MinorUnits)     // bob, settled up
	suite.Equal(int64(-3000), usd[2].Net.MinorUnits) // carol
}

func (suite *BalanceServiceTestSuite) TestGetBalances_MemoSkipsRefold() {
	ctx := context.Background()

	suite.mockExpenseRepo.On("GetGroupVersion", ctx, suite.groupID).Return(int64(3), nil).Twice()
	// The expense list is fetched only once; the second read at the same
	// version reuses the memoized fold.
	suite.mockExpenseRepo.On("ListExpensesByGroup", ctx, suite.groupID, (*int64)(nil)).
		Return(suite.dinnerExpenses(), int64(3), nil).Once()
	suite.mockSettlementRepo.On("ListSettlementsByGroup", ctx, suite.groupID).
		Return([]domain.SettlementRecord{}, nil).Twice()

	first, err := suite.service.GetBalances(ctx, suite.groupID, suite.requesterID)
	suite.Require().NoError(err)
	second, err := suite.service.GetBalances(ctx, suite.groupID, suite.requesterID)
	suite.Require().NoError(err)

	suite.Equal(first, second)
	suite.mockExpenseRepo.AssertExpectations(suite.T())
}

func (suite *BalanceServiceTestSuite) TestGetBalances_MemoInvalidatedByNewVersion() {
	ctx := context.Background()

	suite.mockExpenseRepo.On("GetGroupVersion", ctx, suite.groupID).Return(int64(3), nil).Once()
	suite.mockExpenseRepo.On("ListExpensesByGroup", ctx, suite.groupID, (*int64)(nil)).
		Return(suite.dinnerExpenses(), int64(3), nil).Once()
	suite.mockSettlementRepo.On("ListSettlementsByGroup", ctx, suite.groupID).
		Return([]domain.SettlementRecord{}, nil).Twice()

	_, err := suite.service.GetBalances(ctx, suite.groupID, suite.requesterID)
	suite.Require().NoError(err)

	// Ledger moves on; fold must be recomputed against the new snapshot.
	moreExpenses := append(suite.dinnerExpenses(),
		expense("bob", 3000, "USD", map[string]int64{"alice": 1500, "bob": 1500}))
	suite.mockExpenseRepo.On("GetGroupVersion", ctx, suite.groupID).Return(int64(4), nil).Once()
	suite.mockExpenseRepo.On("ListExpensesByGroup", ctx, suite.groupID, (*int64)(nil)).
		Return(moreExpenses, int64(4), nil).Once()

	resp, err := suite.service.GetBalances(ctx, suite.groupID, suite.requesterID)
	suite.Require().NoError(err)
	suite.Equal(int64(4), resp.GroupVersion)
	suite.Equal(int64(4500), resp.Balances["USD"][0].Net.MinorUnits) // alice: 6000 - 1500
}

func (suite *BalanceServiceTestSuite) TestGetSettlementSuggestions() {
	ctx := context.Background()

	suite.mockExpenseRepo.On("GetGroupVersion", ctx, suite.groupID).Return(int64(3), nil).Once()
	suite.mockExpenseRepo.On("ListExpensesByGroup", ctx, suite.groupID, (*int64)(nil)).
		Return(suite.dinnerExpenses(), int64(3), nil).Once()
	suite.mockSettlementRepo.On("ListSettlementsByGroup", ctx, suite.groupID).
		Return([]domain.SettlementRecord{}, nil).Once()

	resp, err := suite.service.GetSettlementSuggestions(ctx, suite.groupID, suite.requesterID)

	suite.Require().NoError(err)
	usd := resp.Suggestions["USD"]
	suite.Require().Len(usd, 2)
	suite.Equal(domain.SettlementSuggestion{
		FromParticipantID: "bob", ToParticipantID: "alice", Amount: domain.NewMoney(3000, "USD"),
	}, usd[0])
	suite.Equal(domain.SettlementSuggestion{
		FromParticipantID: "carol", ToParticipantID: "alice", Amount: domain.NewMoney(3000, "USD"),
	}, usd[1])
}

func (suite *BalanceServiceTestSuite) TestGetSettlementSuggestions_SettledGroupIsEmpty() {
	ctx := context.Background()

	suite.mockExpenseRepo.On("GetGroupVersion", ctx, suite.groupID).Return(int64(2), nil).Once()
	suite.mockExpenseRepo.On("ListExpensesByGroup", ctx, suite.groupID, (*int64)(nil)).
		Return([]domain.Expense{
			expense("alice", 1000, "USD", map[string]int64{"alice": 1000}),
		}, int64(2), nil).Once()
	suite.mockSettlementRepo.On("ListSettlementsByGroup", ctx, suite.groupID).
		Return([]domain.SettlementRecord{}, nil).Once()

	resp, err := suite.service.GetSettlementSuggestions(ctx, suite.groupID, suite.requesterID)

	suite.Require().NoError(err)
	suite.Empty(resp.Suggestions)
}

func (suite *BalanceServiceTestSuite) TestGetBalances_NonMemberForbidden() {
	ctx := context.Background()
	suite.mockMembershipSvc.On("AuthorizeMemberAction", mock.Anything, "mallory", suite.groupID, domain.RoleMember).
		Return(apperrors.ErrForbidden).Once()

	_, err := suite.service.GetBalances(ctx, suite.groupID, "mallory")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func TestBalanceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(BalanceServiceTestSuite))
}
