package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/triptally/triptally_backend/internal/core/domain"
	portsrepo "github.com/triptally/triptally_backend/internal/core/ports/repositories"
	portssvc "github.com/triptally/triptally_backend/internal/core/ports/services"
	"github.com/triptally/triptally_backend/internal/dto"
	"github.com/triptally/triptally_backend/internal/middleware"
	"github.com/triptally/triptally_backend/internal/utils/ledgermath"
)

// balanceService derives balances and settlement suggestions on read.
// Balances are never stored as an independent source of truth; the only
// cached state is a memo of the pure expense fold keyed by the groupVersion
// it was computed from, which a later version silently replaces.
type balanceService struct {
	expenseRepo    portsrepo.ExpenseReader
	settlementRepo portsrepo.SettlementReader
	membershipSvc  portssvc.MembershipSvcFacade

	mu   sync.Mutex
	memo map[string]balanceMemo // keyed by groupID
}

type balanceMemo struct {
	groupVersion int64
	buckets      map[string]map[string]int64
}

// NewBalanceService creates the balance and suggestion calculator.
func NewBalanceService(expenseRepo portsrepo.ExpenseReader, settlementRepo portsrepo.SettlementReader, membershipSvc portssvc.MembershipSvcFacade) portssvc.BalanceSvcFacade {
	return &balanceService{
		expenseRepo:    expenseRepo,
		settlementRepo: settlementRepo,
		membershipSvc:  membershipSvc,
		memo:           make(map[string]balanceMemo),
	}
}

var _ portssvc.BalanceSvcFacade = (*balanceService)(nil)

// computeBuckets returns the group's per-currency net balances (expenses
// folded, confirmed settlements applied) and the groupVersion of the expense
// snapshot they were computed from.
func (s *balanceService) computeBuckets(ctx context.Context, groupID string) (map[string]map[string]int64, int64, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	groupVersion, err := s.expenseRepo.GetGroupVersion(ctx, groupID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read group version: %w", err)
	}

	s.mu.Lock()
	cached, hit := s.memo[groupID]
	s.mu.Unlock()

	var folded map[string]map[string]int64
	if hit && cached.groupVersion == groupVersion {
		folded = cached.buckets
	} else {
		expenses, snapshotVersion, err := s.expenseRepo.ListExpensesByGroup(ctx, groupID, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to retrieve expenses: %w", err)
		}
		groupVersion = snapshotVersion
		folded = ledgermath.ComputeBalances(expenses)

		s.mu.Lock()
		s.memo[groupID] = balanceMemo{groupVersion: snapshotVersion, buckets: folded}
		s.mu.Unlock()
		logger.Debug("Balance fold recomputed", slog.String("group_id", groupID), slog.Int64("group_version", snapshotVersion))
	}

	// Copy before applying settlements: the memo holds the pure expense
	// fold only, and settlement confirmations do not bump groupVersion.
	buckets := make(map[string]map[string]int64, len(folded))
	for currency, bucket := range folded {
		copied := make(map[string]int64, len(bucket))
		for id, net := range bucket {
			copied[id] = net
		}
		buckets[currency] = copied
	}

	settlements, err := s.settlementRepo.ListSettlementsByGroup(ctx, groupID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve settlements: %w", err)
	}
	ledgermath.ApplySettlements(buckets, settlements)

	return buckets, groupVersion, nil
}

// GetBalances implements portssvc.BalanceSvcFacade.
func (s *balanceService) GetBalances(ctx context.Context, groupID string, requestingParticipantID string) (*dto.BalancesResponse, error) {
	if err := s.membershipSvc.AuthorizeMemberAction(ctx, requestingParticipantID, groupID, domain.RoleMember); err != nil {
		return nil, err
	}

	buckets, groupVersion, err := s.computeBuckets(ctx, groupID)
	if err != nil {
		return nil, err
	}

	balances := make(map[string][]dto.ParticipantBalance, len(buckets))
	for currency, bucket := range buckets {
		ids := make([]string, 0, len(bucket))
		for id := range bucket {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		entries := make([]dto.ParticipantBalance, len(ids))
		for i, id := range ids {
			entries[i] = dto.ParticipantBalance{
				ParticipantID: id,
				Net:           domain.NewMoney(bucket[id], currency),
			}
		}
		balances[currency] = entries
	}

	return &dto.BalancesResponse{
		GroupID:      groupID,
		GroupVersion: groupVersion,
		Balances:     balances,
	}, nil
}

// GetSettlementSuggestions implements portssvc.BalanceSvcFacade.
func (s *balanceService) GetSettlementSuggestions(ctx context.Context, groupID string, requestingParticipantID string) (*dto.SuggestionsResponse, error) {
	if err := s.membershipSvc.AuthorizeMemberAction(ctx, requestingParticipantID, groupID, domain.RoleMember); err != nil {
		return nil, err
	}

	buckets, groupVersion, err := s.computeBuckets(ctx, groupID)
	if err != nil {
		return nil, err
	}

	suggestions := make(map[string][]domain.SettlementSuggestion, len(buckets))
	for currency, bucket := range buckets {
		transfers := ledgermath.MinimizeTransfers(bucket)
		if len(transfers) == 0 {
			continue
		}
		out := make([]domain.SettlementSuggestion, len(transfers))
		for i, t := range transfers {
			out[i] = domain.SettlementSuggestion{
				FromParticipantID: t.FromParticipantID,
				ToParticipantID:   t.ToParticipantID,
				Amount:            domain.NewMoney(t.Amount, currency),
			}
		}
		suggestions[currency] = out
	}

	return &dto.SuggestionsResponse{
		GroupID:      groupID,
		GroupVersion: groupVersion,
		Suggestions:  suggestions,
	}, nil
}
