package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/triptally/triptally_backend/internal/apperrors"
	"github.com/triptally/triptally_backend/internal/core/domain"
	portsrepo "github.com/triptally/triptally_backend/internal/core/ports/repositories"
	portssvc "github.com/triptally/triptally_backend/internal/core/ports/services"
	"github.com/triptally/triptally_backend/internal/dto"
	"github.com/triptally/triptally_backend/internal/middleware"
)

var (
	ErrSelfSettlement     = errors.New("settlement payer and payee must differ")
	ErrNotSettlementParty = errors.New("only the settlement payer or payee may act on it")
)

// TrustPolicy decides whose acknowledgement is required before a settlement
// record is Confirmed.
type TrustPolicy string

const (
	// TrustSingle: the payer's confirmation alone settles the record.
	TrustSingle TrustPolicy = "single"
	// TrustBoth: payer and payee must both confirm. Default.
	TrustBoth TrustPolicy = "both"
)

// settlementService persists acknowledgement of settlement suggestions,
// separate from the expense ledger so settlement history survives ledger
// edits.
type settlementService struct {
	settlementRepo portsrepo.SettlementRepositoryFacade
	expenseRepo    portsrepo.ExpenseReader
	membershipSvc  portssvc.MembershipSvcFacade
	currencySvc    portssvc.CurrencySvcFacade
	trustPolicy    TrustPolicy
}

// NewSettlementService creates the settlement record service.
func NewSettlementService(settlementRepo portsrepo.SettlementRepositoryFacade, expenseRepo portsrepo.ExpenseReader, membershipSvc portssvc.MembershipSvcFacade, currencySvc portssvc.CurrencySvcFacade, trustPolicy TrustPolicy) portssvc.SettlementSvcFacade {
	if trustPolicy != TrustSingle {
		trustPolicy = TrustBoth
	}
	return &settlementService{
		settlementRepo: settlementRepo,
		expenseRepo:    expenseRepo,
		membershipSvc:  membershipSvc,
		currencySvc:    currencySvc,
		trustPolicy:    trustPolicy,
	}
}

var _ portssvc.SettlementSvcFacade = (*settlementService)(nil)

// RecordSettlement implements portssvc.SettlementSvcFacade.
func (s *settlementService) RecordSettlement(ctx context.Context, groupID string, req dto.RecordSettlementRequest, idempotencyKey string, actingParticipantID string) (*domain.SettlementRecord, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.membershipSvc.AuthorizeMemberAction(ctx, actingParticipantID, groupID, domain.RoleMember); err != nil {
		logger.Warn("Authorization failed for RecordSettlement", slog.String("group_id", groupID), slog.String("error", err.Error()))
		return nil, err
	}

	if req.FromParticipantID == req.ToParticipantID {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, ErrSelfSettlement)
	}
	if actingParticipantID != req.FromParticipantID && actingParticipantID != req.ToParticipantID {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrForbidden, ErrNotSettlementParty)
	}
	if req.MinorUnits <= 0 {
		return nil, fmt.Errorf("%w: settlement amount must be positive, got %d", apperrors.ErrValidation, req.MinorUnits)
	}
	if err := s.currencySvc.ValidateCurrency(ctx, req.CurrencyCode); err != nil {
		return nil, err
	}
	for _, participantID := range []string{req.FromParticipantID, req.ToParticipantID} {
		member, err := s.membershipSvc.IsMember(ctx, groupID, participantID)
		if err != nil {
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
		if !member {
			return nil, fmt.Errorf("%w: %w: %s", apperrors.ErrValidation, ErrNotGroupMember, participantID)
		}
	}

	// Refuse to record against a suggestion computed from a stale ledger:
	// the caller must re-fetch suggestions first.
	groupVersion, err := s.expenseRepo.GetGroupVersion(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to read group version: %w", err)
	}
	if req.LedgerVersion != groupVersion {
		logger.Warn("Settlement recorded against stale ledger",
			slog.String("group_id", groupID),
			slog.Int64("ledger_version", req.LedgerVersion),
			slog.Int64("group_version", groupVersion))
		return nil, fmt.Errorf("%w: suggestion was computed at version %d, ledger is at %d", apperrors.ErrStaleSettlement, req.LedgerVersion, groupVersion)
	}

	now := time.Now().UTC()
	record := domain.SettlementRecord{
		SettlementID:            uuid.NewString(),
		GroupID:                 groupID,
		FromParticipantID:       req.FromParticipantID,
		ToParticipantID:         req.ToParticipantID,
		Amount:                  domain.NewMoney(req.MinorUnits, req.CurrencyCode),
		Status:                  domain.SettlementPending,
		LedgerVersionAtCreation: req.LedgerVersion,
		Version:                 1,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actingParticipantID,
			LastUpdatedAt: now,
			LastUpdatedBy: actingParticipantID,
		},
	}

	saved, err := s.settlementRepo.SaveSettlement(ctx, record, idempotencyKey)
	if err != nil {
		logger.Error("Failed to save settlement record", slog.String("group_id", groupID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save settlement: %w", err)
	}

	logger.Info("Settlement recorded", slog.String("settlement_id", saved.SettlementID), slog.String("group_id", groupID))
	return saved, nil
}

// ConfirmSettlement implements portssvc.SettlementSvcFacade.
func (s *settlementService) ConfirmSettlement(ctx context.Context, settlementID string, actingParticipantID string) (*domain.SettlementRecord, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	record, err := s.settlementRepo.FindSettlementByID(ctx, settlementID)
	if err != nil {
		return nil, fmt.Errorf("failed to find settlement %s: %w", settlementID, err)
	}

	if err := s.membershipSvc.AuthorizeMemberAction(ctx, actingParticipantID, record.GroupID, domain.RoleMember); err != nil {
		logger.Warn("Authorization failed for ConfirmSettlement", slog.String("settlement_id", settlementID), slog.String("error", err.Error()))
		return nil, err
	}
	if actingParticipantID != record.FromParticipantID && actingParticipantID != record.ToParticipantID {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrForbidden, ErrNotSettlementParty)
	}

	// Confirming an already confirmed record is a harmless retry.
	if record.Status == domain.SettlementConfirmed {
		return record, nil
	}

	// The ledger may have moved since the record was created (e.g. the
	// underlying expense was voided). A stale record must not be confirmed;
	// the client re-fetches suggestions and records afresh.
	groupVersion, err := s.expenseRepo.GetGroupVersion(ctx, record.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to read group version: %w", err)
	}
	if groupVersion != record.LedgerVersionAtCreation {
		logger.Warn("Stale settlement confirmation rejected",
			slog.String("settlement_id", settlementID),
			slog.Int64("created_at_version", record.LedgerVersionAtCreation),
			slog.Int64("group_version", groupVersion))
		return nil, fmt.Errorf("%w: record was created at version %d, ledger is at %d", apperrors.ErrStaleSettlement, record.LedgerVersionAtCreation, groupVersion)
	}

	expectedVersion := record.Version
	switch actingParticipantID {
	case record.FromParticipantID:
		record.PayerConfirmed = true
	case record.ToParticipantID:
		record.PayeeConfirmed = true
	}

	confirmed := false
	switch s.trustPolicy {
	case TrustSingle:
		confirmed = record.PayerConfirmed
	default:
		confirmed = record.PayerConfirmed && record.PayeeConfirmed
	}

	now := time.Now().UTC()
	if confirmed {
		record.Status = domain.SettlementConfirmed
		record.ConfirmedAt = &now
	}
	record.Version = expectedVersion + 1
	record.LastUpdatedAt = now
	record.LastUpdatedBy = actingParticipantID

	if err := s.settlementRepo.UpdateSettlement(ctx, *record, expectedVersion); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			logger.Warn("Version conflict confirming settlement", slog.String("settlement_id", settlementID))
		} else {
			logger.Error("Failed to update settlement", slog.String("settlement_id", settlementID), slog.String("error", err.Error()))
		}
		return nil, err
	}

	logger.Info("Settlement confirmation recorded",
		slog.String("settlement_id", settlementID),
		slog.Bool("confirmed", confirmed),
		slog.String("trust_policy", string(s.trustPolicy)))
	return record, nil
}

// ListSettlements implements portssvc.SettlementSvcFacade.
func (s *settlementService) ListSettlements(ctx context.Context, groupID string, requestingParticipantID string) ([]domain.SettlementRecord, error) {
	if err := s.membershipSvc.AuthorizeMemberAction(ctx, requestingParticipantID, groupID, domain.RoleMember); err != nil {
		return nil, err
	}
	return s.settlementRepo.ListSettlementsByGroup(ctx, groupID)
}
