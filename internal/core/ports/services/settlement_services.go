package services

import (
	"context"

	"github.com/triptally/triptally_backend/internal/core/domain"
	"github.com/triptally/triptally_backend/internal/dto"
)

// SettlementSvcFacade tracks acknowledgement of settlement suggestions.
type SettlementSvcFacade interface {
	// RecordSettlement persists a suggestion the acting participant is
	// acting on. A replayed idempotency key returns the original record.
	RecordSettlement(ctx context.Context, groupID string, req dto.RecordSettlementRequest, idempotencyKey string, actingParticipantID string) (*domain.SettlementRecord, error)

	// ConfirmSettlement records the acting participant's confirmation. The
	// record transitions to CONFIRMED once the configured trust policy is
	// satisfied. Confirmation against a ledger that moved past the record's
	// LedgerVersionAtCreation fails with apperrors.ErrStaleSettlement.
	ConfirmSettlement(ctx context.Context, settlementID string, actingParticipantID string) (*domain.SettlementRecord, error)

	// ListSettlements returns a group's settlement history, newest first.
	ListSettlements(ctx context.Context, groupID string, requestingParticipantID string) ([]domain.SettlementRecord, error)
}
