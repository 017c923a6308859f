package repositories

import (
	"context"

	"github.com/triptally/triptally_backend/internal/core/domain"
)

// SettlementReader defines read operations for settlement records.
type SettlementReader interface {
	// FindSettlementByID retrieves a settlement record by ID.
	FindSettlementByID(ctx context.Context, settlementID string) (*domain.SettlementRecord, error)

	// ListSettlementsByGroup retrieves all settlement records for a group,
	// newest first. Records are never deleted, so this is the full history.
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]domain.SettlementRecord, error)
}

// SettlementWriter defines write operations for settlement records.
type SettlementWriter interface {
	// SaveSettlement persists a new settlement record. When the idempotency
	// key was already used for a completed save, the previously created
	// record is returned instead of a duplicate being written.
	SaveSettlement(ctx context.Context, record domain.SettlementRecord, idempotencyKey string) (*domain.SettlementRecord, error)

	// UpdateSettlement replaces a settlement record's mutable state via
	// compare-and-swap on (settlementID, expectedVersion). A stale version
	// fails with apperrors.ErrConflict.
	UpdateSettlement(ctx context.Context, record domain.SettlementRecord, expectedVersion int64) error
}

// SettlementRepositoryFacade combines all settlement repository interfaces.
type SettlementRepositoryFacade interface {
	SettlementReader
	SettlementWriter
}
