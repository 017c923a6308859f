package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/triptally/triptally_backend/internal/apperrors"
	"github.com/triptally/triptally_backend/internal/core/domain"
	portsrepo "github.com/triptally/triptally_backend/internal/core/ports/repositories"
)

const entityTypeSettlement = "settlement"

// PgxSettlementRepository persists settlement records. Settlement mutations
// never touch the group ledger version; only expense mutations move it.
type PgxSettlementRepository struct {
	BaseRepository
}

// NewPgxSettlementRepository creates a repository for settlement records.
func NewPgxSettlementRepository(pool *pgxpool.Pool) portsrepo.SettlementRepositoryFacade {
	return &PgxSettlementRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.SettlementRepositoryFacade = (*PgxSettlementRepository)(nil)

// SaveSettlement implements portsrepo.SettlementWriter.
func (r *PgxSettlementRepository) SaveSettlement(ctx context.Context, record domain.SettlementRecord, idempotencyKey string) (*domain.SettlementRecord, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	claimed, err := claimIdempotencyKey(ctx, tx, idempotencyKey, entityTypeSettlement, record.SettlementID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		r.Rollback(ctx, tx)
		return r.loadPriorSettlement(ctx, idempotencyKey)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO settlement_records (
			settlement_id, group_id, from_participant_id, to_participant_id,
			minor_units, currency_code, status, payer_confirmed, payee_confirmed,
			confirmed_at, ledger_version_at_creation, version,
			created_at, created_by, last_updated_at, last_updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		record.SettlementID, record.GroupID, record.FromParticipantID, record.ToParticipantID,
		record.Amount.MinorUnits, record.Amount.CurrencyCode,
		string(record.Status), record.PayerConfirmed, record.PayeeConfirmed,
		record.ConfirmedAt, record.LedgerVersionAtCreation, record.Version,
		record.CreatedAt, record.CreatedBy, record.LastUpdatedAt, record.LastUpdatedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to insert settlement %s: %w", apperrors.ErrInternal, record.SettlementID, err)
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *PgxSettlementRepository) loadPriorSettlement(ctx context.Context, idempotencyKey string) (*domain.SettlementRecord, error) {
	var entityID string
	err := r.Pool.QueryRow(ctx,
		`SELECT entity_id FROM idempotency_keys WHERE idempotency_key = $1 AND entity_type = $2`,
		idempotencyKey, entityTypeSettlement,
	).Scan(&entityID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("%w: failed to resolve idempotency key: %w", apperrors.ErrInternal, err)
	}
	return r.FindSettlementByID(ctx, entityID)
}

// UpdateSettlement implements portsrepo.SettlementWriter using compare-and-swap
// on (settlement_id, version).
func (r *PgxSettlementRepository) UpdateSettlement(ctx context.Context, record domain.SettlementRecord, expectedVersion int64) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE settlement_records SET
			status = $1, payer_confirmed = $2, payee_confirmed = $3, confirmed_at = $4,
			version = $5, last_updated_at = $6, last_updated_by = $7
		WHERE settlement_id = $8 AND version = $9`,
		string(record.Status), record.PayerConfirmed, record.PayeeConfirmed, record.ConfirmedAt,
		record.Version, record.LastUpdatedAt, record.LastUpdatedBy,
		record.SettlementID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to update settlement %s: %w", apperrors.ErrInternal, record.SettlementID, err)
	}
	if tag.RowsAffected() == 0 {
		var currentVersion int64
		err := r.Pool.QueryRow(ctx, `SELECT version FROM settlement_records WHERE settlement_id = $1`, record.SettlementID).Scan(&currentVersion)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("settlement %s: %w", record.SettlementID, apperrors.ErrNotFound)
			}
			return fmt.Errorf("%w: failed to inspect settlement %s after CAS miss: %w", apperrors.ErrInternal, record.SettlementID, err)
		}
		return fmt.Errorf("settlement %s: expected version %d, found %d: %w", record.SettlementID, expectedVersion, currentVersion, apperrors.ErrConflict)
	}
	return nil
}

const settlementColumns = `
	settlement_id, group_id, from_participant_id, to_participant_id,
	minor_units, currency_code, status, payer_confirmed, payee_confirmed,
	confirmed_at, ledger_version_at_creation, version,
	created_at, created_by, last_updated_at, last_updated_by`

// FindSettlementByID implements portsrepo.SettlementReader.
func (r *PgxSettlementRepository) FindSettlementByID(ctx context.Context, settlementID string) (*domain.SettlementRecord, error) {
	row := r.Pool.QueryRow(ctx,
		`SELECT`+settlementColumns+` FROM settlement_records WHERE settlement_id = $1`, settlementID)
	record, err := scanSettlement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("settlement %s: %w", settlementID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: failed to find settlement %s: %w", apperrors.ErrInternal, settlementID, err)
	}
	return record, nil
}

// ListSettlementsByGroup implements portsrepo.SettlementReader, newest first.
func (r *PgxSettlementRepository) ListSettlementsByGroup(ctx context.Context, groupID string) ([]domain.SettlementRecord, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT`+settlementColumns+` FROM settlement_records WHERE group_id = $1 ORDER BY created_at DESC, settlement_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list settlements for group %s: %w", apperrors.ErrInternal, groupID, err)
	}
	defer rows.Close()

	var records []domain.SettlementRecord
	for rows.Next() {
		record, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan settlement row: %w", apperrors.ErrInternal, err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate settlements for group %s: %w", apperrors.ErrInternal, groupID, err)
	}
	return records, nil
}

func scanSettlement(row rowScanner) (*domain.SettlementRecord, error) {
	var rec domain.SettlementRecord
	var status string
	err := row.Scan(
		&rec.SettlementID, &rec.GroupID, &rec.FromParticipantID, &rec.ToParticipantID,
		&rec.Amount.MinorUnits, &rec.Amount.CurrencyCode,
		&status, &rec.PayerConfirmed, &rec.PayeeConfirmed,
		&rec.ConfirmedAt, &rec.LedgerVersionAtCreation, &rec.Version,
		&rec.CreatedAt, &rec.CreatedBy, &rec.LastUpdatedAt, &rec.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = domain.SettlementStatus(status)
	return &rec, nil
}
