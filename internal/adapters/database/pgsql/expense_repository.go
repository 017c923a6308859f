package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/triptally/triptally_backend/internal/apperrors"
	"github.com/triptally/triptally_backend/internal/core/domain"
	portsrepo "github.com/triptally/triptally_backend/internal/core/ports/repositories"
)

const entityTypeExpense = "expense"

// PgxExpenseRepository persists expenses, their shares and the per-group
// ledger version. All mutations run in a single database transaction and use
// compare-and-swap on (expense_id, version); every successful mutation bumps
// the group's ledger version. Amounts are stored exclusively as BIGINT minor
// units plus a currency code.
type PgxExpenseRepository struct {
	BaseRepository
}

// NewPgxExpenseRepository creates a repository for expense ledger data.
func NewPgxExpenseRepository(pool *pgxpool.Pool) portsrepo.ExpenseRepositoryFacade {
	return &PgxExpenseRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ExpenseRepositoryFacade = (*PgxExpenseRepository)(nil)

// bumpGroupVersion increments and returns the group's ledger version inside tx.
func bumpGroupVersion(ctx context.Context, tx pgx.Tx, groupID string) (int64, error) {
	var version int64
	err := tx.QueryRow(ctx,
		`UPDATE groups SET ledger_version = ledger_version + 1 WHERE group_id = $1 RETURNING ledger_version`,
		groupID,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("group %s: %w", groupID, apperrors.ErrNotFound)
		}
		return 0, fmt.Errorf("%w: failed to bump ledger version for group %s: %w", apperrors.ErrInternal, groupID, err)
	}
	return version, nil
}

// claimIdempotencyKey tries to claim the key inside tx. It returns false when
// the key was already claimed by a prior completed mutation.
func claimIdempotencyKey(ctx context.Context, tx pgx.Tx, key, entityType, entityID string) (bool, error) {
	if key == "" {
		return true, nil
	}
	tag, err := tx.Exec(ctx,
		`INSERT INTO idempotency_keys (idempotency_key, entity_type, entity_id) VALUES ($1, $2, $3)
		 ON CONFLICT (idempotency_key) DO NOTHING`,
		key, entityType, entityID,
	)
	if err != nil {
		return false, fmt.Errorf("%w: failed to claim idempotency key: %w", apperrors.ErrInternal, err)
	}
	return tag.RowsAffected() == 1, nil
}

// findIdempotentEntityID resolves the entity a completed idempotency key points at.
func (r *PgxExpenseRepository) findIdempotentEntityID(ctx context.Context, key, entityType string) (string, error) {
	var entityID string
	err := r.Pool.QueryRow(ctx,
		`SELECT entity_id FROM idempotency_keys WHERE idempotency_key = $1 AND entity_type = $2`,
		key, entityType,
	).Scan(&entityID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrNotFound
		}
		return "", fmt.Errorf("%w: failed to resolve idempotency key: %w", apperrors.ErrInternal, err)
	}
	return entityID, nil
}

// SaveExpense implements portsrepo.ExpenseWriter.
func (r *PgxExpenseRepository) SaveExpense(ctx context.Context, expense domain.Expense, idempotencyKey string) (*domain.Expense, int64, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer r.Rollback(ctx, tx)

	claimed, err := claimIdempotencyKey(ctx, tx, idempotencyKey, entityTypeExpense, expense.ExpenseID)
	if err != nil {
		return nil, 0, err
	}
	if !claimed {
		// Replay of a completed request: hand back the original result.
		r.Rollback(ctx, tx)
		return r.loadPriorExpense(ctx, idempotencyKey, expense.GroupID)
	}

	groupVersion, err := bumpGroupVersion(ctx, tx, expense.GroupID)
	if err != nil {
		return nil, 0, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO expenses (
			expense_id, group_id, payer_id, total_minor_units, currency_code,
			description, category, split_type, version, voided, group_version_at_write,
			created_at, created_by, last_updated_at, last_updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		expense.ExpenseID, expense.GroupID, expense.PayerID,
		expense.TotalAmount.MinorUnits, expense.TotalAmount.CurrencyCode,
		expense.Description, expense.Category, string(expense.SplitType),
		expense.Version, expense.Voided, groupVersion,
		expense.CreatedAt, expense.CreatedBy, expense.LastUpdatedAt, expense.LastUpdatedBy,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to insert expense %s: %w", apperrors.ErrInternal, expense.ExpenseID, err)
	}

	if err := insertShares(ctx, tx, expense.ExpenseID, expense.Shares); err != nil {
		return nil, 0, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, 0, err
	}
	return &expense, groupVersion, nil
}

// loadPriorExpense returns the expense a replayed idempotency key created,
// with the current ledger version (no mutation happened on this call).
func (r *PgxExpenseRepository) loadPriorExpense(ctx context.Context, idempotencyKey, groupID string) (*domain.Expense, int64, error) {
	entityID, err := r.findIdempotentEntityID(ctx, idempotencyKey, entityTypeExpense)
	if err != nil {
		return nil, 0, err
	}
	prior, err := r.FindExpenseByID(ctx, entityID)
	if err != nil {
		return nil, 0, err
	}
	groupVersion, err := r.GetGroupVersion(ctx, groupID)
	if err != nil {
		return nil, 0, err
	}
	return prior, groupVersion, nil
}

func insertShares(ctx context.Context, tx pgx.Tx, expenseID string, shares []domain.ParticipantShare) error {
	batch := &pgx.Batch{}
	for _, share := range shares {
		batch.Queue(
			`INSERT INTO expense_shares (expense_id, participant_id, minor_units, percentage) VALUES ($1, $2, $3, $4)`,
			expenseID, share.ParticipantID, share.Amount.MinorUnits, share.Percentage,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%w: failed to insert shares for expense %s: %w", apperrors.ErrInternal, expenseID, err)
	}
	return nil
}

// UpdateExpense implements portsrepo.ExpenseWriter.
func (r *PgxExpenseRepository) UpdateExpense(ctx context.Context, expense domain.Expense, expectedVersion int64) (int64, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer r.Rollback(ctx, tx)

	groupVersion, err := bumpGroupVersion(ctx, tx, expense.GroupID)
	if err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE expenses SET
			payer_id = $1, total_minor_units = $2, description = $3, category = $4,
			split_type = $5, version = $6, group_version_at_write = $7,
			last_updated_at = $8, last_updated_by = $9
		WHERE expense_id = $10 AND version = $11 AND NOT voided`,
		expense.PayerID, expense.TotalAmount.MinorUnits, expense.Description, expense.Category,
		string(expense.SplitType), expense.Version, groupVersion,
		expense.LastUpdatedAt, expense.LastUpdatedBy,
		expense.ExpenseID, expectedVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to update expense %s: %w", apperrors.ErrInternal, expense.ExpenseID, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, r.casFailure(ctx, tx, expense.ExpenseID, expectedVersion)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM expense_shares WHERE expense_id = $1`, expense.ExpenseID); err != nil {
		return 0, fmt.Errorf("%w: failed to clear shares for expense %s: %w", apperrors.ErrInternal, expense.ExpenseID, err)
	}
	if err := insertShares(ctx, tx, expense.ExpenseID, expense.Shares); err != nil {
		return 0, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return 0, err
	}
	return groupVersion, nil
}

// VoidExpense implements portsrepo.ExpenseWriter.
func (r *PgxExpenseRepository) VoidExpense(ctx context.Context, expenseID string, expectedVersion int64, voidedBy string, voidedAt time.Time) (int64, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer r.Rollback(ctx, tx)

	var groupID string
	if err := tx.QueryRow(ctx, `SELECT group_id FROM expenses WHERE expense_id = $1`, expenseID).Scan(&groupID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("expense %s: %w", expenseID, apperrors.ErrNotFound)
		}
		return 0, fmt.Errorf("%w: failed to load expense %s: %w", apperrors.ErrInternal, expenseID, err)
	}

	groupVersion, err := bumpGroupVersion(ctx, tx, groupID)
	if err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE expenses SET
			voided = TRUE, version = version + 1, group_version_at_write = $1,
			last_updated_at = $2, last_updated_by = $3
		WHERE expense_id = $4 AND version = $5 AND NOT voided`,
		groupVersion, voidedAt, voidedBy, expenseID, expectedVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to void expense %s: %w", apperrors.ErrInternal, expenseID, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, r.casFailure(ctx, tx, expenseID, expectedVersion)
	}

	if err := r.Commit(ctx, tx); err != nil {
		return 0, err
	}
	return groupVersion, nil
}

// casFailure distinguishes a missing row from a version conflict after a
// zero-row CAS update.
func (r *PgxExpenseRepository) casFailure(ctx context.Context, tx pgx.Tx, expenseID string, expectedVersion int64) error {
	var currentVersion int64
	err := tx.QueryRow(ctx, `SELECT version FROM expenses WHERE expense_id = $1`, expenseID).Scan(&currentVersion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("expense %s: %w", expenseID, apperrors.ErrNotFound)
		}
		return fmt.Errorf("%w: failed to inspect expense %s after CAS miss: %w", apperrors.ErrInternal, expenseID, err)
	}
	return fmt.Errorf("expense %s: expected version %d, found %d: %w", expenseID, expectedVersion, currentVersion, apperrors.ErrConflict)
}

// FindExpenseByID implements portsrepo.ExpenseReader.
func (r *PgxExpenseRepository) FindExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error) {
	row := r.Pool.QueryRow(ctx, `
		SELECT expense_id, group_id, payer_id, total_minor_units, currency_code,
		       description, category, split_type, version, voided,
		       created_at, created_by, last_updated_at, last_updated_by
		FROM expenses WHERE expense_id = $1`, expenseID)

	expense, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("expense %s: %w", expenseID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: failed to find expense %s: %w", apperrors.ErrInternal, expenseID, err)
	}

	shares, err := r.loadShares(ctx, r.Pool, []string{expenseID}, expense.TotalAmount.CurrencyCode)
	if err != nil {
		return nil, err
	}
	expense.Shares = shares[expenseID]
	return expense, nil
}

// ListExpensesByGroup implements portsrepo.ExpenseReader. The expenses and
// the ledger version are read inside one repeatable-read transaction so the
// caller always sees a consistent snapshot.
func (r *PgxExpenseRepository) ListExpensesByGroup(ctx context.Context, groupID string, sinceVersion *int64) ([]domain.Expense, int64, error) {
	tx, err := r.BeginSnapshot(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer r.Rollback(ctx, tx)

	var groupVersion int64
	if err := tx.QueryRow(ctx, `SELECT ledger_version FROM groups WHERE group_id = $1`, groupID).Scan(&groupVersion); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, fmt.Errorf("group %s: %w", groupID, apperrors.ErrNotFound)
		}
		return nil, 0, fmt.Errorf("%w: failed to read ledger version for group %s: %w", apperrors.ErrInternal, groupID, err)
	}

	query := `
		SELECT expense_id, group_id, payer_id, total_minor_units, currency_code,
		       description, category, split_type, version, voided,
		       created_at, created_by, last_updated_at, last_updated_by
		FROM expenses WHERE group_id = $1`
	args := []any{groupID}
	if sinceVersion != nil {
		query += ` AND group_version_at_write > $2`
		args = append(args, *sinceVersion)
	}
	query += ` ORDER BY created_at, expense_id`

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to list expenses for group %s: %w", apperrors.ErrInternal, groupID, err)
	}
	defer rows.Close()

	var expenses []domain.Expense
	expenseIDs := make([]string, 0)
	currencies := make(map[string]string)
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: failed to scan expense row: %w", apperrors.ErrInternal, err)
		}
		expenses = append(expenses, *expense)
		expenseIDs = append(expenseIDs, expense.ExpenseID)
		currencies[expense.ExpenseID] = expense.TotalAmount.CurrencyCode
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: failed to iterate expenses for group %s: %w", apperrors.ErrInternal, groupID, err)
	}

	if len(expenseIDs) > 0 {
		shares, err := r.loadSharesByCurrency(ctx, tx, expenseIDs, currencies)
		if err != nil {
			return nil, 0, err
		}
		for i := range expenses {
			expenses[i].Shares = shares[expenses[i].ExpenseID]
		}
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, 0, err
	}
	return expenses, groupVersion, nil
}

// GetGroupVersion implements portsrepo.ExpenseReader.
func (r *PgxExpenseRepository) GetGroupVersion(ctx context.Context, groupID string) (int64, error) {
	var version int64
	err := r.Pool.QueryRow(ctx, `SELECT ledger_version FROM groups WHERE group_id = $1`, groupID).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("group %s: %w", groupID, apperrors.ErrNotFound)
		}
		return 0, fmt.Errorf("%w: failed to read ledger version for group %s: %w", apperrors.ErrInternal, groupID, err)
	}
	return version, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*domain.Expense, error) {
	var exp domain.Expense
	var splitType string
	err := row.Scan(
		&exp.ExpenseID, &exp.GroupID, &exp.PayerID,
		&exp.TotalAmount.MinorUnits, &exp.TotalAmount.CurrencyCode,
		&exp.Description, &exp.Category, &splitType, &exp.Version, &exp.Voided,
		&exp.CreatedAt, &exp.CreatedBy, &exp.LastUpdatedAt, &exp.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	exp.SplitType = domain.SplitType(splitType)
	return &exp, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PgxExpenseRepository) loadShares(ctx context.Context, q querier, expenseIDs []string, currencyCode string) (map[string][]domain.ParticipantShare, error) {
	currencies := make(map[string]string, len(expenseIDs))
	for _, id := range expenseIDs {
		currencies[id] = currencyCode
	}
	return r.loadSharesByCurrency(ctx, q, expenseIDs, currencies)
}

func (r *PgxExpenseRepository) loadSharesByCurrency(ctx context.Context, q querier, expenseIDs []string, currencies map[string]string) (map[string][]domain.ParticipantShare, error) {
	rows, err := q.Query(ctx, `
		SELECT expense_id, participant_id, minor_units, percentage
		FROM expense_shares
		WHERE expense_id = ANY($1)
		ORDER BY expense_id, participant_id`, expenseIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load expense shares: %w", apperrors.ErrInternal, err)
	}
	defer rows.Close()

	shares := make(map[string][]domain.ParticipantShare, len(expenseIDs))
	for rows.Next() {
		var expenseID string
		var share domain.ParticipantShare
		var minorUnits int64
		var percentage *decimal.Decimal
		if err := rows.Scan(&expenseID, &share.ParticipantID, &minorUnits, &percentage); err != nil {
			return nil, fmt.Errorf("%w: failed to scan share row: %w", apperrors.ErrInternal, err)
		}
		share.Amount = domain.NewMoney(minorUnits, currencies[expenseID])
		share.Percentage = percentage
		shares[expenseID] = append(shares[expenseID], share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate share rows: %w", apperrors.ErrInternal, err)
	}
	return shares, nil
}
