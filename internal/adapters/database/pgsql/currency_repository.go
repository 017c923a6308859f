package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/triptally/triptally_backend/internal/apperrors"
	"github.com/triptally/triptally_backend/internal/core/domain"
	portsrepo "github.com/triptally/triptally_backend/internal/core/ports/repositories"
)

// PgxCurrencyRepository reads supported currency metadata.
type PgxCurrencyRepository struct {
	BaseRepository
}

// NewPgxCurrencyRepository creates a read-only currency repository.
func NewPgxCurrencyRepository(pool *pgxpool.Pool) portsrepo.CurrencyReader {
	return &PgxCurrencyRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.CurrencyReader = (*PgxCurrencyRepository)(nil)

// FindCurrencyByCode implements portsrepo.CurrencyReader. Lookup is
// case-insensitive on the ISO code.
func (r *PgxCurrencyRepository) FindCurrencyByCode(ctx context.Context, currencyCode string) (*domain.Currency, error) {
	var currency domain.Currency
	err := r.Pool.QueryRow(ctx, `
		SELECT currency_code, symbol, name, precision,
		       created_at, created_by, last_updated_at, last_updated_by
		FROM currencies WHERE currency_code = $1`,
		strings.ToUpper(currencyCode),
	).Scan(
		&currency.CurrencyCode, &currency.Symbol, &currency.Name, &currency.Precision,
		&currency.CreatedAt, &currency.CreatedBy, &currency.LastUpdatedAt, &currency.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("currency %s: %w", currencyCode, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: failed to find currency %s: %w", apperrors.ErrInternal, currencyCode, err)
	}
	return &currency, nil
}

// ListCurrencies implements portsrepo.CurrencyReader.
func (r *PgxCurrencyRepository) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT currency_code, symbol, name, precision,
		       created_at, created_by, last_updated_at, last_updated_by
		FROM currencies ORDER BY currency_code`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list currencies: %w", apperrors.ErrInternal, err)
	}
	defer rows.Close()

	var currencies []domain.Currency
	for rows.Next() {
		var currency domain.Currency
		if err := rows.Scan(
			&currency.CurrencyCode, &currency.Symbol, &currency.Name, &currency.Precision,
			&currency.CreatedAt, &currency.CreatedBy, &currency.LastUpdatedAt, &currency.LastUpdatedBy,
		); err != nil {
			return nil, fmt.Errorf("%w: failed to scan currency row: %w", apperrors.ErrInternal, err)
		}
		currencies = append(currencies, currency)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate currency rows: %w", apperrors.ErrInternal, err)
	}
	return currencies, nil
}
