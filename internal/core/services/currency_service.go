package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/triptally/triptally_backend/internal/apperrors"
	"github.com/triptally/triptally_backend/internal/core/domain"
	portsrepo "github.com/triptally/triptally_backend/internal/core/ports/repositories"
	portssvc "github.com/triptally/triptally_backend/internal/core/ports/services"
)

// currencyService validates currency codes against the product's currency
// metadata. No conversion happens anywhere in the engine.
type currencyService struct {
	currencyRepo portsrepo.CurrencyReader
}

// NewCurrencyService creates the currency metadata adapter.
func NewCurrencyService(currencyRepo portsrepo.CurrencyReader) portssvc.CurrencySvcFacade {
	return &currencyService{currencyRepo: currencyRepo}
}

var _ portssvc.CurrencySvcFacade = (*currencyService)(nil)

// ValidateCurrency implements portssvc.CurrencySvcFacade.
func (s *currencyService) ValidateCurrency(ctx context.Context, currencyCode string) error {
	_, err := s.currencyRepo.FindCurrencyByCode(ctx, currencyCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: unsupported currency %q", apperrors.ErrValidation, currencyCode)
		}
		return fmt.Errorf("failed to look up currency %q: %w", currencyCode, err)
	}
	return nil
}

// GetCurrency implements portssvc.CurrencySvcFacade.
func (s *currencyService) GetCurrency(ctx context.Context, currencyCode string) (*domain.Currency, error) {
	return s.currencyRepo.FindCurrencyByCode(ctx, currencyCode)
}

// ListCurrencies implements portssvc.CurrencySvcFacade.
func (s *currencyService) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	return s.currencyRepo.ListCurrencies(ctx)
}
