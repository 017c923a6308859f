package repositories

import (
	"context"

	"github.com/triptally/triptally_backend/internal/core/domain"
)

// MembershipReader reads group membership. Membership is owned by the
// surrounding product and synced into the engine's store; the engine only
// ever reads it.
type MembershipReader interface {
	// FindMember returns the membership row for a participant in a group,
	// or apperrors.ErrNotFound when they are not a member.
	FindMember(ctx context.Context, groupID string, participantID string) (*domain.GroupMember, error)

	// ListMembers returns all members of a group.
	ListMembers(ctx context.Context, groupID string) ([]domain.GroupMember, error)
}

// CurrencyReader reads currency metadata.
type CurrencyReader interface {
	// FindCurrencyByCode returns the currency for an ISO code, or
	// apperrors.ErrNotFound for unsupported codes.
	FindCurrencyByCode(ctx context.Context, currencyCode string) (*domain.Currency, error)

	// ListCurrencies returns all supported currencies.
	ListCurrencies(ctx context.Context) ([]domain.Currency, error)
}
