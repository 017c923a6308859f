package services

import (
	"context"

	"github.com/triptally/triptally_backend/internal/core/domain"
)

// MembershipSvcFacade is the boundary to the product's group membership.
// The engine consults it before any read or write touching a group.
type MembershipSvcFacade interface {
	// AuthorizeMemberAction verifies the participant holds at least the
	// required role in the group. Non-members fail with
	// apperrors.ErrForbidden; unknown groups with apperrors.ErrNotFound.
	AuthorizeMemberAction(ctx context.Context, participantID string, groupID string, required domain.MemberRole) error

	// IsMember reports whether a participant belongs to a group.
	IsMember(ctx context.Context, groupID string, participantID string) (bool, error)

	// ListMemberIDs returns the participant IDs of all group members.
	ListMemberIDs(ctx context.Context, groupID string) ([]string, error)
}

// CurrencySvcFacade is the boundary to currency metadata. The engine never
// converts between currencies; it only validates codes.
type CurrencySvcFacade interface {
	// ValidateCurrency fails with apperrors.ErrValidation for codes the
	// product does not support.
	ValidateCurrency(ctx context.Context, currencyCode string) error

	// GetCurrency returns metadata for a supported code.
	GetCurrency(ctx context.Context, currencyCode string) (*domain.Currency, error)

	// ListCurrencies returns every currency the product supports.
	ListCurrencies(ctx context.Context) ([]domain.Currency, error)
}
