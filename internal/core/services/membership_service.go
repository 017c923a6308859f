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

// membershipService answers membership questions from the product-synced
// membership table. The engine treats membership as read-only.
type membershipService struct {
	membershipRepo portsrepo.MembershipReader
}

// NewMembershipService creates the membership collaborator adapter.
func NewMembershipService(membershipRepo portsrepo.MembershipReader) portssvc.MembershipSvcFacade {
	return &membershipService{membershipRepo: membershipRepo}
}

var _ portssvc.MembershipSvcFacade = (*membershipService)(nil)

// AuthorizeMemberAction implements portssvc.MembershipSvcFacade.
func (s *membershipService) AuthorizeMemberAction(ctx context.Context, participantID string, groupID string, required domain.MemberRole) error {
	member, err := s.membershipRepo.FindMember(ctx, groupID, participantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: participant %s is not a member of group %s", apperrors.ErrForbidden, participantID, groupID)
		}
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if required == domain.RoleAdmin && member.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: participant %s is not an admin of group %s", apperrors.ErrForbidden, participantID, groupID)
	}
	return nil
}

// IsMember implements portssvc.MembershipSvcFacade.
func (s *membershipService) IsMember(ctx context.Context, groupID string, participantID string) (bool, error) {
	_, err := s.membershipRepo.FindMember(ctx, groupID, participantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListMemberIDs implements portssvc.MembershipSvcFacade.
func (s *membershipService) ListMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	members, err := s.membershipRepo.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ParticipantID
	}
	return ids, nil
}
