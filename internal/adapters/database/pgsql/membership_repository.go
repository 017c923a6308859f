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

// PgxMembershipRepository reads group membership synced in by the
// surrounding product.
type PgxMembershipRepository struct {
	BaseRepository
}

// NewPgxMembershipRepository creates a read-only membership repository.
func NewPgxMembershipRepository(pool *pgxpool.Pool) portsrepo.MembershipReader {
	return &PgxMembershipRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.MembershipReader = (*PgxMembershipRepository)(nil)

// FindMember implements portsrepo.MembershipReader.
func (r *PgxMembershipRepository) FindMember(ctx context.Context, groupID string, participantID string) (*domain.GroupMember, error) {
	var member domain.GroupMember
	var role string
	err := r.Pool.QueryRow(ctx, `
		SELECT group_id, participant_id, role, joined_at
		FROM group_members WHERE group_id = $1 AND participant_id = $2`,
		groupID, participantID,
	).Scan(&member.GroupID, &member.ParticipantID, &role, &member.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("participant %s in group %s: %w", participantID, groupID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: failed to find member: %w", apperrors.ErrInternal, err)
	}
	member.Role = domain.MemberRole(role)
	return &member, nil
}

// ListMembers implements portsrepo.MembershipReader.
func (r *PgxMembershipRepository) ListMembers(ctx context.Context, groupID string) ([]domain.GroupMember, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT group_id, participant_id, role, joined_at
		FROM group_members WHERE group_id = $1 ORDER BY participant_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list members for group %s: %w", apperrors.ErrInternal, groupID, err)
	}
	defer rows.Close()

	var members []domain.GroupMember
	for rows.Next() {
		var member domain.GroupMember
		var role string
		if err := rows.Scan(&member.GroupID, &member.ParticipantID, &role, &member.JoinedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan member row: %w", apperrors.ErrInternal, err)
		}
		member.Role = domain.MemberRole(role)
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate members for group %s: %w", apperrors.ErrInternal, groupID, err)
	}
	return members, nil
}
