package domain

import "time"

// MemberRole defines the possible roles a participant can have within a group.
type MemberRole string

const (
	RoleAdmin  MemberRole = "ADMIN"
	RoleMember MemberRole = "MEMBER"
)

// GroupMember represents the membership of a participant in a trip group.
// Membership itself is owned by the surrounding product; the engine only
// reads it to validate participants and authorize mutations.
type GroupMember struct {
	GroupID       string     `json:"groupID"`
	ParticipantID string     `json:"participantID"`
	Role          MemberRole `json:"role"`
	JoinedAt      time.Time  `json:"joinedAt"`
}

// Currency represents a supported currency and its minor-unit precision.
type Currency struct {
	CurrencyCode string `json:"currencyCode"` // Primary Key (e.g., "USD")
	Symbol       string `json:"symbol"`       // e.g., "$"
	Name         string `json:"name"`         // e.g., "US Dollar"
	Precision    int    `json:"precision"`    // minor-unit digits (2 for USD, 0 for JPY)
	AuditFields
}
