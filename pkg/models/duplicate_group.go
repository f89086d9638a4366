package models

import (
	"time"

	"github.com/google/uuid"
)

// Duplicate group lifecycle states. A group starts pending and moves exactly
// once to resolved or dismissed; there is no transition out of a terminal
// state.
const (
	GroupStatusPending   = "pending"
	GroupStatusResolved  = "resolved"
	GroupStatusDismissed = "dismissed"
)

// DuplicateGroup is a persisted cluster of records awaiting (or past) human
// review. A record belongs to at most one pending group at a time; it may
// appear in any number of resolved or dismissed groups across its history.
type DuplicateGroup struct {
	ID         uuid.UUID `json:"id"`
	Confidence float64   `json:"confidence"`
	Status     string    `json:"status"`

	MergeTargetID *uuid.UUID `json:"merge_target_id,omitempty"`
	ReviewedBy    *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewNotes   *string    `json:"review_notes,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	Members []*DuplicateGroupMember `json:"members,omitempty"`
}

// DuplicateGroupMember links a group to one property record together with
// that record's similarity reasons relative to the rest of the group,
// including the numeric field scores encoded as "<field>_score:<value>" tags.
type DuplicateGroupMember struct {
	ID         uuid.UUID `json:"id"`
	GroupID    uuid.UUID `json:"group_id"`
	PropertyID uuid.UUID `json:"property_id"`
	Reasons    []string  `json:"reasons"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsTerminal reports whether the group has already been reviewed.
func (g *DuplicateGroup) IsTerminal() bool {
	return g.Status == GroupStatusResolved || g.Status == GroupStatusDismissed
}

// MemberIDs returns the property ids of all members.
func (g *DuplicateGroup) MemberIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.PropertyID)
	}
	return ids
}

// HasMember reports whether the given property id is a member of the group.
func (g *DuplicateGroup) HasMember(propertyID uuid.UUID) bool {
	for _, m := range g.Members {
		if m.PropertyID == propertyID {
			return true
		}
	}
	return false
}
