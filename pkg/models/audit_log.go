package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded for terminal review decisions.
const (
	AuditActionMerge   = "merge"
	AuditActionDismiss = "dismiss"
)

// AuditEntry is the append-only record of a review decision. Exactly one is
// written per terminal transition, atomically with the group update, and it
// is never mutated or deleted afterwards.
type AuditEntry struct {
	ID      uuid.UUID `json:"id"`
	GroupID uuid.UUID `json:"group_id"`
	ActorID uuid.UUID `json:"actor_id"`
	Action  string    `json:"action"`

	// AffectedProperties is the full member-id list of the group at the
	// time of the decision.
	AffectedProperties []uuid.UUID `json:"affected_properties"`

	// Details captures the original confidence, the chosen action, and for
	// merges the target id plus the excluded member ids.
	Details map[string]any `json:"details,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
