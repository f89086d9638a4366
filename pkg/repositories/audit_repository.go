package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hausradar/dedup-engine/pkg/database"
	"github.com/hausradar/dedup-engine/pkg/models"
)

// AuditRepository provides data access for the append-only review audit
// log. Entries are only ever inserted; there is no update or delete path.
type AuditRepository interface {
	// Create inserts a new audit entry. It runs on the given querier so the
	// review workflow can pair it with the group's terminal transition in
	// one transaction.
	Create(ctx context.Context, q database.Querier, entry *models.AuditEntry) error

	// ListByGroup returns all audit entries for a group, newest first.
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.AuditEntry, error)
}

type auditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *database.DB) AuditRepository {
	return &auditRepository{db: db}
}

var _ AuditRepository = (*auditRepository)(nil)

func (r *auditRepository) Create(ctx context.Context, q database.Querier, entry *models.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()

	var detailsJSON []byte
	var err error
	if len(entry.Details) > 0 {
		detailsJSON, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal audit details: %w", err)
		}
	}

	_, err = q.Exec(ctx, `
		INSERT INTO dedup_audit_log (id, group_id, actor_id, action, affected_properties, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.GroupID, entry.ActorID, entry.Action,
		entry.AffectedProperties, detailsJSON, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	return nil
}

func (r *auditRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.AuditEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, group_id, actor_id, action, affected_properties, details, created_at
		FROM dedup_audit_log
		WHERE group_id = $1
		ORDER BY created_at DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		entry := &models.AuditEntry{}
		var detailsJSON []byte
		err := rows.Scan(&entry.ID, &entry.GroupID, &entry.ActorID, &entry.Action,
			&entry.AffectedProperties, &detailsJSON, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &entry.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}
