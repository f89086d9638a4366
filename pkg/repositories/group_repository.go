package repositories

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hausradar/dedup-engine/pkg/apperrors"
	"github.com/hausradar/dedup-engine/pkg/database"
	"github.com/hausradar/dedup-engine/pkg/models"
)

// GroupRepository provides data access for duplicate groups and their
// members. The at-most-one-pending-group-per-record invariant is enforced
// here, inside the creation transaction, so concurrent scans cannot create
// overlapping pending groups.
type GroupRepository interface {
	// HasPendingGroup reports whether the record currently belongs to a
	// pending group. This is the cheap pre-check; CreateWithMembers
	// re-checks under a lock regardless.
	HasPendingGroup(ctx context.Context, propertyID uuid.UUID) (bool, error)

	// CreateWithMembers inserts a group and its members as one
	// transaction. It returns apperrors.ErrConflict when any member
	// already belongs to a pending group; nothing is persisted in that
	// case.
	CreateWithMembers(ctx context.Context, group *models.DuplicateGroup, members []*models.DuplicateGroupMember) error

	// GetByID returns a group with its members, or apperrors.ErrNotFound.
	GetByID(ctx context.Context, groupID uuid.UUID) (*models.DuplicateGroup, error)

	// ListByStatus returns all groups with the given status, newest first,
	// members attached.
	ListByStatus(ctx context.Context, status string) ([]*models.DuplicateGroup, error)

	// UpdateStatus moves a pending group to a terminal status. It runs on
	// the given querier so the caller can pair it with the audit insert in
	// one transaction. Returns apperrors.ErrGroupNotPending when the group
	// is no longer pending.
	UpdateStatus(ctx context.Context, q database.Querier, groupID uuid.UUID, status string, mergeTargetID *uuid.UUID, reviewedBy uuid.UUID, notes *string, reviewedAt time.Time) error
}

type groupRepository struct {
	db *database.DB
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(db *database.DB) GroupRepository {
	return &groupRepository{db: db}
}

var _ GroupRepository = (*groupRepository)(nil)

func (r *groupRepository) HasPendingGroup(ctx context.Context, propertyID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM duplicate_group_members m
			JOIN duplicate_groups g ON g.id = m.group_id
			WHERE m.property_id = $1 AND g.status = 'pending'
		)`, propertyID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending group membership: %w", err)
	}
	return exists, nil
}

func (r *groupRepository) CreateWithMembers(ctx context.Context, group *models.DuplicateGroup, members []*models.DuplicateGroupMember) error {
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	group.Status = models.GroupStatusPending
	group.CreatedAt = time.Now()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serialize competing creations per record via transaction-scoped
	// advisory locks, taken in sorted order to avoid deadlocks. The
	// membership re-check below then holds until commit.
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.PropertyID)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	for _, id := range ids {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, id); err != nil {
			return fmt.Errorf("failed to take advisory lock: %w", err)
		}
	}

	var conflict bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM duplicate_group_members m
			JOIN duplicate_groups g ON g.id = m.group_id
			WHERE m.property_id = ANY($1) AND g.status = 'pending'
		)`, ids).Scan(&conflict)
	if err != nil {
		return fmt.Errorf("failed to re-check pending group membership: %w", err)
	}
	if conflict {
		return apperrors.ErrConflict
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO duplicate_groups (id, confidence, status, created_at)
		VALUES ($1, $2, $3, $4)`,
		group.ID, group.Confidence, group.Status, group.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert duplicate group: %w", err)
	}

	for _, m := range members {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.GroupID = group.ID
		m.CreatedAt = group.CreatedAt
		_, err = tx.Exec(ctx, `
			INSERT INTO duplicate_group_members (id, group_id, property_id, reasons, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			m.ID, m.GroupID, m.PropertyID, m.Reasons, m.CreatedAt)
		if err != nil {
			// Rollback removes the group row as well; no orphaned
			// group survives a failed member insert.
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit group creation: %w", err)
	}
	group.Members = members
	return nil
}

func (r *groupRepository) GetByID(ctx context.Context, groupID uuid.UUID) (*models.DuplicateGroup, error) {
	group := &models.DuplicateGroup{}
	err := r.db.QueryRow(ctx, `
		SELECT id, confidence, status, merge_target_id, reviewed_by, review_notes, reviewed_at, created_at
		FROM duplicate_groups
		WHERE id = $1`, groupID).Scan(
		&group.ID, &group.Confidence, &group.Status,
		&group.MergeTargetID, &group.ReviewedBy, &group.ReviewNotes, &group.ReviewedAt,
		&group.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get duplicate group: %w", err)
	}

	if err := r.attachMembers(ctx, map[uuid.UUID]*models.DuplicateGroup{group.ID: group}); err != nil {
		return nil, err
	}
	return group, nil
}

func (r *groupRepository) ListByStatus(ctx context.Context, status string) ([]*models.DuplicateGroup, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, confidence, status, merge_target_id, reviewed_by, review_notes, reviewed_at, created_at
		FROM duplicate_groups
		WHERE status = $1
		ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list duplicate groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.DuplicateGroup
	byID := make(map[uuid.UUID]*models.DuplicateGroup)
	for rows.Next() {
		group := &models.DuplicateGroup{}
		err := rows.Scan(
			&group.ID, &group.Confidence, &group.Status,
			&group.MergeTargetID, &group.ReviewedBy, &group.ReviewNotes, &group.ReviewedAt,
			&group.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan duplicate group: %w", err)
		}
		groups = append(groups, group)
		byID[group.ID] = group
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating duplicate groups: %w", err)
	}

	if len(groups) > 0 {
		if err := r.attachMembers(ctx, byID); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (r *groupRepository) attachMembers(ctx context.Context, byID map[uuid.UUID]*models.DuplicateGroup) error {
	ids := make([]uuid.UUID, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, group_id, property_id, reasons, created_at
		FROM duplicate_group_members
		WHERE group_id = ANY($1)
		ORDER BY created_at`, ids)
	if err != nil {
		return fmt.Errorf("failed to query group members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m := &models.DuplicateGroupMember{}
		if err := rows.Scan(&m.ID, &m.GroupID, &m.PropertyID, &m.Reasons, &m.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan group member: %w", err)
		}
		if group, ok := byID[m.GroupID]; ok {
			group.Members = append(group.Members, m)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating group members: %w", err)
	}
	return nil
}

func (r *groupRepository) UpdateStatus(ctx context.Context, q database.Querier, groupID uuid.UUID, status string, mergeTargetID *uuid.UUID, reviewedBy uuid.UUID, notes *string, reviewedAt time.Time) error {
	// CAS on status: only a pending group can reach a terminal state, and
	// only once.
	tag, err := q.Exec(ctx, `
		UPDATE duplicate_groups
		SET status = $2, merge_target_id = $3, reviewed_by = $4, review_notes = $5, reviewed_at = $6
		WHERE id = $1 AND status = 'pending'`,
		groupID, status, mergeTargetID, reviewedBy, notes, reviewedAt)
	if err != nil {
		return fmt.Errorf("failed to update group status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrGroupNotPending
	}
	return nil
}
