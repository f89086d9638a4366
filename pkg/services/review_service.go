package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/hausradar/dedup-engine/pkg/apperrors"
	"github.com/hausradar/dedup-engine/pkg/models"
	"github.com/hausradar/dedup-engine/pkg/repositories"
)

// TxBeginner starts database transactions. *database.DB satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ReviewService governs the duplicate group lifecycle: pending groups move
// exactly once to resolved or dismissed, and every terminal transition
// writes exactly one audit entry in the same transaction. This engine only
// records the decision; applying the merge (photo consolidation, soft
// deletion of the losing records) is the listing service's job.
type ReviewService interface {
	// Resolve marks a pending group resolved with a merge target chosen
	// from its members and returns the audit entry.
	Resolve(ctx context.Context, groupID, mergeTargetID, actorID uuid.UUID, notes string) (*models.AuditEntry, error)

	// Dismiss marks a pending group dismissed (not a duplicate) and
	// returns the audit entry.
	Dismiss(ctx context.Context, groupID, actorID uuid.UUID, notes string) (*models.AuditEntry, error)

	// AuditTrail returns the audit entries recorded for a group.
	AuditTrail(ctx context.Context, groupID uuid.UUID) ([]*models.AuditEntry, error)
}

type reviewService struct {
	db        TxBeginner
	groupRepo repositories.GroupRepository
	auditRepo repositories.AuditRepository
	logger    *zap.Logger
}

// NewReviewService creates a new ReviewService.
func NewReviewService(
	db TxBeginner,
	groupRepo repositories.GroupRepository,
	auditRepo repositories.AuditRepository,
	logger *zap.Logger,
) ReviewService {
	return &reviewService{
		db:        db,
		groupRepo: groupRepo,
		auditRepo: auditRepo,
		logger:    logger.Named("review"),
	}
}

var _ ReviewService = (*reviewService)(nil)

func (s *reviewService) Resolve(ctx context.Context, groupID, mergeTargetID, actorID uuid.UUID, notes string) (*models.AuditEntry, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Status != models.GroupStatusPending {
		return nil, apperrors.ErrGroupNotPending
	}
	if mergeTargetID == uuid.Nil || !group.HasMember(mergeTargetID) {
		return nil, apperrors.ErrInvalidMergeTarget
	}

	memberIDs := group.MemberIDs()
	excluded := make([]string, 0, len(memberIDs)-1)
	for _, id := range memberIDs {
		if id != mergeTargetID {
			excluded = append(excluded, id.String())
		}
	}

	entry := &models.AuditEntry{
		GroupID:            groupID,
		ActorID:            actorID,
		Action:             models.AuditActionMerge,
		AffectedProperties: memberIDs,
		Details: map[string]any{
			"action":          models.AuditActionMerge,
			"confidence":      group.Confidence,
			"merge_target_id": mergeTargetID.String(),
			"excluded_ids":    excluded,
		},
	}
	if notes != "" {
		entry.Details["notes"] = notes
	}

	if err := s.transition(ctx, groupID, models.GroupStatusResolved, &mergeTargetID, actorID, notes, entry); err != nil {
		return nil, err
	}

	s.logger.Info("Resolved duplicate group",
		zap.String("group_id", groupID.String()),
		zap.String("merge_target_id", mergeTargetID.String()),
		zap.String("actor_id", actorID.String()))
	return entry, nil
}

func (s *reviewService) Dismiss(ctx context.Context, groupID, actorID uuid.UUID, notes string) (*models.AuditEntry, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Status != models.GroupStatusPending {
		return nil, apperrors.ErrGroupNotPending
	}

	entry := &models.AuditEntry{
		GroupID:            groupID,
		ActorID:            actorID,
		Action:             models.AuditActionDismiss,
		AffectedProperties: group.MemberIDs(),
		Details: map[string]any{
			"action":     models.AuditActionDismiss,
			"confidence": group.Confidence,
		},
	}
	if notes != "" {
		entry.Details["notes"] = notes
	}

	if err := s.transition(ctx, groupID, models.GroupStatusDismissed, nil, actorID, notes, entry); err != nil {
		return nil, err
	}

	s.logger.Info("Dismissed duplicate group",
		zap.String("group_id", groupID.String()),
		zap.String("actor_id", actorID.String()))
	return entry, nil
}

// transition applies the terminal status update and the audit insert in a
// single transaction. A decision recorded without its audit trail, or the
// other way around, would be a correctness bug.
func (s *reviewService) transition(ctx context.Context, groupID uuid.UUID, status string, mergeTargetID *uuid.UUID, actorID uuid.UUID, notes string, entry *models.AuditEntry) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}

	if err := s.groupRepo.UpdateStatus(ctx, tx, groupID, status, mergeTargetID, actorID, notesPtr, time.Now()); err != nil {
		return err
	}
	if err := s.auditRepo.Create(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit review transition: %w", err)
	}
	return nil
}

func (s *reviewService) AuditTrail(ctx context.Context, groupID uuid.UUID) ([]*models.AuditEntry, error) {
	if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	return s.auditRepo.ListByGroup(ctx, groupID)
}
