package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hausradar/dedup-engine/pkg/apperrors"
	"github.com/hausradar/dedup-engine/pkg/models"
	"github.com/hausradar/dedup-engine/pkg/repositories"
)

// GroupFormationResult summarizes one pass over a match list.
type GroupFormationResult struct {
	Created int `json:"created"`
	// Skipped counts matches whose records already sat in a pending group.
	// These are reported, never silently dropped.
	Skipped int `json:"skipped"`
	// Failed counts matches that could not be persisted; the scan summary
	// distinguishes them from skips so callers can retry.
	Failed int `json:"failed"`
}

// GroupService turns pairwise matches into non-overlapping pending review
// groups and provides read access for review UIs.
type GroupService interface {
	// FormGroups processes matches highest-confidence-first. A match whose
	// records are both free of pending groups becomes a new group; a match
	// touching a record already pending is counted as skipped. The greedy
	// order is deliberate: deterministic and simple over optimal.
	FormGroups(ctx context.Context, matches []*models.MatchResult) (*GroupFormationResult, error)

	// ListGroups returns all groups with the given status.
	ListGroups(ctx context.Context, status string) ([]*models.DuplicateGroup, error)

	// GetGroup returns one group with members.
	GetGroup(ctx context.Context, groupID uuid.UUID) (*models.DuplicateGroup, error)
}

type groupService struct {
	groupRepo repositories.GroupRepository
	logger    *zap.Logger
}

// NewGroupService creates a new GroupService.
func NewGroupService(groupRepo repositories.GroupRepository, logger *zap.Logger) GroupService {
	return &groupService{
		groupRepo: groupRepo,
		logger:    logger.Named("group-formation"),
	}
}

var _ GroupService = (*groupService)(nil)

func (s *groupService) FormGroups(ctx context.Context, matches []*models.MatchResult) (*GroupFormationResult, error) {
	result := &GroupFormationResult{}

	for _, match := range matches {
		pending, err := s.anyPending(ctx, match.RecordA, match.RecordB)
		if err != nil {
			result.Failed++
			s.logger.Error("Failed to check pending membership",
				zap.String("record_a", match.RecordA.String()),
				zap.String("record_b", match.RecordB.String()),
				zap.Error(err))
			continue
		}
		if pending {
			result.Skipped++
			continue
		}

		group := &models.DuplicateGroup{Confidence: match.Confidence}
		members := []*models.DuplicateGroupMember{
			{PropertyID: match.RecordA, Reasons: memberReasons(match)},
			{PropertyID: match.RecordB, Reasons: memberReasons(match)},
		}

		err = s.groupRepo.CreateWithMembers(ctx, group, members)
		switch {
		case errors.Is(err, apperrors.ErrConflict):
			// A concurrent scan grabbed one of the records between the
			// pre-check and the insert.
			result.Skipped++
		case err != nil:
			result.Failed++
			s.logger.Error("Failed to persist duplicate group",
				zap.String("record_a", match.RecordA.String()),
				zap.String("record_b", match.RecordB.String()),
				zap.Float64("confidence", match.Confidence),
				zap.Error(err))
		default:
			result.Created++
			s.logger.Info("Created duplicate group",
				zap.String("group_id", group.ID.String()),
				zap.Float64("confidence", match.Confidence),
				zap.Strings("reasons", match.Reasons))
		}
	}

	return result, nil
}

func (s *groupService) anyPending(ctx context.Context, ids ...uuid.UUID) (bool, error) {
	for _, id := range ids {
		pending, err := s.groupRepo.HasPendingGroup(ctx, id)
		if err != nil {
			return false, fmt.Errorf("check pending group for %s: %w", id, err)
		}
		if pending {
			return true, nil
		}
	}
	return false, nil
}

func (s *groupService) ListGroups(ctx context.Context, status string) ([]*models.DuplicateGroup, error) {
	return s.groupRepo.ListByStatus(ctx, status)
}

func (s *groupService) GetGroup(ctx context.Context, groupID uuid.UUID) (*models.DuplicateGroup, error) {
	return s.groupRepo.GetByID(ctx, groupID)
}

// memberReasons combines the match's reason tags with the numeric field
// scores encoded as machine-readable strings for later audit and debugging.
func memberReasons(match *models.MatchResult) []string {
	reasons := make([]string, 0, len(match.Reasons)+5)
	reasons = append(reasons, match.Reasons...)
	reasons = append(reasons,
		fmt.Sprintf("title_score:%.4f", match.Fields.Title.Score),
		fmt.Sprintf("address_score:%.4f", match.Fields.Address.Score),
		fmt.Sprintf("specs_score:%.4f", match.Fields.Specs.Score),
	)
	if match.Fields.Description != nil {
		reasons = append(reasons, fmt.Sprintf("description_score:%.4f", match.Fields.Description.Score))
	}
	reasons = append(reasons, fmt.Sprintf("media_score:%.4f", match.Fields.Media.Score))
	return reasons
}
