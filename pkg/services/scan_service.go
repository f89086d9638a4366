package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hausradar/dedup-engine/pkg/config"
	"github.com/hausradar/dedup-engine/pkg/models"
	"github.com/hausradar/dedup-engine/pkg/repositories"
	"github.com/hausradar/dedup-engine/pkg/services/workqueue"
)

// ScanRequest selects the record batch and tunes one scan invocation.
// Nil fields fall back to the configured defaults.
type ScanRequest struct {
	CreatedAfter *time.Time `json:"created_after,omitempty"`
	OwnerID      *uuid.UUID `json:"owner_id,omitempty"`
	Status       string     `json:"status,omitempty"`

	// MinConfidence may raise the reporting bar above the default; the
	// evaluator's own emission rules are always the floor.
	MinConfidence *float64 `json:"min_confidence,omitempty"`

	// IncludeSameOwner opts into administrative full scans that also
	// compare records of a single owner.
	IncludeSameOwner *bool `json:"include_same_owner,omitempty"`
}

// ScanSummary reports the outcome of one scan. It is always returned, even
// when some groups failed to persist.
type ScanSummary struct {
	RecordsScanned int                   `json:"records_scanned"`
	MatchesFound   int                   `json:"matches_found"`
	GroupsCreated  int                   `json:"groups_created"`
	GroupsSkipped  int                   `json:"groups_skipped"`
	GroupsFailed   int                   `json:"groups_failed"`
	TopMatches     []*models.MatchResult `json:"top_matches"`
}

// ScanService runs the end-to-end duplicate scan: fetch a batch, compare
// every unordered pair, and hand qualifying matches to group formation.
type ScanService interface {
	Scan(ctx context.Context, req ScanRequest) (*ScanSummary, error)
}

type scanService struct {
	propertyRepo repositories.PropertyRepository
	hashRepo     repositories.MediaHashRepository
	evaluator    MatchEvaluator
	groups       GroupService
	lock         ScanLock
	pool         *workqueue.Pool
	cfg          config.DedupConfig
	logger       *zap.Logger
}

// NewScanService creates a new ScanService.
func NewScanService(
	propertyRepo repositories.PropertyRepository,
	hashRepo repositories.MediaHashRepository,
	evaluator MatchEvaluator,
	groups GroupService,
	lock ScanLock,
	cfg config.DedupConfig,
	logger *zap.Logger,
) ScanService {
	return &scanService{
		propertyRepo: propertyRepo,
		hashRepo:     hashRepo,
		evaluator:    evaluator,
		groups:       groups,
		lock:         lock,
		pool:         workqueue.New(cfg.Workers, logger),
		cfg:          cfg,
		logger:       logger.Named("scan"),
	}
}

var _ ScanService = (*scanService)(nil)

func (s *scanService) Scan(ctx context.Context, req ScanRequest) (*ScanSummary, error) {
	release, err := s.lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ScanTimeout())
	defer cancel()

	records, err := s.fetchBatch(ctx, req)
	if err != nil {
		return nil, err
	}

	summary := &ScanSummary{RecordsScanned: len(records), TopMatches: []*models.MatchResult{}}
	if len(records) < 2 {
		return summary, nil
	}

	matches, err := s.compareAllPairs(ctx, records, req)
	if err != nil {
		return nil, err
	}
	summary.MatchesFound = len(matches)

	// The pairwise stage above is read-only; persistence starts here, after
	// the barrier, highest confidence first.
	formation, err := s.groups.FormGroups(ctx, matches)
	if formation != nil {
		summary.GroupsCreated = formation.Created
		summary.GroupsSkipped = formation.Skipped
		summary.GroupsFailed = formation.Failed
	}
	if err != nil {
		// Partial persistence failure still yields a summary; the counts
		// tell the caller what made it through.
		s.logger.Error("Group formation aborted", zap.Error(err))
	}

	top := len(matches)
	if s.cfg.TopMatches > 0 && top > s.cfg.TopMatches {
		top = s.cfg.TopMatches
	}
	summary.TopMatches = matches[:top]

	s.logger.Info("Scan complete",
		zap.Int("records", summary.RecordsScanned),
		zap.Int("matches", summary.MatchesFound),
		zap.Int("groups_created", summary.GroupsCreated),
		zap.Int("groups_skipped", summary.GroupsSkipped),
		zap.Int("groups_failed", summary.GroupsFailed))

	return summary, nil
}

// fetchBatch loads the record batch and attaches perceptual hashes in a
// single lookup for the whole batch. Per-pair hash queries would turn the
// quadratic comparison into a quadratic number of round trips.
func (s *scanService) fetchBatch(ctx context.Context, req ScanRequest) ([]*models.PropertyRecord, error) {
	records, err := s.propertyRepo.ListBatch(ctx, repositories.BatchFilter{
		CreatedAfter: req.CreatedAfter,
		OwnerID:      req.OwnerID,
		Status:       req.Status,
		Limit:        s.cfg.BatchLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch record batch: %w", err)
	}
	if len(records) == 0 {
		return records, nil
	}

	ids := make([]uuid.UUID, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	hashesByURL, err := s.hashRepo.GetByRecordIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch media hashes: %w", err)
	}

	for _, rec := range records {
		for _, asset := range rec.Media {
			asset.Hashes = hashesByURL[asset.URL]
		}
	}
	return records, nil
}

// compareAllPairs evaluates every unordered pair exactly once. The scan is
// quadratic in the batch size; there is no blocking key to prune candidate
// pairs, which is acceptable at the configured batch limits.
func (s *scanService) compareAllPairs(ctx context.Context, records []*models.PropertyRecord, req ScanRequest) ([]*models.MatchResult, error) {
	threshold := s.cfg.MinConfidence
	if req.MinConfidence != nil && *req.MinConfidence > threshold {
		threshold = *req.MinConfidence
	}
	includeSameOwner := s.cfg.IncludeSameOwner
	if req.IncludeSameOwner != nil {
		includeSameOwner = *req.IncludeSameOwner
	}

	var mu sync.Mutex
	var matches []*models.MatchResult

	// One task per left-hand record keeps the task count linear while the
	// pair work stays evenly spread across the pool.
	tasks := make([]workqueue.Task, 0, len(records)-1)
	for i := 0; i < len(records)-1; i++ {
		left := records[i]
		rest := records[i+1:]
		tasks = append(tasks, workqueue.TaskFunc{
			Label: fmt.Sprintf("compare:%s", left.ID),
			Fn: func(ctx context.Context) error {
				var local []*models.MatchResult
				for _, right := range rest {
					if err := ctx.Err(); err != nil {
						return err
					}
					match := s.evaluator.Evaluate(left, right, includeSameOwner)
					if match == nil || match.Confidence < threshold {
						continue
					}
					local = append(local, match)
				}
				if len(local) > 0 {
					mu.Lock()
					matches = append(matches, local...)
					mu.Unlock()
				}
				return nil
			},
		})
	}

	if err := s.pool.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("pairwise comparison: %w", err)
	}

	sortMatches(matches)
	return matches, nil
}

// sortMatches orders by descending confidence with a record-id tiebreak so
// repeated scans over the same batch are deterministic.
func sortMatches(matches []*models.MatchResult) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		if matches[i].RecordA != matches[j].RecordA {
			return matches[i].RecordA.String() < matches[j].RecordA.String()
		}
		return matches[i].RecordB.String() < matches[j].RecordB.String()
	})
}
