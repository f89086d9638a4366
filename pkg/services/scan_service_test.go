package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hausradar/dedup-engine/pkg/config"
	"github.com/hausradar/dedup-engine/pkg/models"
	"github.com/hausradar/dedup-engine/pkg/repositories"
)

// mockPropertyRepo implements repositories.PropertyRepository for testing.
type mockPropertyRepo struct {
	records []*models.PropertyRecord
	listErr error
}

func (m *mockPropertyRepo) ListBatch(_ context.Context, filter repositories.BatchFilter) ([]*models.PropertyRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if filter.Limit > 0 && len(m.records) > filter.Limit {
		return m.records[:filter.Limit], nil
	}
	return m.records, nil
}

// mockMediaHashRepo implements repositories.MediaHashRepository for testing.
type mockMediaHashRepo struct {
	hashesByURL map[string][]models.MediaHash
	getErr      error
}

func (m *mockMediaHashRepo) GetByRecordIDs(_ context.Context, _ []uuid.UUID) (map[string][]models.MediaHash, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.hashesByURL == nil {
		return map[string][]models.MediaHash{}, nil
	}
	return m.hashesByURL, nil
}

func scanTestConfig() config.DedupConfig {
	return config.DedupConfig{
		MinConfidence:      0.70,
		IncludeSameOwner:   false,
		Workers:            2,
		BatchLimit:         100,
		ScanTimeoutSeconds: 10,
		TopMatches:         20,
	}
}

func newScanFixture(records []*models.PropertyRecord) (ScanService, *mockGroupRepo) {
	groupRepo := &mockGroupRepo{}
	groups := NewGroupService(groupRepo, zap.NewNop())
	svc := NewScanService(
		&mockPropertyRepo{records: records},
		&mockMediaHashRepo{},
		NewMatchEvaluator(),
		groups,
		NewScanLock(nil, 0),
		scanTestConfig(),
		zap.NewNop(),
	)
	return svc, groupRepo
}

func TestScanFindsDuplicatePair(t *testing.T) {
	dupA := newListing(uuid.New())
	dupB := newListing(uuid.New())
	unrelated := newListing(uuid.New())
	unrelated.Title = "Studio near the harbour"
	unrelated.StreetName = "Hafenstrasse"
	unrelated.StreetNumber = "7"
	unrelated.City = "Hamburg"
	unrelated.PostalCode = "20359"
	unrelated.Bedrooms = intPtr(1)
	unrelated.FloorAreaSqm = floatPtr(31)
	unrelated.PriceMonthly = floatPtr(760)
	unrelated.Description = "Compact studio with harbour view."
	unrelated.Media = nil

	svc, groupRepo := newScanFixture([]*models.PropertyRecord{dupA, dupB, unrelated})

	summary, err := svc.Scan(context.Background(), ScanRequest{})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.RecordsScanned)
	assert.Equal(t, 1, summary.MatchesFound)
	assert.Equal(t, 1, summary.GroupsCreated)
	assert.Equal(t, 0, summary.GroupsSkipped)
	assert.Equal(t, 0, summary.GroupsFailed)

	require.Len(t, summary.TopMatches, 1)
	match := summary.TopMatches[0]
	assert.Equal(t, 1.0, match.Confidence)

	require.Len(t, groupRepo.groups, 1)
	assert.True(t, groupRepo.groups[0].HasMember(dupA.ID))
	assert.True(t, groupRepo.groups[0].HasMember(dupB.ID))
}

func TestScanIsIdempotent(t *testing.T) {
	records := []*models.PropertyRecord{newListing(uuid.New()), newListing(uuid.New())}
	svc, groupRepo := newScanFixture(records)

	first, err := svc.Scan(context.Background(), ScanRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.GroupsCreated)

	// Re-scanning the same batch finds the same match but must not stack a
	// second pending group on the same records.
	second, err := svc.Scan(context.Background(), ScanRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, second.MatchesFound)
	assert.Equal(t, 0, second.GroupsCreated)
	assert.Equal(t, 1, second.GroupsSkipped)
	assert.Equal(t, 1, groupRepo.pendingCount())
}

func TestScanFewerThanTwoRecords(t *testing.T) {
	svc, _ := newScanFixture([]*models.PropertyRecord{newListing(uuid.New())})

	summary, err := svc.Scan(context.Background(), ScanRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.RecordsScanned)
	assert.Equal(t, 0, summary.MatchesFound)
	assert.Empty(t, summary.TopMatches)
}

func TestScanSameOwnerPairs(t *testing.T) {
	owner := uuid.New()
	records := []*models.PropertyRecord{newListing(owner), newListing(owner)}

	svc, _ := newScanFixture(records)
	summary, err := svc.Scan(context.Background(), ScanRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.MatchesFound, "same-owner pairs are excluded by default")

	svc, _ = newScanFixture(records)
	summary, err = svc.Scan(context.Background(), ScanRequest{IncludeSameOwner: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.MatchesFound)
}

func TestScanMinConfidenceOnlyRaisesThreshold(t *testing.T) {
	records := []*models.PropertyRecord{newListing(uuid.New()), newListing(uuid.New())}
	records[1].Title = "Bright two bedroom flat close to the park"
	records[1].FloorAreaSqm = floatPtr(70)

	svc, _ := newScanFixture(records)
	summary, err := svc.Scan(context.Background(), ScanRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, summary.MatchesFound)
	baseline := summary.TopMatches[0].Confidence

	// A request above the pair's score filters it out.
	svc, _ = newScanFixture(records)
	summary, err = svc.Scan(context.Background(), ScanRequest{MinConfidence: floatPtr(baseline + 0.01)})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.MatchesFound)

	// A request below the configured default cannot lower the bar.
	svc, _ = newScanFixture(records)
	summary, err = svc.Scan(context.Background(), ScanRequest{MinConfidence: floatPtr(0.01)})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.MatchesFound)
}

func TestScanSummarySurvivesFormationFailure(t *testing.T) {
	groupRepo := &mockGroupRepo{createErr: errors.New("connection reset")}
	groups := NewGroupService(groupRepo, zap.NewNop())
	svc := NewScanService(
		&mockPropertyRepo{records: []*models.PropertyRecord{newListing(uuid.New()), newListing(uuid.New())}},
		&mockMediaHashRepo{},
		NewMatchEvaluator(),
		groups,
		NewScanLock(nil, 0),
		scanTestConfig(),
		zap.NewNop(),
	)

	summary, err := svc.Scan(context.Background(), ScanRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.MatchesFound)
	assert.Equal(t, 0, summary.GroupsCreated)
	assert.Equal(t, 1, summary.GroupsFailed)
	assert.Len(t, summary.TopMatches, 1)
}

func TestScanPropagatesBatchError(t *testing.T) {
	groups := NewGroupService(&mockGroupRepo{}, zap.NewNop())
	svc := NewScanService(
		&mockPropertyRepo{listErr: errors.New("connection reset")},
		&mockMediaHashRepo{},
		NewMatchEvaluator(),
		groups,
		NewScanLock(nil, 0),
		scanTestConfig(),
		zap.NewNop(),
	)

	_, err := svc.Scan(context.Background(), ScanRequest{})
	require.Error(t, err)
}

func TestScanAttachesMediaHashes(t *testing.T) {
	dupA := newListing(uuid.New())
	dupB := newListing(uuid.New())
	dupA.Media = []*models.MediaAsset{{URL: "https://cdn-a.example.com/1.jpg"}}
	dupB.Media = []*models.MediaAsset{{URL: "https://cdn-b.example.com/2.jpg"}}

	groupRepo := &mockGroupRepo{}
	groups := NewGroupService(groupRepo, zap.NewNop())
	svc := NewScanService(
		&mockPropertyRepo{records: []*models.PropertyRecord{dupA, dupB}},
		&mockMediaHashRepo{hashesByURL: map[string][]models.MediaHash{
			"https://cdn-a.example.com/1.jpg": {{Algorithm: "phash", Value: "abcdef00"}},
			"https://cdn-b.example.com/2.jpg": {{Algorithm: "phash", Value: "abcdef00"}},
		}},
		NewMatchEvaluator(),
		groups,
		NewScanLock(nil, 0),
		scanTestConfig(),
		zap.NewNop(),
	)

	summary, err := svc.Scan(context.Background(), ScanRequest{})
	require.NoError(t, err)

	require.Equal(t, 1, summary.MatchesFound)
	match := summary.TopMatches[0]
	assert.Equal(t, 1.0, match.Fields.Media.Score, "identical perceptual hashes should score as exact")
}

func TestSortMatchesDeterministic(t *testing.T) {
	idA := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	idB := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	idC := uuid.MustParse("00000000-0000-0000-0000-000000000003")

	matches := []*models.MatchResult{
		{RecordA: idB, RecordB: idC, Confidence: 0.9},
		{RecordA: idA, RecordB: idB, Confidence: 0.9},
		{RecordA: idA, RecordB: idC, Confidence: 0.95},
	}

	sortMatches(matches)

	assert.Equal(t, 0.95, matches[0].Confidence)
	assert.Equal(t, idA, matches[1].RecordA)
	assert.Equal(t, idB, matches[1].RecordB)
	assert.Equal(t, idB, matches[2].RecordA)
}
