package services

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hausradar/dedup-engine/pkg/models"
)

// newListing builds a fully populated record. Tests mutate the fields they
// care about.
func newListing(ownerID uuid.UUID) *models.PropertyRecord {
	return &models.PropertyRecord{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Title:        "Bright two bedroom flat near the park",
		Description:  "Recently renovated flat with balcony, five minutes from the station.",
		StreetName:   "Rosenthaler Strasse",
		StreetNumber: "41",
		City:         "Berlin",
		PostalCode:   "10178",
		Bedrooms:     intPtr(2),
		Bathrooms:    intPtr(1),
		FloorAreaSqm: floatPtr(68),
		PriceMonthly: floatPtr(1450),
		Status:       models.PropertyStatusActive,
		Media: []*models.MediaAsset{
			{URL: "https://cdn.example.com/listings/41-rosenthaler/living.jpg"},
		},
	}
}

func TestEvaluateIdenticalListings(t *testing.T) {
	evaluator := NewMatchEvaluator()

	a := newListing(uuid.New())
	b := newListing(uuid.New())

	match := evaluator.Evaluate(a, b, false)
	require.NotNil(t, match)
	assert.Equal(t, 1.0, match.Confidence)
	assert.Contains(t, match.Reasons, models.ReasonIdenticalTitle)
	assert.Contains(t, match.Reasons, models.ReasonIdenticalAddress)
	assert.Contains(t, match.Reasons, models.ReasonIdenticalSpecs)
	assert.Equal(t, a.ID, match.RecordA)
	assert.Equal(t, b.ID, match.RecordB)
}

func TestEvaluateSameRecordRejected(t *testing.T) {
	evaluator := NewMatchEvaluator()
	a := newListing(uuid.New())

	assert.Nil(t, evaluator.Evaluate(a, a, false))
	assert.Nil(t, evaluator.Evaluate(a, a, true), "same id is rejected even on administrative scans")
}

func TestEvaluateSameOwnerExcludedByDefault(t *testing.T) {
	evaluator := NewMatchEvaluator()
	owner := uuid.New()

	a := newListing(owner)
	b := newListing(owner)

	assert.Nil(t, evaluator.Evaluate(a, b, false))
	assert.NotNil(t, evaluator.Evaluate(a, b, true))
}

func TestEvaluateStrongAddressIndicator(t *testing.T) {
	evaluator := NewMatchEvaluator()

	// Same unit relisted with a rewritten title and a 30% higher rent. The
	// identical address alone must keep the pair on the radar.
	a := newListing(uuid.New())
	a.Title = "Charming flat in Mitte"
	a.Description = ""
	a.PriceMonthly = floatPtr(1000)

	b := newListing(uuid.New())
	b.Title = "Spacious renovated apartment with balcony"
	b.Description = ""
	b.PriceMonthly = floatPtr(1300)

	match := evaluator.Evaluate(a, b, false)
	require.NotNil(t, match)
	assert.GreaterOrEqual(t, match.Fields.Address.Score, 0.95)
	assert.Less(t, match.Confidence, highConfidenceThreshold)
	assert.Contains(t, match.Reasons, models.ReasonIdenticalAddress)
}

func TestEvaluateUnrelatedListingsRejected(t *testing.T) {
	evaluator := NewMatchEvaluator()

	a := newListing(uuid.New())

	b := &models.PropertyRecord{
		ID:           uuid.New(),
		OwnerID:      uuid.New(),
		Title:        "Rural cottage with garden",
		Description:  "Quiet countryside living, large plot, wood stove.",
		StreetName:   "Old Mill Lane",
		StreetNumber: "3",
		City:         "Norwich",
		PostalCode:   "NR1 1AA",
		Bedrooms:     intPtr(4),
		Bathrooms:    intPtr(3),
		FloorAreaSqm: floatPtr(210),
		PriceMonthly: floatPtr(2900),
	}

	assert.Nil(t, evaluator.Evaluate(a, b, false))
}

func TestEvaluateMissingDescriptionSuppressesConfidence(t *testing.T) {
	evaluator := NewMatchEvaluator()

	a := newListing(uuid.New())
	b := newListing(uuid.New())
	a.Description = ""
	b.Description = ""

	match := evaluator.Evaluate(a, b, false)
	require.NotNil(t, match)
	assert.Nil(t, match.Fields.Description)
	// The description weight stays empty rather than being redistributed.
	assert.InDelta(t, 0.90, match.Confidence, 1e-9)
}

func TestEvaluateConfidenceRounded(t *testing.T) {
	evaluator := NewMatchEvaluator()

	a := newListing(uuid.New())
	b := newListing(uuid.New())
	b.Title = "Bright two bedroom flat close to the park"
	b.FloorAreaSqm = floatPtr(70)

	match := evaluator.Evaluate(a, b, false)
	require.NotNil(t, match)
	assert.Equal(t, match.Confidence, math.Round(match.Confidence*10000)/10000)
}

func TestShouldEmitRules(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		reasons    []string
		fields     models.FieldBreakdown
		want       bool
	}{
		{
			name:       "high confidence alone",
			confidence: 0.86,
			want:       true,
		},
		{
			name:       "medium confidence needs two reasons",
			confidence: 0.72,
			reasons:    []string{models.ReasonSimilarTitle},
			want:       false,
		},
		{
			name:       "medium confidence with two reasons",
			confidence: 0.72,
			reasons:    []string{models.ReasonSimilarTitle, models.ReasonSimilarAddress},
			want:       true,
		},
		{
			name:       "strong title and address pair",
			confidence: 0.60,
			fields: models.FieldBreakdown{
				Title:   models.FieldScore{Score: 0.82},
				Address: models.FieldScore{Score: 0.81},
			},
			want: true,
		},
		{
			name:       "near-identical media alone",
			confidence: 0.40,
			fields: models.FieldBreakdown{
				Media: models.FieldScore{Score: 0.92},
			},
			want: true,
		},
		{
			name:       "weak everything",
			confidence: 0.55,
			reasons:    []string{models.ReasonSimilarTitle, models.ReasonSimilarSpecs},
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldEmit(tt.confidence, tt.reasons, tt.fields))
		})
	}
}
