package services

import (
	"math"

	"github.com/hausradar/dedup-engine/pkg/models"
)

// Confidence blend weights. The description weight is not redistributed when
// a pair has no comparable free text: a missing description mildly
// suppresses confidence rather than inflating the remaining fields.
const (
	confidenceWeightTitle       = 0.30
	confidenceWeightAddress     = 0.35
	confidenceWeightSpecs       = 0.20
	confidenceWeightDescription = 0.10
	confidenceWeightMedia       = 0.05
)

// Emission thresholds for the evaluator's own decision. Callers of the scan
// API may raise the bar further but never lower it below these.
const (
	highConfidenceThreshold   = 0.85
	mediumConfidenceThreshold = 0.70
)

// MatchEvaluator turns a pair of property records into a confidence score
// and a duplicate-candidate decision. Evaluation is pure: no I/O, no state.
type MatchEvaluator interface {
	// Evaluate compares two records and returns a MatchResult when the pair
	// qualifies as a duplicate candidate, or nil when it does not. Same-id
	// pairs are always rejected; same-owner pairs are rejected unless
	// includeSameOwner is set.
	Evaluate(a, b *models.PropertyRecord, includeSameOwner bool) *models.MatchResult
}

type matchEvaluator struct{}

// NewMatchEvaluator creates a new MatchEvaluator.
func NewMatchEvaluator() MatchEvaluator {
	return &matchEvaluator{}
}

var _ MatchEvaluator = (*matchEvaluator)(nil)

func (e *matchEvaluator) Evaluate(a, b *models.PropertyRecord, includeSameOwner bool) *models.MatchResult {
	if a.ID == b.ID {
		return nil
	}
	// A single landlord's legitimately near-identical units are not
	// duplicates; administrative full scans opt in explicitly.
	if !includeSameOwner && a.OwnerID == b.OwnerID {
		return nil
	}

	fields := models.FieldBreakdown{
		Title:       compareTitles(a, b),
		Address:     compareAddresses(a, b),
		Specs:       compareSpecs(a, b),
		Description: compareDescriptions(a, b),
		Media:       compareMedia(a, b),
	}

	confidence := confidenceWeightTitle*fields.Title.Score +
		confidenceWeightAddress*fields.Address.Score +
		confidenceWeightSpecs*fields.Specs.Score +
		confidenceWeightMedia*fields.Media.Score
	if fields.Description != nil {
		confidence += confidenceWeightDescription * fields.Description.Score
	}
	confidence = math.Round(confidence*10000) / 10000

	reasons := collectReasons(fields)

	if !shouldEmit(confidence, reasons, fields) {
		return nil
	}

	return &models.MatchResult{
		RecordA:    a.ID,
		RecordB:    b.ID,
		Confidence: confidence,
		Reasons:    reasons,
		Fields:     fields,
	}
}

// shouldEmit applies the three emission rules: high confidence on its own,
// medium confidence corroborated by at least two distinct reasons, or a
// strong single indicator that outweighs a moderate blend.
func shouldEmit(confidence float64, reasons []string, fields models.FieldBreakdown) bool {
	if confidence >= highConfidenceThreshold {
		return true
	}
	if confidence >= mediumConfidenceThreshold && len(reasons) >= 2 {
		return true
	}
	if fields.Title.Score >= 0.8 && fields.Address.Score >= 0.8 {
		return true
	}
	if fields.Address.Score >= 0.95 {
		return true
	}
	if fields.Media.Score >= 0.9 {
		return true
	}
	return false
}

func collectReasons(fields models.FieldBreakdown) []string {
	var reasons []string
	seen := make(map[string]struct{})
	add := func(tags []string) {
		for _, tag := range tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			reasons = append(reasons, tag)
		}
	}
	add(fields.Title.Reasons)
	add(fields.Address.Reasons)
	add(fields.Specs.Reasons)
	if fields.Description != nil {
		add(fields.Description.Reasons)
	}
	add(fields.Media.Reasons)
	return reasons
}
