package models

import "github.com/google/uuid"

// Reason tags explain why a field score crossed a human-meaningful threshold.
const (
	ReasonIdenticalTitle   = "identical_title"
	ReasonVerySimilarTitle = "very_similar_title"
	ReasonSimilarTitle     = "similar_title"

	ReasonIdenticalAddress   = "identical_address"
	ReasonVerySimilarAddress = "very_similar_address"
	ReasonSimilarAddress     = "similar_address"

	ReasonIdenticalSpecs = "identical_specifications"
	ReasonSimilarSpecs   = "similar_specifications"

	ReasonVerySimilarDescription = "very_similar_description"
	ReasonSimilarDescription     = "similar_description"

	ReasonIdenticalImages = "identical_images"
	ReasonSimilarImages   = "similar_images"
)

// FieldScore is one comparison dimension's result: a similarity in [0,1]
// plus zero or more reason tags.
type FieldScore struct {
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

// FieldBreakdown carries the per-field scores behind a match.
// Description is nil when either record has no free text; its weight is
// deliberately not redistributed in that case.
type FieldBreakdown struct {
	Title       FieldScore  `json:"title"`
	Address     FieldScore  `json:"address"`
	Specs       FieldScore  `json:"specs"`
	Description *FieldScore `json:"description,omitempty"`
	Media       FieldScore  `json:"media"`
}

// MatchResult is one unordered pair of records the evaluator considers a
// duplicate candidate. It is computation-local and never persisted directly.
type MatchResult struct {
	RecordA    uuid.UUID      `json:"record_a"`
	RecordB    uuid.UUID      `json:"record_b"`
	Confidence float64        `json:"confidence"`
	Reasons    []string       `json:"reasons"`
	Fields     FieldBreakdown `json:"fields"`
}
