package services

import (
	"math"
	"strings"

	"github.com/hausradar/dedup-engine/pkg/models"
	"github.com/hausradar/dedup-engine/pkg/similarity"
)

// Spec field weights. Fields missing on either side are excluded from both
// the numerator and the denominator, so absent data never penalizes a pair.
const (
	specWeightBedrooms  = 0.25
	specWeightBathrooms = 0.15
	specWeightArea      = 0.30
	specWeightPrice     = 0.30

	// Partial credit for "close" values. The ratios to the full weights
	// are intentionally uneven: a near-miss on price is weaker evidence
	// than a near-miss on floor area.
	specCloseBedrooms  = 0.15
	specCloseBathrooms = 0.10
	specCloseArea      = 0.25
	specClosePrice     = 0.15
)

// compareTitles scores the two listing titles.
func compareTitles(a, b *models.PropertyRecord) models.FieldScore {
	score := similarity.Text(a.Title, b.Title)
	fs := models.FieldScore{Score: score}
	switch {
	case score >= 0.95:
		fs.Reasons = append(fs.Reasons, models.ReasonIdenticalTitle)
	case score >= 0.8:
		fs.Reasons = append(fs.Reasons, models.ReasonVerySimilarTitle)
	case score >= 0.6:
		fs.Reasons = append(fs.Reasons, models.ReasonSimilarTitle)
	}
	return fs
}

// compareAddresses blends a component-weighted score (street 0.4, number
// bonus 0.2, city 0.3, postal code 0.1, normalized to the weights actually
// present) with a whole-address Jaro-Winkler pass at 0.3/0.7.
func compareAddresses(a, b *models.PropertyRecord) models.FieldScore {
	var weighted, weightSum float64

	if a.StreetName != "" && b.StreetName != "" {
		weighted += similarity.Text(a.StreetName, b.StreetName) * 0.4
		weightSum += 0.4

		if a.StreetNumber != "" && b.StreetNumber != "" {
			if similarity.Normalize(a.StreetNumber) == similarity.Normalize(b.StreetNumber) {
				weighted += 0.2
			}
			weightSum += 0.2
		}
	}
	if a.City != "" && b.City != "" {
		weighted += similarity.Text(a.City, b.City) * 0.3
		weightSum += 0.3
	}
	if a.PostalCode != "" && b.PostalCode != "" {
		if similarity.Normalize(a.PostalCode) == similarity.Normalize(b.PostalCode) {
			weighted += 0.1
		}
		weightSum += 0.1
	}

	whole := similarity.JaroWinkler(fullAddress(a), fullAddress(b))

	var score float64
	if weightSum > 0 {
		score = 0.7*(weighted/weightSum) + 0.3*whole
	} else {
		score = whole
	}
	score = clamp01(score)

	fs := models.FieldScore{Score: score}
	switch {
	case score >= 0.95:
		fs.Reasons = append(fs.Reasons, models.ReasonIdenticalAddress)
	case score >= 0.8:
		fs.Reasons = append(fs.Reasons, models.ReasonVerySimilarAddress)
	case score >= 0.6:
		fs.Reasons = append(fs.Reasons, models.ReasonSimilarAddress)
	}
	return fs
}

func fullAddress(r *models.PropertyRecord) string {
	parts := []string{r.StreetNumber, r.StreetName, r.City, r.PostalCode}
	return similarity.Normalize(strings.Join(parts, " "))
}

// compareSpecs scores the numeric specifications present on both records.
func compareSpecs(a, b *models.PropertyRecord) models.FieldScore {
	var earned, weightSum float64

	if a.Bedrooms != nil && b.Bedrooms != nil {
		weightSum += specWeightBedrooms
		switch delta := absInt(*a.Bedrooms - *b.Bedrooms); {
		case delta == 0:
			earned += specWeightBedrooms
		case delta == 1:
			earned += specCloseBedrooms
		}
	}
	if a.Bathrooms != nil && b.Bathrooms != nil {
		weightSum += specWeightBathrooms
		switch delta := absInt(*a.Bathrooms - *b.Bathrooms); {
		case delta == 0:
			earned += specWeightBathrooms
		case delta == 1:
			earned += specCloseBathrooms
		}
	}
	if a.FloorAreaSqm != nil && b.FloorAreaSqm != nil {
		weightSum += specWeightArea
		switch {
		case *a.FloorAreaSqm == *b.FloorAreaSqm:
			earned += specWeightArea
		case withinPercentOfAverage(*a.FloorAreaSqm, *b.FloorAreaSqm, 0.05):
			earned += specCloseArea
		}
	}
	if priceA, priceB, ok := comparablePrice(a, b); ok {
		weightSum += specWeightPrice
		switch {
		case priceA == priceB:
			earned += specWeightPrice
		case withinPercentOfAverage(priceA, priceB, 0.10):
			earned += specClosePrice
		}
	}

	fs := models.FieldScore{}
	if weightSum > 0 {
		fs.Score = earned / weightSum
	}
	switch {
	case fs.Score >= 0.9:
		fs.Reasons = append(fs.Reasons, models.ReasonIdenticalSpecs)
	case fs.Score >= 0.7:
		fs.Reasons = append(fs.Reasons, models.ReasonSimilarSpecs)
	}
	return fs
}

// comparablePrice returns the first price period populated on both records,
// monthly preferred over weekly over daily.
func comparablePrice(a, b *models.PropertyRecord) (float64, float64, bool) {
	switch {
	case a.PriceMonthly != nil && b.PriceMonthly != nil:
		return *a.PriceMonthly, *b.PriceMonthly, true
	case a.PriceWeekly != nil && b.PriceWeekly != nil:
		return *a.PriceWeekly, *b.PriceWeekly, true
	case a.PriceDaily != nil && b.PriceDaily != nil:
		return *a.PriceDaily, *b.PriceDaily, true
	}
	return 0, 0, false
}

// compareDescriptions only applies when both records carry free text; the
// caller treats a nil result as "no evidence".
func compareDescriptions(a, b *models.PropertyRecord) *models.FieldScore {
	if strings.TrimSpace(a.Description) == "" || strings.TrimSpace(b.Description) == "" {
		return nil
	}
	score := similarity.Text(a.Description, b.Description)
	fs := &models.FieldScore{Score: score}
	switch {
	case score >= 0.8:
		fs.Reasons = append(fs.Reasons, models.ReasonVerySimilarDescription)
	case score >= 0.6:
		fs.Reasons = append(fs.Reasons, models.ReasonSimilarDescription)
	}
	return fs
}

// compareMedia compares every asset pair across the two records. Identical
// URLs count as exact matches outright; otherwise perceptual hashes of a
// shared algorithm decide, and only when no shared algorithm exists does the
// filename fallback apply.
func compareMedia(a, b *models.PropertyRecord) models.FieldScore {
	if len(a.Media) == 0 || len(b.Media) == 0 {
		return models.FieldScore{}
	}

	exactMatches := 0
	maxDiscounted := 0.0

	for _, ma := range a.Media {
		for _, mb := range b.Media {
			if ma.URL != "" && ma.URL == mb.URL {
				exactMatches++
				continue
			}

			if sim, ok := bestHashSimilarity(ma, mb); ok {
				if sim > 0.95 {
					exactMatches++
				} else if sim > 0.8 {
					if d := sim * 0.8; d > maxDiscounted {
						maxDiscounted = d
					}
				}
				continue
			}

			if sim := similarity.Text(fileName(ma.URL), fileName(mb.URL)); sim > 0.9 {
				if d := sim * 0.6; d > maxDiscounted {
					maxDiscounted = d
				}
			}
		}
	}

	var score float64
	if exactMatches > 0 {
		smaller := len(a.Media)
		if len(b.Media) < smaller {
			smaller = len(b.Media)
		}
		score = math.Min(float64(exactMatches)/float64(smaller)*1.2, 1.0)
	} else {
		score = math.Min(maxDiscounted, 1.0)
	}

	fs := models.FieldScore{Score: score}
	switch {
	case score >= 0.9:
		fs.Reasons = append(fs.Reasons, models.ReasonIdenticalImages)
	case score >= 0.7:
		fs.Reasons = append(fs.Reasons, models.ReasonSimilarImages)
	}
	return fs
}

// bestHashSimilarity returns the highest similarity across hash algorithms
// the two assets share, and whether any shared algorithm existed at all.
func bestHashSimilarity(a, b *models.MediaAsset) (float64, bool) {
	best := 0.0
	shared := false
	for _, ha := range a.Hashes {
		hb, ok := b.Hash(ha.Algorithm)
		if !ok || len(ha.Value) == 0 {
			continue
		}
		shared = true
		dist := similarity.HammingDistance(ha.Value, hb.Value)
		sim := 1 - float64(dist)/float64(len(ha.Value))
		if sim > best {
			best = sim
		}
	}
	return best, shared
}

// fileName extracts the last path segment of a media URL.
func fileName(url string) string {
	if idx := strings.LastIndex(url, "/"); idx >= 0 {
		return url[idx+1:]
	}
	return url
}

func withinPercentOfAverage(a, b, pct float64) bool {
	avg := (a + b) / 2
	if avg == 0 {
		return false
	}
	return math.Abs(a-b) <= avg*pct
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
