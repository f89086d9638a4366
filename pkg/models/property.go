package models

import (
	"time"

	"github.com/google/uuid"
)

// PropertyStatus values for listing records.
const (
	PropertyStatusActive   = "active"
	PropertyStatusInactive = "inactive"
	PropertyStatusMerged   = "merged"
)

// MediaKind values for property media assets.
const (
	MediaKindPhoto     = "photo"
	MediaKindFloorplan = "floorplan"
)

// PropertyRecord is an immutable snapshot of a listing used for comparison.
// The engine never mutates these; a fresh batch is fetched per scan.
type PropertyRecord struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`

	StreetName   string `json:"street_name"`
	StreetNumber string `json:"street_number"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`

	// Numeric specs are optional; nil means the field was never entered
	// and contributes no evidence either way.
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Bathrooms    *int     `json:"bathrooms,omitempty"`
	FloorAreaSqm *float64 `json:"floor_area_sqm,omitempty"`
	PriceMonthly *float64 `json:"price_monthly,omitempty"`
	PriceWeekly  *float64 `json:"price_weekly,omitempty"`
	PriceDaily   *float64 `json:"price_daily,omitempty"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`

	Media []*MediaAsset `json:"media,omitempty"`
}

// MediaAsset is one photo or floorplan attached to a property record.
// Perceptual hashes are looked up from the hash store by URL and attached
// before comparison.
type MediaAsset struct {
	URL    string      `json:"url"`
	Kind   string      `json:"kind"`
	Hashes []MediaHash `json:"hashes,omitempty"`
}

// MediaHash is a precomputed perceptual hash of a media asset.
// The hash value is an opaque fixed-length binary string; the engine only
// compares values of the same algorithm bit by bit.
type MediaHash struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

// Hash returns the asset's hash for the given algorithm, if present.
func (m *MediaAsset) Hash(algorithm string) (MediaHash, bool) {
	for _, h := range m.Hashes {
		if h.Algorithm == algorithm {
			return h, true
		}
	}
	return MediaHash{}, false
}
