package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hausradar/dedup-engine/pkg/database"
	"github.com/hausradar/dedup-engine/pkg/models"
)

// BatchFilter narrows the record batch a scan operates on.
type BatchFilter struct {
	CreatedAfter *time.Time
	OwnerID      *uuid.UUID
	Status       string
	Limit        int
}

// PropertyRepository provides read access to the listing records the engine
// compares. The engine never writes to these tables; applying a merge
// decision is the listing service's responsibility.
type PropertyRepository interface {
	// ListBatch returns a filtered batch of property records with their
	// media assets attached, ordered by creation time.
	ListBatch(ctx context.Context, filter BatchFilter) ([]*models.PropertyRecord, error)
}

type propertyRepository struct {
	db *database.DB
}

// NewPropertyRepository creates a new PropertyRepository.
func NewPropertyRepository(db *database.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

var _ PropertyRepository = (*propertyRepository)(nil)

func (r *propertyRepository) ListBatch(ctx context.Context, filter BatchFilter) ([]*models.PropertyRecord, error) {
	query := `
		SELECT id, owner_id, title, description,
		       street_name, street_number, city, postal_code,
		       bedrooms, bathrooms, floor_area_sqm,
		       price_monthly, price_weekly, price_daily,
		       status, created_at
		FROM property_records
		WHERE 1=1`

	args := []any{}
	argN := 1

	if filter.CreatedAfter != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argN)
		args = append(args, *filter.CreatedAfter)
		argN++
	}
	if filter.OwnerID != nil {
		query += fmt.Sprintf(" AND owner_id = $%d", argN)
		args = append(args, *filter.OwnerID)
		argN++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, filter.Status)
		argN++
	}

	query += " ORDER BY created_at"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argN)
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query property records: %w", err)
	}
	defer rows.Close()

	var records []*models.PropertyRecord
	byID := make(map[uuid.UUID]*models.PropertyRecord)
	for rows.Next() {
		rec := &models.PropertyRecord{}
		err := rows.Scan(
			&rec.ID, &rec.OwnerID, &rec.Title, &rec.Description,
			&rec.StreetName, &rec.StreetNumber, &rec.City, &rec.PostalCode,
			&rec.Bedrooms, &rec.Bathrooms, &rec.FloorAreaSqm,
			&rec.PriceMonthly, &rec.PriceWeekly, &rec.PriceDaily,
			&rec.Status, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property record: %w", err)
		}
		records = append(records, rec)
		byID[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating property records: %w", err)
	}

	if len(records) == 0 {
		return records, nil
	}

	if err := r.attachMedia(ctx, byID); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *propertyRepository) attachMedia(ctx context.Context, byID map[uuid.UUID]*models.PropertyRecord) error {
	ids := make([]uuid.UUID, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	rows, err := r.db.Query(ctx, `
		SELECT property_id, url, kind
		FROM property_media
		WHERE property_id = ANY($1)
		ORDER BY property_id, position`, ids)
	if err != nil {
		return fmt.Errorf("failed to query property media: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var propertyID uuid.UUID
		asset := &models.MediaAsset{}
		if err := rows.Scan(&propertyID, &asset.URL, &asset.Kind); err != nil {
			return fmt.Errorf("failed to scan media asset: %w", err)
		}
		if rec, ok := byID[propertyID]; ok {
			rec.Media = append(rec.Media, asset)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating media assets: %w", err)
	}
	return nil
}
