package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hausradar/dedup-engine/pkg/database"
	"github.com/hausradar/dedup-engine/pkg/models"
)

// MediaHashRepository reads precomputed perceptual hashes from the hash
// store. Hashes are keyed by media URL; the hash pipeline that produces them
// lives outside this engine.
type MediaHashRepository interface {
	// GetByRecordIDs returns all hashes for the given records in a single
	// round trip, keyed by media URL. A scan calls this once per batch, not
	// per pair.
	GetByRecordIDs(ctx context.Context, recordIDs []uuid.UUID) (map[string][]models.MediaHash, error)
}

type mediaHashRepository struct {
	db *database.DB
}

// NewMediaHashRepository creates a new MediaHashRepository.
func NewMediaHashRepository(db *database.DB) MediaHashRepository {
	return &mediaHashRepository{db: db}
}

var _ MediaHashRepository = (*mediaHashRepository)(nil)

func (r *mediaHashRepository) GetByRecordIDs(ctx context.Context, recordIDs []uuid.UUID) (map[string][]models.MediaHash, error) {
	hashes := make(map[string][]models.MediaHash)
	if len(recordIDs) == 0 {
		return hashes, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT media_url, hash_algorithm, hash_value
		FROM media_hashes
		WHERE property_id = ANY($1)`, recordIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query media hashes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		var hash models.MediaHash
		if err := rows.Scan(&url, &hash.Algorithm, &hash.Value); err != nil {
			return nil, fmt.Errorf("failed to scan media hash: %w", err)
		}
		hashes[url] = append(hashes[url], hash)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media hashes: %w", err)
	}

	return hashes, nil
}
