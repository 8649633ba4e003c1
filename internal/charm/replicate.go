// ABOUTME: Two-way replication between the local analysis store and the Charm mirror
// ABOUTME: Pushes newer local records and pulls records that only exist remotely
package charm

import (
	"context"
	"fmt"

	"github.com/harper/worldcafe/internal/models"
)

// LocalStore is the local side of a replication
type LocalStore interface {
	Find(ctx context.Context, q models.AnalysisQuery) ([]models.AnalysisRecord, error)
	Upsert(ctx context.Context, rec *models.AnalysisRecord) error
}

// ReplicationStats counts what one replication moved
type ReplicationStats struct {
	Pushed  int `json:"pushed"`
	Pulled  int `json:"pulled"`
	Skipped int `json:"skipped"`
}

// Replicate synchronizes one session's records in both directions.
// Pulled records get a fresh local updated_at from the store.
func Replicate(ctx context.Context, local LocalStore, mirror *Mirror, sessionID string) (ReplicationStats, error) {
	var stats ReplicationStats

	if err := mirror.Sync(); err != nil {
		return stats, err
	}

	localRecs, err := local.Find(ctx, models.AnalysisQuery{SessionID: sessionID})
	if err != nil {
		return stats, fmt.Errorf("failed to read local records: %w", err)
	}
	have := make(map[models.AnalysisKey]bool, len(localRecs))
	for _, rec := range localRecs {
		have[rec.Key] = true
		written, err := mirror.Put(rec)
		if err != nil {
			return stats, err
		}
		if written {
			stats.Pushed++
		} else {
			stats.Skipped++
		}
	}

	remote, err := mirror.List(sessionID)
	if err != nil {
		return stats, err
	}
	for i := range remote {
		rec := remote[i]
		if have[rec.Key] {
			continue
		}
		if err := local.Upsert(ctx, &rec); err != nil {
			return stats, fmt.Errorf("failed to store pulled record %s: %w", rec.Key, err)
		}
		stats.Pulled++
	}

	if stats.Pushed > 0 {
		if err := mirror.Sync(); err != nil {
			return stats, err
		}
	}
	return stats, nil
}
