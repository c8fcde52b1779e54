package usecase

import (
	"context"
	"fmt"

	"CoinSink/internal/domain/models"
	drepo "CoinSink/internal/domain/repository"
	"CoinSink/pkg/logger"
)

// SnapshotLoader is the dedup and upsert engine between normalized batches
// and the store. It never trusts its input: rows that slipped past upstream
// validation are rejected again here, and duplicate keys inside one batch
// collapse to the last occurrence before anything touches storage.
type SnapshotLoader struct {
	store   drepo.SnapshotStore
	metrics drepo.Metrics
	log     *logger.Logger
}

func NewSnapshotLoader(store drepo.SnapshotStore, metrics drepo.Metrics, log *logger.Logger) *SnapshotLoader {
	return &SnapshotLoader{store: store, metrics: metrics, log: log}
}

// Load applies one batch atomically. Returned counts are exact: inserted is
// rows with new keys, updated is rows whose key existed with different
// content, and identical re-deliveries count as neither. On storage failure
// nothing is applied and the error carries ErrStorageUnavailable.
func (l *SnapshotLoader) Load(ctx context.Context, batch models.Batch) (models.LoadResult, error) {
	rows, rejected := l.sanitize(batch.Rows)

	result := models.LoadResult{Rejected: rejected}
	if len(rows) == 0 {
		return result, nil
	}

	inserted, updated, err := l.store.UpsertBatch(ctx, rows)
	if err != nil {
		l.metrics.RecordError("load")
		return models.LoadResult{}, fmt.Errorf("load batch: %w", err)
	}

	result.Inserted = inserted
	result.Updated = updated
	l.metrics.RecordRowsLoaded(inserted, updated)

	l.log.Info("batch loaded",
		logger.Time("snapshot_time", batch.FetchedAt),
		logger.Int("inserted", inserted),
		logger.Int("updated", updated),
		logger.Int("rejected", rejected))
	return result, nil
}

// sanitize drops rows missing their key fields and collapses in-batch key
// duplicates, last occurrence wins. Surviving rows keep the position of the
// key's first appearance so output stays deterministic.
func (l *SnapshotLoader) sanitize(rows []models.CanonicalRow) ([]models.CanonicalRow, int) {
	rejected := 0
	position := make(map[string]int, len(rows))
	out := make([]models.CanonicalRow, 0, len(rows))

	for _, row := range rows {
		if row.EntityID == "" || row.SnapshotTime.IsZero() {
			rejected++
			l.metrics.RecordRejected("invalid_row")
			continue
		}
		key := row.EntityID + "|" + row.SnapshotTime.UTC().Format("20060102150405.000")
		if idx, seen := position[key]; seen {
			out[idx] = row
			continue
		}
		position[key] = len(out)
		out = append(out, row)
	}

	return out, rejected
}
