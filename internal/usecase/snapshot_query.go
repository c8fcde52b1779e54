package usecase

import (
	"context"
	"errors"
	"time"

	"CoinSink/internal/domain/models"
	drepo "CoinSink/internal/domain/repository"
	"CoinSink/pkg/cache"
	"CoinSink/pkg/logger"
)

const latestCacheKey = "snapshot:latest"

// SnapshotQuery is the read facade. The latest view is cached briefly since
// it is the hot endpoint and only changes once per fetch cycle; history and
// as-of reads go straight to the store.
type SnapshotQuery struct {
	reader drepo.SnapshotReader
	cache  cache.Service
	ttl    time.Duration
	log    *logger.Logger
}

func NewSnapshotQuery(reader drepo.SnapshotReader, c cache.Service, ttl time.Duration, log *logger.Logger) *SnapshotQuery {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SnapshotQuery{reader: reader, cache: c, ttl: ttl, log: log}
}

// LatestSnapshot returns the newest row per entity. An empty store yields an
// empty slice, not an error.
func (q *SnapshotQuery) LatestSnapshot(ctx context.Context) ([]models.CanonicalRow, error) {
	var cached []models.CanonicalRow
	if err := q.cache.Get(ctx, latestCacheKey, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		q.log.Warn("latest snapshot cache read failed", logger.Error(err))
	}

	rows, err := q.reader.LatestSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	if err := q.cache.Set(ctx, latestCacheKey, rows, q.ttl); err != nil {
		q.log.Warn("latest snapshot cache write failed", logger.Error(err))
	}
	return rows, nil
}

// History returns all rows for one entity, oldest first. Unknown entities
// surface repository.ErrNotFound.
func (q *SnapshotQuery) History(ctx context.Context, entityID string) ([]models.CanonicalRow, error) {
	return q.reader.History(ctx, entityID)
}

// AsOf returns, per entity, the newest row at or before ts. Entities with no
// row that old are absent from the result.
func (q *SnapshotQuery) AsOf(ctx context.Context, ts time.Time) ([]models.CanonicalRow, error) {
	return q.reader.AsOf(ctx, ts)
}
