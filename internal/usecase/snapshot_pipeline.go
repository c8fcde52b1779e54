package usecase

import (
	"context"
	"time"

	"CoinSink/internal/domain/models"
	drepo "CoinSink/internal/domain/repository"
	"CoinSink/internal/transform"
	"CoinSink/internal/validate"
	"CoinSink/pkg/logger"
)

// SnapshotPipeline runs one raw snapshot through validate, normalize and
// load. It is the single entry point for snapshot processing regardless of
// whether the snapshot arrived from a live fetch, the bus or a replay.
type SnapshotPipeline struct {
	loader  *SnapshotLoader
	metrics drepo.Metrics
	log     *logger.Logger
}

func NewSnapshotPipeline(loader *SnapshotLoader, metrics drepo.Metrics, log *logger.Logger) *SnapshotPipeline {
	return &SnapshotPipeline{loader: loader, metrics: metrics, log: log}
}

// Process transforms and loads one snapshot. Per-record problems never fail
// the snapshot: rejects and coercion failures are counted and the remaining
// rows still load. Only a storage failure propagates as an error.
func (p *SnapshotPipeline) Process(ctx context.Context, snap *models.RawSnapshot) (models.LoadResult, error) {
	start := time.Now()
	p.metrics.RecordFetched(len(snap.Records))

	valid, rejectedRecords := validate.Validate(snap.Records)
	for _, rej := range rejectedRecords {
		p.metrics.RecordRejected(string(rej.Reason))
		p.log.Warn("record rejected",
			logger.Int("index", rej.Index),
			logger.String("reason", string(rej.Reason)))
	}

	batch := transform.Normalize(valid, snap.FetchedAt)
	if batch.CoercionFailures > 0 {
		p.metrics.RecordCoercionFailures(batch.CoercionFailures)
		p.log.Warn("coercion failures in batch",
			logger.Time("snapshot_time", batch.FetchedAt),
			logger.Int("failures", batch.CoercionFailures))
	}

	result, err := p.loader.Load(ctx, batch)
	if err != nil {
		return models.LoadResult{}, err
	}

	result.Rejected += len(rejectedRecords)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())
	return result, nil
}
