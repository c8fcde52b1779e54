package usecase

import (
	"context"
	"time"

	drepo "CoinSink/internal/domain/repository"
	"CoinSink/pkg/logger"
)

// SnapshotCollector drives the fetch loop: pull a snapshot, persist the raw
// payload, then hand the snapshot to the pipeline or publish it on the bus.
// A failed cycle is logged and skipped; the loop itself never stops until
// the context does.
type SnapshotCollector struct {
	fetcher   drepo.MarketFetcher
	raw       drepo.RawStore
	pipeline  *SnapshotPipeline
	publisher drepo.Publisher // nil means process in-process
	interval  time.Duration
	replay    bool
	metrics   drepo.Metrics
	log       *logger.Logger
}

type CollectorOptions struct {
	Interval time.Duration
	Replay   bool
}

func NewSnapshotCollector(
	fetcher drepo.MarketFetcher,
	raw drepo.RawStore,
	pipeline *SnapshotPipeline,
	publisher drepo.Publisher,
	opts CollectorOptions,
	metrics drepo.Metrics,
	log *logger.Logger,
) *SnapshotCollector {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	return &SnapshotCollector{
		fetcher:   fetcher,
		raw:       raw,
		pipeline:  pipeline,
		publisher: publisher,
		interval:  opts.Interval,
		replay:    opts.Replay,
		metrics:   metrics,
		log:       log,
	}
}

// Run blocks until ctx is canceled. With replay on, every stored raw
// snapshot is pushed through the pipeline before live fetching starts, which
// rebuilds the analytical table from the raw archive.
func (c *SnapshotCollector) Run(ctx context.Context) error {
	if c.replay {
		if err := c.replayStored(ctx); err != nil {
			return err
		}
	}

	c.cycle(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("collector stopping")
			return ctx.Err()
		case <-ticker.C:
			c.cycle(ctx)
		}
	}
}

func (c *SnapshotCollector) cycle(ctx context.Context) {
	snap, err := c.fetcher.FetchSnapshot(ctx)
	if err != nil {
		c.metrics.RecordError("fetch")
		c.log.Error("fetch snapshot failed", logger.Error(err))
		return
	}

	path, err := c.raw.Save(ctx, snap)
	if err != nil {
		c.metrics.RecordError("raw_store")
		c.log.Error("save raw snapshot failed", logger.Error(err))
		return
	}
	c.log.Debug("raw snapshot stored", logger.String("path", path))

	if c.publisher != nil {
		if err := c.publisher.PublishSnapshot(ctx, snap); err != nil {
			c.metrics.RecordError("publish")
			c.log.Error("publish snapshot failed", logger.Error(err))
		}
		return
	}

	if _, err := c.pipeline.Process(ctx, snap); err != nil {
		c.log.Error("process snapshot failed", logger.Error(err))
	}
}

func (c *SnapshotCollector) replayStored(ctx context.Context) error {
	snaps, err := c.raw.All(ctx)
	if err != nil {
		return err
	}
	c.log.Info("replaying stored snapshots", logger.Int("count", len(snaps)))

	for _, snap := range snaps {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := c.pipeline.Process(ctx, snap); err != nil {
			// Idempotent loads make a retry from scratch safe.
			return err
		}
	}
	return nil
}
