package repository

import (
	"context"
	"time"

	"CoinSink/internal/domain/models"
)

// MarketFetcher is the fetch collaborator boundary: one call returns one
// coherent snapshot of all tracked entities.
type MarketFetcher interface {
	FetchSnapshot(ctx context.Context) (*models.RawSnapshot, error)
}

// RawStore persists unmodified API payloads, append-only, keyed by fetch
// timestamp. Stored snapshots enable replay and backfill.
type RawStore interface {
	Save(ctx context.Context, snap *models.RawSnapshot) (string, error)
	Latest(ctx context.Context) (*models.RawSnapshot, error)
	All(ctx context.Context) ([]*models.RawSnapshot, error)
}

// SnapshotStore is the write capability over the analytical table. The dedup
// and upsert engine is its only caller. UpsertBatch applies all rows as one
// atomic unit keyed by (entity_id, snapshot_time): new keys insert, changed
// rows overwrite, identical rows are no-ops.
type SnapshotStore interface {
	Init(ctx context.Context) error
	UpsertBatch(ctx context.Context, rows []models.CanonicalRow) (inserted, updated int, err error)
	Health(ctx context.Context) error
	Close() error
}

// SnapshotReader is the read-only facade over committed rows.
type SnapshotReader interface {
	LatestSnapshot(ctx context.Context) ([]models.CanonicalRow, error)
	History(ctx context.Context, entityID string) ([]models.CanonicalRow, error)
	AsOf(ctx context.Context, ts time.Time) ([]models.CanonicalRow, error)
}

// SnapshotRepository groups both capabilities for backends that serve reads
// and writes from the same handle.
type SnapshotRepository interface {
	SnapshotStore
	SnapshotReader
}

// Publisher moves raw snapshots onto the bus when the kafka backend is on.
type Publisher interface {
	PublishSnapshot(ctx context.Context, snap *models.RawSnapshot) error
	Close() error
}

// Metrics is the observability sink for pipeline counters.
type Metrics interface {
	RecordFetched(records int)
	RecordRejected(reason string)
	RecordCoercionFailures(n int)
	RecordRowsLoaded(inserted, updated int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
