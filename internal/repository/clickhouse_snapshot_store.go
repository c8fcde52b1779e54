package repository

import (
	"context"
	"fmt"
	"time"

	"CoinSink/internal/domain/models"
	drepo "CoinSink/internal/domain/repository"
	"CoinSink/pkg/clickhouse"
	"CoinSink/pkg/logger"
)

// ReplacingMergeTree collapses duplicate (entity_id, snapshot_time) keys to
// the row with the newest ingested_at. Writes therefore only ship rows that
// are new or actually changed; reads go through FINAL so not-yet-merged
// duplicates never surface.
var clickhouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS crypto_prices (
		entity_id                   String,
		symbol                      Nullable(String),
		name                        Nullable(String),
		current_price               Nullable(Float64),
		market_cap                  Nullable(Float64),
		market_cap_rank             Nullable(Int64),
		total_volume                Nullable(Float64),
		high_24h                    Nullable(Float64),
		low_24h                     Nullable(Float64),
		price_change_24h            Nullable(Float64),
		price_change_percentage_24h Nullable(Float64),
		last_updated                Nullable(DateTime64(3, 'UTC')),
		snapshot_time               DateTime64(3, 'UTC'),
		ingested_at                 DateTime64(3, 'UTC') DEFAULT now64(3)
	) ENGINE = ReplacingMergeTree(ingested_at)
	ORDER BY (entity_id, snapshot_time)`,
}

// ClickHouseSnapshotStore persists canonical rows in ClickHouse for larger
// deployments where the embedded file database does not fit.
type ClickHouseSnapshotStore struct {
	client *clickhouse.Client
	log    *logger.Logger
}

// NewClickHouseSnapshotStore wraps an open ClickHouse client.
func NewClickHouseSnapshotStore(client *clickhouse.Client, log *logger.Logger) *ClickHouseSnapshotStore {
	return &ClickHouseSnapshotStore{client: client, log: log}
}

func (s *ClickHouseSnapshotStore) Init(ctx context.Context) error {
	if err := s.client.InitSchema(ctx, clickhouseSchema); err != nil {
		return fmt.Errorf("%w: init schema: %v", drepo.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *ClickHouseSnapshotStore) UpsertBatch(ctx context.Context, rows []models.CanonicalRow) (int, int, error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}

	existing, err := s.existingForKeys(ctx, rows)
	if err != nil {
		return 0, 0, err
	}

	var toWrite []models.CanonicalRow
	inserted, updated := 0, 0
	for _, row := range rows {
		key := rowKey(row.EntityID, row.SnapshotTime)
		cur, found := existing[key]
		switch {
		case !found:
			inserted++
			toWrite = append(toWrite, row)
		case cur.Equal(row):
			// Identical re-delivery, nothing to ship.
		default:
			updated++
			toWrite = append(toWrite, row)
		}
	}

	if len(toWrite) == 0 {
		return 0, 0, nil
	}
	if err := s.insertRows(ctx, toWrite); err != nil {
		return 0, 0, err
	}
	return inserted, updated, nil
}

// existingForKeys reads the current version of every key in the batch.
// Batches carry one snapshot time per fetch cycle, so this is normally one
// query; mixed-time batches from backfill just run one query per time.
func (s *ClickHouseSnapshotStore) existingForKeys(ctx context.Context, rows []models.CanonicalRow) (map[string]models.CanonicalRow, error) {
	times := make(map[time.Time]struct{})
	for _, row := range rows {
		times[row.SnapshotTime.UTC()] = struct{}{}
	}

	out := make(map[string]models.CanonicalRow)
	query := fmt.Sprintf(
		"SELECT %s FROM crypto_prices FINAL WHERE snapshot_time = ?", snapshotColumns)
	for ts := range times {
		found, err := s.queryRows(ctx, query, ts)
		if err != nil {
			return nil, err
		}
		for _, row := range found {
			out[rowKey(row.EntityID, row.SnapshotTime)] = row
		}
	}
	return out, nil
}

// insertRows ships all changed rows as one batch insert in one transaction.
func (s *ClickHouseSnapshotStore) insertRows(ctx context.Context, rows []models.CanonicalRow) error {
	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", drepo.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO crypto_prices (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", snapshotColumns))
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %v", drepo.ErrStorageUnavailable, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			row.EntityID, nstr(row.Symbol), nstr(row.Name),
			nf64(row.CurrentPrice), nf64(row.MarketCap), ni64(row.MarketCapRank),
			nf64(row.TotalVolume), nf64(row.High24h), nf64(row.Low24h),
			nf64(row.PriceChange24h), nf64(row.PriceChangePct24h),
			ntime(row.LastUpdated), row.SnapshotTime.UTC())
		if err != nil {
			return fmt.Errorf("%w: append %s: %v", drepo.ErrStorageUnavailable, row.EntityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", drepo.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *ClickHouseSnapshotStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseSnapshotStore) Close() error {
	return s.client.Close()
}

func (s *ClickHouseSnapshotStore) LatestSnapshot(ctx context.Context) ([]models.CanonicalRow, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM crypto_prices AS p FINAL
		INNER JOIN (
			SELECT entity_id AS eid, max(snapshot_time) AS ts
			FROM crypto_prices FINAL GROUP BY entity_id
		) AS m ON p.entity_id = m.eid AND p.snapshot_time = m.ts
		ORDER BY p.entity_id`, prefixColumns("p"))
	return s.queryRows(ctx, query)
}

func (s *ClickHouseSnapshotStore) History(ctx context.Context, entityID string) ([]models.CanonicalRow, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM crypto_prices FINAL WHERE entity_id = ? ORDER BY snapshot_time ASC", snapshotColumns)
	rows, err := s.queryRows(ctx, query, entityID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", drepo.ErrNotFound, entityID)
	}
	return rows, nil
}

func (s *ClickHouseSnapshotStore) AsOf(ctx context.Context, ts time.Time) ([]models.CanonicalRow, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM crypto_prices AS p FINAL
		INNER JOIN (
			SELECT entity_id AS eid, max(snapshot_time) AS ts
			FROM crypto_prices FINAL WHERE snapshot_time <= ? GROUP BY entity_id
		) AS m ON p.entity_id = m.eid AND p.snapshot_time = m.ts
		ORDER BY p.entity_id`, prefixColumns("p"))
	return s.queryRows(ctx, query, ts.UTC())
}

func (s *ClickHouseSnapshotStore) queryRows(ctx context.Context, query string, args ...any) ([]models.CanonicalRow, error) {
	rows, err := s.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", drepo.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	out := []models.CanonicalRow{}
	for rows.Next() {
		row, err := scanCanonicalRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate: %v", drepo.ErrStorageUnavailable, err)
	}
	return out, nil
}

var _ drepo.SnapshotRepository = (*ClickHouseSnapshotStore)(nil)
