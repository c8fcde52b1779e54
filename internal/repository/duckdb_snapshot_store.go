package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"CoinSink/internal/domain/models"
	drepo "CoinSink/internal/domain/repository"
	"CoinSink/pkg/duckdb"
	"CoinSink/pkg/logger"
)

const duckdbSchema = `
CREATE TABLE IF NOT EXISTS crypto_prices (
	entity_id                   VARCHAR NOT NULL,
	symbol                      VARCHAR,
	name                        VARCHAR,
	current_price               DOUBLE,
	market_cap                  DOUBLE,
	market_cap_rank             BIGINT,
	total_volume                DOUBLE,
	high_24h                    DOUBLE,
	low_24h                     DOUBLE,
	price_change_24h            DOUBLE,
	price_change_percentage_24h DOUBLE,
	last_updated                TIMESTAMP,
	snapshot_time               TIMESTAMP NOT NULL,
	PRIMARY KEY (entity_id, snapshot_time)
)`

const snapshotColumns = `entity_id, symbol, name, current_price, market_cap, market_cap_rank,
	total_volume, high_24h, low_24h, price_change_24h, price_change_percentage_24h,
	last_updated, snapshot_time`

// DuckDBSnapshotStore persists canonical rows in an embedded DuckDB file.
// Each batch runs inside one transaction: existing rows are read and compared
// first, so unchanged rows cost no write and the returned counts are exact.
type DuckDBSnapshotStore struct {
	client *duckdb.Client
	log    *logger.Logger
}

// NewDuckDBSnapshotStore wraps an open DuckDB client.
func NewDuckDBSnapshotStore(client *duckdb.Client, log *logger.Logger) *DuckDBSnapshotStore {
	return &DuckDBSnapshotStore{client: client, log: log}
}

func (s *DuckDBSnapshotStore) Init(ctx context.Context) error {
	if err := s.client.InitSchema(ctx, []string{duckdbSchema}); err != nil {
		return fmt.Errorf("%w: init schema: %v", drepo.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *DuckDBSnapshotStore) UpsertBatch(ctx context.Context, rows []models.CanonicalRow) (int, int, error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}

	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: begin tx: %v", drepo.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	selectStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"SELECT %s FROM crypto_prices WHERE entity_id = ? AND snapshot_time = ?", snapshotColumns))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: prepare select: %v", drepo.ErrStorageUnavailable, err)
	}
	defer selectStmt.Close()

	insertStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO crypto_prices (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", snapshotColumns))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: prepare insert: %v", drepo.ErrStorageUnavailable, err)
	}
	defer insertStmt.Close()

	updateStmt, err := tx.PrepareContext(ctx, `
		UPDATE crypto_prices SET
			symbol = ?, name = ?, current_price = ?, market_cap = ?, market_cap_rank = ?,
			total_volume = ?, high_24h = ?, low_24h = ?, price_change_24h = ?,
			price_change_percentage_24h = ?, last_updated = ?
		WHERE entity_id = ? AND snapshot_time = ?`)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: prepare update: %v", drepo.ErrStorageUnavailable, err)
	}
	defer updateStmt.Close()

	inserted, updated := 0, 0
	for _, row := range rows {
		existing, found, err := scanExisting(ctx, selectStmt, row.EntityID, row.SnapshotTime)
		if err != nil {
			return 0, 0, err
		}

		switch {
		case !found:
			_, err = insertStmt.ExecContext(ctx,
				row.EntityID, nstr(row.Symbol), nstr(row.Name),
				nf64(row.CurrentPrice), nf64(row.MarketCap), ni64(row.MarketCapRank),
				nf64(row.TotalVolume), nf64(row.High24h), nf64(row.Low24h),
				nf64(row.PriceChange24h), nf64(row.PriceChangePct24h),
				ntime(row.LastUpdated), row.SnapshotTime.UTC())
			if err != nil {
				return 0, 0, fmt.Errorf("%w: insert %s: %v", drepo.ErrStorageUnavailable, row.EntityID, err)
			}
			inserted++
		case existing.Equal(row):
			// Re-delivered row with identical content: leave it alone.
		default:
			_, err = updateStmt.ExecContext(ctx,
				nstr(row.Symbol), nstr(row.Name),
				nf64(row.CurrentPrice), nf64(row.MarketCap), ni64(row.MarketCapRank),
				nf64(row.TotalVolume), nf64(row.High24h), nf64(row.Low24h),
				nf64(row.PriceChange24h), nf64(row.PriceChangePct24h),
				ntime(row.LastUpdated),
				row.EntityID, row.SnapshotTime.UTC())
			if err != nil {
				return 0, 0, fmt.Errorf("%w: update %s: %v", drepo.ErrStorageUnavailable, row.EntityID, err)
			}
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("%w: commit: %v", drepo.ErrStorageUnavailable, err)
	}
	return inserted, updated, nil
}

func (s *DuckDBSnapshotStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *DuckDBSnapshotStore) Close() error {
	return s.client.Close()
}

func (s *DuckDBSnapshotStore) LatestSnapshot(ctx context.Context) ([]models.CanonicalRow, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM crypto_prices p
		JOIN (
			SELECT entity_id AS eid, max(snapshot_time) AS ts
			FROM crypto_prices GROUP BY entity_id
		) m ON p.entity_id = m.eid AND p.snapshot_time = m.ts
		ORDER BY p.entity_id`, prefixColumns("p"))
	return s.queryRows(ctx, query)
}

func (s *DuckDBSnapshotStore) History(ctx context.Context, entityID string) ([]models.CanonicalRow, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM crypto_prices WHERE entity_id = ? ORDER BY snapshot_time ASC", snapshotColumns)
	rows, err := s.queryRows(ctx, query, entityID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", drepo.ErrNotFound, entityID)
	}
	return rows, nil
}

func (s *DuckDBSnapshotStore) AsOf(ctx context.Context, ts time.Time) ([]models.CanonicalRow, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM crypto_prices p
		JOIN (
			SELECT entity_id AS eid, max(snapshot_time) AS ts
			FROM crypto_prices WHERE snapshot_time <= ? GROUP BY entity_id
		) m ON p.entity_id = m.eid AND p.snapshot_time = m.ts
		ORDER BY p.entity_id`, prefixColumns("p"))
	return s.queryRows(ctx, query, ts.UTC())
}

func (s *DuckDBSnapshotStore) queryRows(ctx context.Context, query string, args ...any) ([]models.CanonicalRow, error) {
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

// rowScanner covers *sql.Rows and the single-row path of a prepared select.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanExisting(ctx context.Context, stmt *sql.Stmt, entityID string, ts time.Time) (models.CanonicalRow, bool, error) {
	r := stmt.QueryRowContext(ctx, entityID, ts.UTC())
	row, err := scanInto(r)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CanonicalRow{}, false, nil
	}
	if err != nil {
		return models.CanonicalRow{}, false, err
	}
	return row, true, nil
}

func scanCanonicalRow(rows *sql.Rows) (models.CanonicalRow, error) {
	return scanInto(rows)
}

func scanInto(r rowScanner) (models.CanonicalRow, error) {
	var (
		row          models.CanonicalRow
		symbol, name sql.NullString
		price, mcap, volume, high, low, change, changePct sql.NullFloat64
		rank         sql.NullInt64
		lastUpdated  sql.NullTime
		snapshotTime time.Time
	)

	err := r.Scan(&row.EntityID, &symbol, &name, &price, &mcap, &rank,
		&volume, &high, &low, &change, &changePct, &lastUpdated, &snapshotTime)
	if errors.Is(err, sql.ErrNoRows) {
		return row, err
	}
	if err != nil {
		return row, fmt.Errorf("%w: scan: %v", drepo.ErrStorageUnavailable, err)
	}

	row.Symbol = strPtr(symbol)
	row.Name = strPtr(name)
	row.CurrentPrice = f64Ptr(price)
	row.MarketCap = f64Ptr(mcap)
	row.MarketCapRank = i64Ptr(rank)
	row.TotalVolume = f64Ptr(volume)
	row.High24h = f64Ptr(high)
	row.Low24h = f64Ptr(low)
	row.PriceChange24h = f64Ptr(change)
	row.PriceChangePct24h = f64Ptr(changePct)
	row.LastUpdated = timePtr(lastUpdated)
	row.SnapshotTime = snapshotTime.UTC()
	return row, nil
}

func prefixColumns(alias string) string {
	return fmt.Sprintf(`%[1]s.entity_id, %[1]s.symbol, %[1]s.name, %[1]s.current_price,
		%[1]s.market_cap, %[1]s.market_cap_rank, %[1]s.total_volume, %[1]s.high_24h,
		%[1]s.low_24h, %[1]s.price_change_24h, %[1]s.price_change_percentage_24h,
		%[1]s.last_updated, %[1]s.snapshot_time`, alias)
}

func nstr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nf64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func ni64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func ntime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func f64Ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func i64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

var _ drepo.SnapshotRepository = (*DuckDBSnapshotStore)(nil)
