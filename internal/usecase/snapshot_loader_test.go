package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"CoinSink/internal/domain/models"
	drepo "CoinSink/internal/domain/repository"
	internalrepo "CoinSink/internal/repository"
	"CoinSink/pkg/logger"
)

var loadTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type nopMetrics struct{}

func (nopMetrics) RecordFetched(int)            {}
func (nopMetrics) RecordRejected(string)        {}
func (nopMetrics) RecordCoercionFailures(int)   {}
func (nopMetrics) RecordRowsLoaded(int, int)    {}
func (nopMetrics) RecordError(string)           {}
func (nopMetrics) RecordLatency(string, float64) {}

type captureStore struct {
	rows []models.CanonicalRow
	err  error
}

func (s *captureStore) Init(context.Context) error { return nil }
func (s *captureStore) UpsertBatch(_ context.Context, rows []models.CanonicalRow) (int, int, error) {
	if s.err != nil {
		return 0, 0, s.err
	}
	s.rows = rows
	return len(rows), 0, nil
}
func (s *captureStore) Health(context.Context) error { return nil }
func (s *captureStore) Close() error                 { return nil }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func loadRow(id string, ts time.Time, price float64) models.CanonicalRow {
	return models.CanonicalRow{EntityID: id, CurrentPrice: &price, SnapshotTime: ts}
}

func TestLoadDedupesLastWins(t *testing.T) {
	store := &captureStore{}
	l := NewSnapshotLoader(store, nopMetrics{}, testLogger(t))

	batch := models.Batch{
		FetchedAt: loadTime,
		Rows: []models.CanonicalRow{
			loadRow("bitcoin", loadTime, 100),
			loadRow("ethereum", loadTime, 10),
			loadRow("bitcoin", loadTime, 105),
		},
	}

	res, err := l.Load(context.Background(), batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Rejected != 0 {
		t.Fatalf("expected no rejections, got %d", res.Rejected)
	}
	if len(store.rows) != 2 {
		t.Fatalf("duplicate key must collapse, store got %d rows", len(store.rows))
	}
	if store.rows[0].EntityID != "bitcoin" || *store.rows[0].CurrentPrice != 105 {
		t.Fatalf("last occurrence must win at first position: %+v", store.rows[0])
	}
	if store.rows[1].EntityID != "ethereum" {
		t.Fatalf("unexpected second row: %+v", store.rows[1])
	}
}

func TestLoadRejectsInvalidRows(t *testing.T) {
	store := &captureStore{}
	l := NewSnapshotLoader(store, nopMetrics{}, testLogger(t))

	batch := models.Batch{
		FetchedAt: loadTime,
		Rows: []models.CanonicalRow{
			loadRow("", loadTime, 1),
			{EntityID: "bitcoin"}, // zero snapshot time
			loadRow("ethereum", loadTime, 10),
		},
	}

	res, err := l.Load(context.Background(), batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Rejected != 2 {
		t.Fatalf("expected 2 rejections, got %d", res.Rejected)
	}
	if len(store.rows) != 1 || store.rows[0].EntityID != "ethereum" {
		t.Fatalf("only the valid row should reach storage: %+v", store.rows)
	}
}

func TestLoadEmptyAfterSanitize(t *testing.T) {
	store := &captureStore{err: errors.New("must not be called")}
	l := NewSnapshotLoader(store, nopMetrics{}, testLogger(t))

	res, err := l.Load(context.Background(), models.Batch{
		FetchedAt: loadTime,
		Rows:      []models.CanonicalRow{loadRow("", loadTime, 1)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Rejected != 1 || res.Inserted != 0 || res.Updated != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestLoadStorageErrorPropagates(t *testing.T) {
	store := &captureStore{err: drepo.ErrStorageUnavailable}
	l := NewSnapshotLoader(store, nopMetrics{}, testLogger(t))

	_, err := l.Load(context.Background(), models.Batch{
		FetchedAt: loadTime,
		Rows:      []models.CanonicalRow{loadRow("bitcoin", loadTime, 1)},
	})
	if !errors.Is(err, drepo.ErrStorageUnavailable) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestLoadIdempotentAgainstStore(t *testing.T) {
	store := internalrepo.NewMemorySnapshotStore()
	l := NewSnapshotLoader(store, nopMetrics{}, testLogger(t))

	batch := models.Batch{
		FetchedAt: loadTime,
		Rows: []models.CanonicalRow{
			loadRow("bitcoin", loadTime, 100),
			loadRow("ethereum", loadTime, 10),
		},
	}

	first, err := l.Load(context.Background(), batch)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if first.Inserted != 2 || first.Updated != 0 {
		t.Fatalf("unexpected first result: %+v", first)
	}

	second, err := l.Load(context.Background(), batch)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if second.Inserted != 0 || second.Updated != 0 {
		t.Fatalf("reload must be a no-op: %+v", second)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", store.Len())
	}
}
