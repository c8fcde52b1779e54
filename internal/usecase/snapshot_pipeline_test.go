package usecase

import (
	"context"
	"testing"
	"time"

	"CoinSink/internal/domain/models"
	internalrepo "CoinSink/internal/repository"
)

func TestPipelineProcessEndToEnd(t *testing.T) {
	store := internalrepo.NewMemorySnapshotStore()
	log := testLogger(t)
	pipeline := NewSnapshotPipeline(NewSnapshotLoader(store, nopMetrics{}, log), nopMetrics{}, log)

	fetched := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := &models.RawSnapshot{
		FetchedAt: fetched,
		Records: []models.RawRecord{
			{"id": "bitcoin", "symbol": "btc", "current_price": "65000.5", "market_cap_rank": "1"},
			{"id": "ethereum", "current_price": "N/A", "market_cap": 1000.0},
			{"current_price": 5.0},
			{"id": "cardano"},
		},
	}

	res, err := pipeline.Process(context.Background(), snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Inserted != 2 {
		t.Fatalf("expected 2 inserted, got %d", res.Inserted)
	}
	if res.Rejected != 2 {
		t.Fatalf("expected 2 rejected, got %d", res.Rejected)
	}

	rows, err := store.LatestSnapshot(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(rows))
	}
	if rows[0].EntityID != "bitcoin" || rows[0].CurrentPrice == nil || *rows[0].CurrentPrice != 65000.5 {
		t.Fatalf("unexpected bitcoin row: %+v", rows[0])
	}
	// The unparseable price landed as null, the record still loaded.
	if rows[1].EntityID != "ethereum" || rows[1].CurrentPrice != nil || rows[1].MarketCap == nil {
		t.Fatalf("unexpected ethereum row: %+v", rows[1])
	}
}

func TestPipelineReprocessIsNoOp(t *testing.T) {
	store := internalrepo.NewMemorySnapshotStore()
	log := testLogger(t)
	pipeline := NewSnapshotPipeline(NewSnapshotLoader(store, nopMetrics{}, log), nopMetrics{}, log)

	snap := &models.RawSnapshot{
		FetchedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Records: []models.RawRecord{
			{"id": "bitcoin", "current_price": 100.0},
		},
	}

	if _, err := pipeline.Process(context.Background(), snap); err != nil {
		t.Fatalf("first process: %v", err)
	}
	res, err := pipeline.Process(context.Background(), snap)
	if err != nil {
		t.Fatalf("second process: %v", err)
	}
	if res.Inserted != 0 || res.Updated != 0 {
		t.Fatalf("reprocessing the same snapshot must not change storage: %+v", res)
	}
}
