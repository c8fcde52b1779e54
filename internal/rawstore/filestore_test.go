package rawstore

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"CoinSink/internal/domain/models"
)

func snap(ts time.Time, ids ...string) *models.RawSnapshot {
	records := make([]models.RawRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, models.RawRecord{"id": id, "current_price": 1.0})
	}
	return &models.RawSnapshot{FetchedAt: ts, Records: records}
}

func TestSaveNamesFileByFetchTime(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	path, err := s.Save(context.Background(), snap(ts, "bitcoin"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Base(path) != "crypto_prices_20240102_030405.json" {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
}

func TestLatestReturnsNewest(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	if _, err := s.Save(ctx, snap(newer, "ethereum")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.Save(ctx, snap(older, "bitcoin")); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got == nil || !got.FetchedAt.Equal(newer) {
		t.Fatalf("expected newest snapshot, got %+v", got)
	}
}

func TestLatestEmptyDir(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	got, err := s.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for empty dir, got %+v", got)
	}
}

func TestAllRoundTripsInFetchOrder(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	times := []time.Time{
		time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC),
	}
	for _, ts := range times {
		if _, err := s.Save(ctx, snap(ts, "bitcoin")); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	snaps, err := s.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snaps))
	}
	for i := 1; i < len(snaps); i++ {
		if !snaps[i].FetchedAt.After(snaps[i-1].FetchedAt) {
			t.Fatalf("snapshots out of fetch order: %v then %v", snaps[i-1].FetchedAt, snaps[i].FetchedAt)
		}
	}

	// Records survive the round trip untouched.
	id, ok := snaps[0].Records[0].EntityID()
	if !ok || id != "bitcoin" {
		t.Fatalf("record lost in round trip: %+v", snaps[0].Records)
	}
}

func TestSaveRejectsNilSnapshot(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := s.Save(context.Background(), nil); err == nil || !strings.Contains(err.Error(), "nil") {
		t.Fatalf("expected nil snapshot error, got %v", err)
	}
}
