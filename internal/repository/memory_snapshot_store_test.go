package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"CoinSink/internal/domain/models"
	drepo "CoinSink/internal/domain/repository"
)

var (
	t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 = time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
)

func row(id string, ts time.Time, price float64) models.CanonicalRow {
	return models.CanonicalRow{
		EntityID:     id,
		CurrentPrice: &price,
		SnapshotTime: ts,
	}
}

func TestUpsertBatchCounts(t *testing.T) {
	s := NewMemorySnapshotStore()
	ctx := context.Background()

	ins, upd, err := s.UpsertBatch(ctx, []models.CanonicalRow{
		row("bitcoin", t0, 100),
		row("ethereum", t0, 10),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ins != 2 || upd != 0 {
		t.Fatalf("expected 2 inserted, got ins=%d upd=%d", ins, upd)
	}

	// Identical redelivery is a no-op.
	ins, upd, err = s.UpsertBatch(ctx, []models.CanonicalRow{
		row("bitcoin", t0, 100),
		row("ethereum", t0, 10),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ins != 0 || upd != 0 {
		t.Fatalf("redelivery should be no-op, got ins=%d upd=%d", ins, upd)
	}

	// Same key, different content overwrites.
	ins, upd, err = s.UpsertBatch(ctx, []models.CanonicalRow{row("bitcoin", t0, 101)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ins != 0 || upd != 1 {
		t.Fatalf("expected 1 updated, got ins=%d upd=%d", ins, upd)
	}
	if s.Len() != 2 {
		t.Fatalf("key uniqueness violated, have %d rows", s.Len())
	}
}

func TestUpsertBatchAtomicOnFailure(t *testing.T) {
	s := NewMemorySnapshotStore()
	ctx := context.Background()

	if _, _, err := s.UpsertBatch(ctx, []models.CanonicalRow{row("bitcoin", t0, 100)}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	s.FailAfter(1)
	_, _, err := s.UpsertBatch(ctx, []models.CanonicalRow{
		row("bitcoin", t0, 999),
		row("ethereum", t0, 10),
		row("solana", t0, 5),
	})
	if !errors.Is(err, drepo.ErrStorageUnavailable) {
		t.Fatalf("expected storage error, got %v", err)
	}

	// Nothing from the failed batch may be visible.
	if s.Len() != 1 {
		t.Fatalf("partial batch leaked, have %d rows", s.Len())
	}
	rows, err := s.History(ctx, "bitcoin")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if *rows[0].CurrentPrice != 100 {
		t.Fatalf("failed batch modified existing row: %v", *rows[0].CurrentPrice)
	}
}

func TestLatestSnapshotPicksNewestPerEntity(t *testing.T) {
	s := NewMemorySnapshotStore()
	ctx := context.Background()

	_, _, err := s.UpsertBatch(ctx, []models.CanonicalRow{
		row("bitcoin", t0, 100),
		row("ethereum", t0, 10),
		row("bitcoin", t1, 110),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := s.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected one row per entity, got %d", len(rows))
	}
	if rows[0].EntityID != "bitcoin" || !rows[0].SnapshotTime.Equal(t1) {
		t.Fatalf("bitcoin latest should be t1: %+v", rows[0])
	}
	if rows[1].EntityID != "ethereum" || !rows[1].SnapshotTime.Equal(t0) {
		t.Fatalf("ethereum latest should be t0: %+v", rows[1])
	}
}

func TestLatestSnapshotEmptyStore(t *testing.T) {
	s := NewMemorySnapshotStore()
	rows, err := s.LatestSnapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty result, got %d rows", len(rows))
	}
}

func TestHistoryOrderAndNotFound(t *testing.T) {
	s := NewMemorySnapshotStore()
	ctx := context.Background()

	_, _, err := s.UpsertBatch(ctx, []models.CanonicalRow{
		row("bitcoin", t1, 110),
		row("bitcoin", t0, 100),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := s.History(ctx, "bitcoin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 || !rows[0].SnapshotTime.Equal(t0) || !rows[1].SnapshotTime.Equal(t1) {
		t.Fatalf("history must be oldest first: %+v", rows)
	}

	if _, err := s.History(ctx, "nope"); !errors.Is(err, drepo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAsOfBetweenSnapshots(t *testing.T) {
	s := NewMemorySnapshotStore()
	ctx := context.Background()

	_, _, err := s.UpsertBatch(ctx, []models.CanonicalRow{
		row("bitcoin", t0, 100),
		row("bitcoin", t1, 110),
		row("ethereum", t1, 11),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Between the two snapshots: only rows at or before the cutoff count.
	mid := t0.Add(30 * time.Minute)
	rows, err := s.AsOf(ctx, mid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected only bitcoin before cutoff, got %d rows", len(rows))
	}
	if rows[0].EntityID != "bitcoin" || !rows[0].SnapshotTime.Equal(t0) {
		t.Fatalf("unexpected asof row: %+v", rows[0])
	}

	// Exactly at a snapshot time is inclusive.
	rows, err = s.AsOf(ctx, t1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 || !rows[0].SnapshotTime.Equal(t1) {
		t.Fatalf("asof at t1 should see both entities at t1: %+v", rows)
	}

	// Before any data.
	rows, err = s.AsOf(ctx, t0.Add(-time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty result before all data, got %d", len(rows))
	}
}
