package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"CoinSink/internal/domain/models"
	drepo "CoinSink/internal/domain/repository"
)

// MemorySnapshotStore keeps the analytical table in process memory. It backs
// tests and the ephemeral "memory" storage backend. Batches are staged on a
// copy and swapped in whole, so readers never observe a partial batch.
type MemorySnapshotStore struct {
	mu   sync.RWMutex
	rows map[string]models.CanonicalRow

	// failAfter injects a storage fault after N rows of a batch have been
	// staged. Zero disables it. Used to exercise rollback behavior.
	failAfter int
}

// NewMemorySnapshotStore creates an empty in-memory store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{rows: make(map[string]models.CanonicalRow)}
}

// FailAfter arms fault injection for the next UpsertBatch calls.
func (s *MemorySnapshotStore) FailAfter(n int) { s.failAfter = n }

func rowKey(entityID string, ts time.Time) string {
	return entityID + "|" + ts.UTC().Format(time.RFC3339Nano)
}

func (s *MemorySnapshotStore) Init(ctx context.Context) error { return nil }

func (s *MemorySnapshotStore) UpsertBatch(ctx context.Context, rows []models.CanonicalRow) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Stage on a copy; commit is the map swap at the end.
	staged := make(map[string]models.CanonicalRow, len(s.rows)+len(rows))
	for k, v := range s.rows {
		staged[k] = v
	}

	inserted, updated := 0, 0
	for i, row := range rows {
		if s.failAfter > 0 && i >= s.failAfter {
			return 0, 0, fmt.Errorf("%w: simulated fault mid-batch", drepo.ErrStorageUnavailable)
		}
		key := rowKey(row.EntityID, row.SnapshotTime)
		existing, ok := staged[key]
		switch {
		case !ok:
			inserted++
		case existing.Equal(row):
			continue
		default:
			updated++
		}
		staged[key] = row
	}

	s.rows = staged
	return inserted, updated, nil
}

func (s *MemorySnapshotStore) Health(ctx context.Context) error { return nil }

func (s *MemorySnapshotStore) Close() error { return nil }

// Len reports the number of stored rows.
func (s *MemorySnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *MemorySnapshotStore) LatestSnapshot(ctx context.Context) ([]models.CanonicalRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]models.CanonicalRow)
	for _, row := range s.rows {
		cur, ok := latest[row.EntityID]
		if !ok || row.SnapshotTime.After(cur.SnapshotTime) {
			latest[row.EntityID] = row
		}
	}
	return sortedByEntity(latest), nil
}

func (s *MemorySnapshotStore) History(ctx context.Context, entityID string) ([]models.CanonicalRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.CanonicalRow
	for _, row := range s.rows {
		if row.EntityID == entityID {
			out = append(out, row)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", drepo.ErrNotFound, entityID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SnapshotTime.Before(out[j].SnapshotTime) })
	return out, nil
}

func (s *MemorySnapshotStore) AsOf(ctx context.Context, ts time.Time) ([]models.CanonicalRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]models.CanonicalRow)
	for _, row := range s.rows {
		if row.SnapshotTime.After(ts) {
			continue
		}
		cur, ok := latest[row.EntityID]
		if !ok || row.SnapshotTime.After(cur.SnapshotTime) {
			latest[row.EntityID] = row
		}
	}
	return sortedByEntity(latest), nil
}

func sortedByEntity(m map[string]models.CanonicalRow) []models.CanonicalRow {
	out := make([]models.CanonicalRow, 0, len(m))
	for _, row := range m {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

var _ drepo.SnapshotRepository = (*MemorySnapshotStore)(nil)
