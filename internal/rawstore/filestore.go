package rawstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"CoinSink/internal/domain/models"
	"CoinSink/pkg/util"
)

const filePrefix = "crypto_prices_"

// FileStore persists raw API payloads as timestamped JSON files, one file
// per fetch cycle. Files are append-only: nothing here rewrites or removes
// a stored snapshot, which keeps replay trustworthy.
type FileStore struct {
	dir string
}

// NewFileStore creates the raw data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("raw data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create raw dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes one snapshot as crypto_prices_<stamp>.json and returns the path.
// The payload is stored exactly as received, records untouched.
func (s *FileStore) Save(ctx context.Context, snap *models.RawSnapshot) (string, error) {
	if snap == nil {
		return "", fmt.Errorf("snapshot is nil")
	}

	name := fmt.Sprintf("%s%s.json", filePrefix, util.SnapshotStamp(snap.FetchedAt))
	path := filepath.Join(s.dir, name)

	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write raw file: %w", err)
	}
	return path, nil
}

// Latest reads back the most recent snapshot file. A missing or empty
// directory yields (nil, nil): no data is not an error for replay callers.
func (s *FileStore) Latest(ctx context.Context) (*models.RawSnapshot, error) {
	files, err := s.listFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	return s.read(files[len(files)-1])
}

// All reads back every stored snapshot in fetch order for backfill.
func (s *FileStore) All(ctx context.Context) ([]*models.RawSnapshot, error) {
	files, err := s.listFiles()
	if err != nil {
		return nil, err
	}

	snaps := make([]*models.RawSnapshot, 0, len(files))
	for _, f := range files {
		snap, err := s.read(f)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func (s *FileStore) listFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read raw dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		files = append(files, filepath.Join(s.dir, name))
	}
	// Stamp format sorts lexicographically in fetch order.
	sort.Strings(files)
	return files, nil
}

func (s *FileStore) read(path string) (*models.RawSnapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read raw file %s: %w", filepath.Base(path), err)
	}

	var snap models.RawSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("parse raw file %s: %w", filepath.Base(path), err)
	}
	snap.FetchedAt = snap.FetchedAt.UTC()
	return &snap, nil
}

// stampFromName recovers the fetch time embedded in a snapshot filename.
// Kept for diagnostics; the authoritative time lives inside the file.
func stampFromName(name string) (time.Time, bool) {
	base := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(name), filePrefix), ".json")
	t, err := time.Parse("20060102_150405", base)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
