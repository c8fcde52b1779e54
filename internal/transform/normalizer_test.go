package transform

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
	"time"

	"CoinSink/internal/domain/models"
)

var fetchTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestNormalizeStringyNumbers(t *testing.T) {
	valid := []models.RawRecord{
		{"id": "bitcoin", "symbol": "btc", "current_price": "65000.5", "market_cap_rank": "1"},
	}

	batch := Normalize(valid, fetchTime)

	if len(batch.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(batch.Rows))
	}
	row := batch.Rows[0]
	if row.EntityID != "bitcoin" {
		t.Fatalf("unexpected entity id %q", row.EntityID)
	}
	if row.Symbol == nil || *row.Symbol != "btc" {
		t.Fatalf("unexpected symbol %v", row.Symbol)
	}
	if row.CurrentPrice == nil || *row.CurrentPrice != 65000.5 {
		t.Fatalf("unexpected price %v", row.CurrentPrice)
	}
	if row.MarketCapRank == nil || *row.MarketCapRank != 1 {
		t.Fatalf("unexpected rank %v", row.MarketCapRank)
	}
	if !row.SnapshotTime.Equal(fetchTime) {
		t.Fatalf("snapshot time should be fetch time, got %v", row.SnapshotTime)
	}
	if batch.CoercionFailures != 0 {
		t.Fatalf("expected no coercion failures, got %d", batch.CoercionFailures)
	}
}

func TestNormalizeBadValuesBecomeNulls(t *testing.T) {
	valid := []models.RawRecord{
		{
			"id":            "bitcoin",
			"current_price": "N/A",
			"market_cap":    "1,000,000",
			"total_volume":  math.NaN(),
			"high_24h":      math.Inf(1),
			"last_updated":  "not-a-timestamp",
		},
	}

	batch := Normalize(valid, fetchTime)

	row := batch.Rows[0]
	if row.CurrentPrice != nil || row.MarketCap != nil || row.TotalVolume != nil || row.High24h != nil || row.LastUpdated != nil {
		t.Fatalf("expected all malformed fields to be null: %+v", row)
	}
	if batch.CoercionFailures != 5 {
		t.Fatalf("expected 5 coercion failures, got %d", batch.CoercionFailures)
	}
}

func TestNormalizeAbsentAndNullFields(t *testing.T) {
	valid := []models.RawRecord{
		{"id": "bitcoin", "current_price": 100.0, "market_cap": nil},
	}

	batch := Normalize(valid, fetchTime)

	row := batch.Rows[0]
	if row.MarketCap != nil {
		t.Fatalf("explicit null should stay null")
	}
	if row.TotalVolume != nil {
		t.Fatalf("absent field should stay null")
	}
	// Absent or null fields are not coercion failures.
	if batch.CoercionFailures != 0 {
		t.Fatalf("expected no coercion failures, got %d", batch.CoercionFailures)
	}
}

func TestNormalizeNonIntegralRank(t *testing.T) {
	valid := []models.RawRecord{
		{"id": "bitcoin", "current_price": 1.0, "market_cap_rank": 1.5},
	}

	batch := Normalize(valid, fetchTime)
	if batch.Rows[0].MarketCapRank != nil {
		t.Fatalf("fractional rank should be null")
	}
	if batch.CoercionFailures != 1 {
		t.Fatalf("expected 1 coercion failure, got %d", batch.CoercionFailures)
	}
}

func TestNormalizeJSONNumber(t *testing.T) {
	valid := []models.RawRecord{
		{"id": "bitcoin", "current_price": json.Number("42000.25"), "market_cap_rank": json.Number("2")},
	}

	batch := Normalize(valid, fetchTime)
	row := batch.Rows[0]
	if row.CurrentPrice == nil || *row.CurrentPrice != 42000.25 {
		t.Fatalf("unexpected price %v", row.CurrentPrice)
	}
	if row.MarketCapRank == nil || *row.MarketCapRank != 2 {
		t.Fatalf("unexpected rank %v", row.MarketCapRank)
	}
}

func TestNormalizeLastUpdatedToUTC(t *testing.T) {
	valid := []models.RawRecord{
		{"id": "bitcoin", "current_price": 1.0, "last_updated": "2024-01-01T05:00:00+05:00"},
	}

	batch := Normalize(valid, fetchTime)
	row := batch.Rows[0]
	if row.LastUpdated == nil {
		t.Fatalf("expected parsed last_updated")
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !row.LastUpdated.Equal(want) || row.LastUpdated.Location() != time.UTC {
		t.Fatalf("expected %v UTC, got %v", want, row.LastUpdated)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	valid := []models.RawRecord{
		{"id": "bitcoin", "symbol": "btc", "current_price": "1.5"},
		{"id": "ethereum", "symbol": "eth", "market_cap": 2.0},
	}

	a := Normalize(valid, fetchTime)
	b := Normalize(valid, fetchTime)
	if !reflect.DeepEqual(a.Rows, b.Rows) || a.CoercionFailures != b.CoercionFailures {
		t.Fatalf("normalization is not deterministic")
	}
}

func TestNormalizeOneRowPerRecord(t *testing.T) {
	valid := []models.RawRecord{
		{"id": "a", "current_price": 1.0},
		{"id": "b", "current_price": "junk"},
		{"id": "c"},
	}

	batch := Normalize(valid, fetchTime)
	if len(batch.Rows) != 3 {
		t.Fatalf("every validated record must yield a row, got %d", len(batch.Rows))
	}
	for i, id := range []string{"a", "b", "c"} {
		if batch.Rows[i].EntityID != id {
			t.Fatalf("row %d: expected %s, got %s", i, id, batch.Rows[i].EntityID)
		}
	}
}
