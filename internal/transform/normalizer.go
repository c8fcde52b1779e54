package transform

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"CoinSink/internal/domain/models"
)

// fieldKind names the coercion rule applied to one canonical field.
type fieldKind int

const (
	kindString fieldKind = iota
	kindFloat
	kindInt
	kindTime
)

// fieldSpec binds a canonical column to its source key and coercion rule.
// The table is fixed and total: every canonical field appears exactly once,
// and extraction never reaches outside it.
type fieldSpec struct {
	source string
	kind   fieldKind
}

var fieldTable = []fieldSpec{
	{source: "symbol", kind: kindString},
	{source: "name", kind: kindString},
	{source: "current_price", kind: kindFloat},
	{source: "market_cap", kind: kindFloat},
	{source: "market_cap_rank", kind: kindInt},
	{source: "total_volume", kind: kindFloat},
	{source: "high_24h", kind: kindFloat},
	{source: "low_24h", kind: kindFloat},
	{source: "price_change_24h", kind: kindFloat},
	{source: "price_change_percentage_24h", kind: kindFloat},
	{source: "last_updated", kind: kindTime},
}

// Normalize converts validated raw records into one Batch. Every record
// yields exactly one row; every row's snapshot time is fetchTime. Values
// that fail coercion become nulls and are counted, never errors. Output is
// deterministic for identical input.
func Normalize(valid []models.RawRecord, fetchTime time.Time) models.Batch {
	batch := models.Batch{
		FetchedAt: fetchTime.UTC(),
		Rows:      make([]models.CanonicalRow, 0, len(valid)),
	}

	for _, rec := range valid {
		id, _ := rec.EntityID()
		row := models.CanonicalRow{
			EntityID:     id,
			SnapshotTime: batch.FetchedAt,
		}

		for _, spec := range fieldTable {
			raw, present := rec[spec.source]
			if !present || raw == nil {
				continue
			}

			failed := false
			switch spec.kind {
			case kindString:
				var v *string
				v, failed = coerceString(raw)
				assignString(&row, spec.source, v)
			case kindFloat:
				var v *float64
				v, failed = coerceFloat(raw)
				assignFloat(&row, spec.source, v)
			case kindInt:
				var v *int64
				v, failed = coerceInt(raw)
				row.MarketCapRank = v
			case kindTime:
				var v *time.Time
				v, failed = coerceTime(raw)
				row.LastUpdated = v
			}
			if failed {
				batch.CoercionFailures++
			}
		}

		batch.Rows = append(batch.Rows, row)
	}

	return batch
}

func assignString(row *models.CanonicalRow, source string, v *string) {
	switch source {
	case "symbol":
		row.Symbol = v
	case "name":
		row.Name = v
	}
}

func assignFloat(row *models.CanonicalRow, source string, v *float64) {
	switch source {
	case "current_price":
		row.CurrentPrice = v
	case "market_cap":
		row.MarketCap = v
	case "total_volume":
		row.TotalVolume = v
	case "high_24h":
		row.High24h = v
	case "low_24h":
		row.Low24h = v
	case "price_change_24h":
		row.PriceChange24h = v
	case "price_change_percentage_24h":
		row.PriceChangePct24h = v
	}
}

func coerceString(raw any) (*string, bool) {
	s, ok := raw.(string)
	if !ok {
		return nil, true
	}
	return &s, false
}

// coerceFloat accepts JSON numbers and plain numeric strings. Strings with
// grouping separators or currency symbols fail strconv parsing and resolve
// to null rather than being guessed at. Non-finite values are nulls too.
func coerceFloat(raw any) (*float64, bool) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return nil, true
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, true
		}
		f = parsed
	default:
		return nil, true
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, true
	}
	return &f, false
}

// coerceInt goes through float coercion first and keeps only integral values.
func coerceInt(raw any) (*int64, bool) {
	f, failed := coerceFloat(raw)
	if failed || f == nil {
		return nil, failed
	}
	if *f != math.Trunc(*f) || *f > math.MaxInt64 || *f < math.MinInt64 {
		return nil, true
	}
	n := int64(*f)
	return &n, false
}

func coerceTime(raw any) (*time.Time, bool) {
	s, ok := raw.(string)
	if !ok {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, s); err != nil {
			return nil, true
		}
	}
	utc := t.UTC()
	return &utc, false
}
