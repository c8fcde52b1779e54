package models

import "time"

// RawRecord is one API response item for one entity, exactly as decoded from
// the source payload. Values are untyped; the normalizer owns coercion.
type RawRecord map[string]any

// EntityID extracts the entity identifier, if present and usable.
func (r RawRecord) EntityID() (string, bool) {
	v, ok := r["id"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// RawSnapshot couples one fetch cycle's payload with its fetch timestamp.
type RawSnapshot struct {
	FetchedAt time.Time   `json:"fetched_at"`
	Records   []RawRecord `json:"records"`
}

// RejectReason classifies why a raw record was excluded from normalization.
type RejectReason string

const (
	ReasonMissingIdentity RejectReason = "missing_identity"
	ReasonNoQuoteFields   RejectReason = "no_quote_fields"
)

// RejectedRecord keeps enough context to count and log a rejection without
// carrying the full payload forward.
type RejectedRecord struct {
	Index  int
	Reason RejectReason
}

// CanonicalRow is the validated, typed representation of one entity at one
// snapshot time. Numeric fields are pointers: a nil value is an explicit null
// produced by a failed or absent coercion, never a silent zero.
type CanonicalRow struct {
	EntityID          string     `json:"entity_id"`
	Symbol            *string    `json:"symbol"`
	Name              *string    `json:"name"`
	CurrentPrice      *float64   `json:"current_price"`
	MarketCap         *float64   `json:"market_cap"`
	MarketCapRank     *int64     `json:"market_cap_rank"`
	TotalVolume       *float64   `json:"total_volume"`
	High24h           *float64   `json:"high_24h"`
	Low24h            *float64   `json:"low_24h"`
	PriceChange24h    *float64   `json:"price_change_24h"`
	PriceChangePct24h *float64   `json:"price_change_percentage_24h"`
	LastUpdated       *time.Time `json:"last_updated"`
	SnapshotTime      time.Time  `json:"snapshot_time"`
}

// Equal reports whether two rows carry identical non-key fields. The upsert
// path uses it to decide between a no-op and an overwrite.
func (r CanonicalRow) Equal(o CanonicalRow) bool {
	return eqStr(r.Symbol, o.Symbol) &&
		eqStr(r.Name, o.Name) &&
		eqF64(r.CurrentPrice, o.CurrentPrice) &&
		eqF64(r.MarketCap, o.MarketCap) &&
		eqI64(r.MarketCapRank, o.MarketCapRank) &&
		eqF64(r.TotalVolume, o.TotalVolume) &&
		eqF64(r.High24h, o.High24h) &&
		eqF64(r.Low24h, o.Low24h) &&
		eqF64(r.PriceChange24h, o.PriceChange24h) &&
		eqF64(r.PriceChangePct24h, o.PriceChangePct24h) &&
		eqTime(r.LastUpdated, o.LastUpdated)
}

func eqStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func eqF64(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func eqI64(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func eqTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// Batch is the ordered output of normalizing one fetch cycle. Every row
// shares FetchedAt as its snapshot time.
type Batch struct {
	FetchedAt        time.Time
	Rows             []CanonicalRow
	CoercionFailures int
}

// LoadResult reports what a single load invocation did. Counts only; callers
// needing row contents re-query the store.
type LoadResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Rejected int `json:"rejected"`
}
