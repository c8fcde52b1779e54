package validate

import (
	"testing"

	"CoinSink/internal/domain/models"
)

func TestValidateSplitsByReason(t *testing.T) {
	records := []models.RawRecord{
		{"id": "bitcoin", "current_price": 65000.5},
		{"current_price": 100.0},
		{"id": "ethereum"},
		{"id": "solana", "market_cap": 1.0},
	}

	valid, rejected := Validate(records)

	if len(valid) != 2 {
		t.Fatalf("expected 2 valid, got %d", len(valid))
	}
	if len(rejected) != 2 {
		t.Fatalf("expected 2 rejected, got %d", len(rejected))
	}
	if rejected[0].Index != 1 || rejected[0].Reason != models.ReasonMissingIdentity {
		t.Fatalf("unexpected first rejection: %+v", rejected[0])
	}
	if rejected[1].Index != 2 || rejected[1].Reason != models.ReasonNoQuoteFields {
		t.Fatalf("unexpected second rejection: %+v", rejected[1])
	}
}

func TestValidateKeepsInputOrder(t *testing.T) {
	records := []models.RawRecord{
		{"id": "c", "low_24h": 1.0},
		{"id": "a", "high_24h": 2.0},
		{"id": "b", "total_volume": 3.0},
	}

	valid, _ := Validate(records)

	want := []string{"c", "a", "b"}
	for i, rec := range valid {
		id, _ := rec.EntityID()
		if id != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], id)
		}
	}
}

func TestValidateMalformedValuesPass(t *testing.T) {
	// Presence, not type, decides validity. Garbage values flow through and
	// turn into nulls during normalization.
	records := []models.RawRecord{
		{"id": "bitcoin", "current_price": "N/A"},
	}

	valid, rejected := Validate(records)
	if len(valid) != 1 || len(rejected) != 0 {
		t.Fatalf("expected record with unparseable price to pass validation, got valid=%d rejected=%d", len(valid), len(rejected))
	}
}

func TestValidateEmptyIdentityRejected(t *testing.T) {
	records := []models.RawRecord{
		{"id": "", "current_price": 1.0},
		{"id": nil, "current_price": 1.0},
	}

	valid, rejected := Validate(records)
	if len(valid) != 0 {
		t.Fatalf("expected no valid records, got %d", len(valid))
	}
	for _, r := range rejected {
		if r.Reason != models.ReasonMissingIdentity {
			t.Fatalf("expected missing_identity, got %s", r.Reason)
		}
	}
}

func TestValidateEmptyInput(t *testing.T) {
	valid, rejected := Validate(nil)
	if len(valid) != 0 || len(rejected) != 0 {
		t.Fatalf("expected empty outputs")
	}
}
