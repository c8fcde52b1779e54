package validate

import "CoinSink/internal/domain/models"

// quoteFields are the price-bearing source keys; a raw record must carry at
// least one of them to be worth normalizing.
var quoteFields = []string{
	"current_price",
	"market_cap",
	"total_volume",
	"high_24h",
	"low_24h",
}

// Validate splits raw records into those fit for normalization and those
// rejected outright. It checks key presence only: malformed values flow
// through and become nulls during coercion. Output order follows input
// order and the two sequences are disjoint.
func Validate(records []models.RawRecord) ([]models.RawRecord, []models.RejectedRecord) {
	valid := make([]models.RawRecord, 0, len(records))
	var rejected []models.RejectedRecord

	for i, rec := range records {
		if _, ok := rec.EntityID(); !ok {
			rejected = append(rejected, models.RejectedRecord{Index: i, Reason: models.ReasonMissingIdentity})
			continue
		}
		if !hasQuoteField(rec) {
			rejected = append(rejected, models.RejectedRecord{Index: i, Reason: models.ReasonNoQuoteFields})
			continue
		}
		valid = append(valid, rec)
	}

	return valid, rejected
}

func hasQuoteField(rec models.RawRecord) bool {
	for _, f := range quoteFields {
		if _, ok := rec[f]; ok {
			return true
		}
	}
	return false
}
