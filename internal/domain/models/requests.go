package models

// HistoryRequest is the read-API request for one entity's full history.
type HistoryRequest struct {
	ID string `param:"id" validate:"required"`
}

// AsOfRequest asks for the latest row per entity at or before a point in
// time. TS accepts RFC3339 or unix seconds.
type AsOfRequest struct {
	TS string `query:"ts" validate:"required"`
}
