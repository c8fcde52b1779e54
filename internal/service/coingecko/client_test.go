package coingecko

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CoinSink/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func TestFetchSnapshot(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	var gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotKey = r.Header.Get("x-cg-demo-api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"bitcoin","symbol":"btc","current_price":65000.5,"market_cap_rank":1},
			{"id":"ethereum","symbol":"eth","current_price":3500.25}
		]`))
	}))
	defer srv.Close()

	c := NewClient(Config{
		BaseURL:  srv.URL,
		APIKey:   "test-key",
		Currency: "usd",
		Coins:    []string{"bitcoin", "ethereum"},
	}, testLogger(t))

	before := time.Now().UTC()
	snap, err := c.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if gotPath != "/coins/markets" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if got := gotQuery["vs_currency"]; len(got) != 1 || got[0] != "usd" {
		t.Fatalf("unexpected vs_currency %v", got)
	}
	if got := gotQuery["ids"]; len(got) != 1 || got[0] != "bitcoin,ethereum" {
		t.Fatalf("unexpected ids %v", got)
	}
	if gotKey != "test-key" {
		t.Fatalf("api key header missing, got %q", gotKey)
	}

	if len(snap.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(snap.Records))
	}
	if snap.FetchedAt.Before(before) || snap.FetchedAt.Location() != time.UTC {
		t.Fatalf("fetched_at not stamped in UTC at fetch time: %v", snap.FetchedAt)
	}

	// Numbers must survive undamaged for later strict coercion.
	price, ok := snap.Records[0]["current_price"].(json.Number)
	if !ok || price.String() != "65000.5" {
		t.Fatalf("expected raw json number, got %T %v", snap.Records[0]["current_price"], snap.Records[0]["current_price"])
	}
	id, ok := snap.Records[1].EntityID()
	if !ok || id != "ethereum" {
		t.Fatalf("unexpected second record id: %v", id)
	}
}

func TestFetchSnapshotServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Coins: []string{"bitcoin"}}, testLogger(t))
	if _, err := c.FetchSnapshot(context.Background()); err == nil {
		t.Fatalf("expected error on non-2xx response")
	}
}

func TestFetchSnapshotNoCoins(t *testing.T) {
	c := NewClient(Config{}, testLogger(t))
	if _, err := c.FetchSnapshot(context.Background()); err == nil {
		t.Fatalf("expected error when no coins configured")
	}
}
