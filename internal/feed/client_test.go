package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bobmcallan/vire-track/internal/models"
)

func TestClient_GetQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/quote/VAS.AX" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_token") != "test-key" {
			t.Error("expected api_token query parameter")
		}
		w.Write([]byte(`{"status":"ok","data":{"symbol":"VAS.AX","price":95.42,"name":"Vanguard Australian Shares","market_open":true,"previous_close":95.1}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	quote, err := client.GetQuote(context.Background(), "VAS.AX")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if quote.Price != 95.42 || !quote.MarketOpen {
		t.Errorf("unexpected quote: %+v", quote)
	}
	if quote.Name != "Vanguard Australian Shares" {
		t.Errorf("unexpected name: %q", quote.Name)
	}
}

func TestClient_GetQuote_Throttled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	if _, err := client.GetQuote(context.Background(), "VAS.AX"); !errors.Is(err, models.ErrThrottled) {
		t.Errorf("expected ErrThrottled, got %v", err)
	}
}

func TestClient_GetQuote_UnknownSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	if _, err := client.GetQuote(context.Background(), "NOPE"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_GetHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/eod/VAS.AX" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("from"); got != "2026-08-25" {
			t.Errorf("expected from=2026-08-25, got %q", got)
		}
		w.Write([]byte(`{"status":"ok","data":{"prices":[{"date":"2026-08-25","close":95.1},{"date":"2026-08-26","close":95.8}],"limited":false}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	from := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	points, err := client.GetHistory(context.Background(), "VAS.AX", from)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if !points[0].Date.Equal(from) || points[0].Close != 95.1 {
		t.Errorf("unexpected first point: %+v", points[0])
	}
}

func TestClient_GetHistory_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","data":{"prices":[],"limited":false}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	points, err := client.GetHistory(context.Background(), "VAS.AX", time.Now())
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(points) != 0 {
		t.Errorf("expected no points, got %d", len(points))
	}
}

func TestClient_GetSyncState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sync-state" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbols"); got != "VAS.AX,IVV.AX" {
			t.Errorf("unexpected symbols %q", got)
		}
		w.Write([]byte(`{"status":"ok","data":{"VAS.AX":"2026-08-28"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	state, err := client.GetSyncState(context.Background(), []string{"VAS.AX", "IVV.AX"})
	if err != nil {
		t.Fatalf("GetSyncState failed: %v", err)
	}
	if len(state) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(state))
	}
	want := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	if !state["VAS.AX"].Equal(want) {
		t.Errorf("expected %s, got %s", want, state["VAS.AX"])
	}
}

func TestClient_ErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","data":null}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	if _, err := client.GetQuote(context.Background(), "VAS.AX"); err == nil {
		t.Error("expected error for non-ok envelope status")
	}
}
