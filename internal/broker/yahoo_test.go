package broker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ConfluenceTrader/internal/model"
)

func TestYahooSource_Bars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/GC=F") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("interval") != "15m" {
			t.Errorf("interval = %s", r.URL.Query().Get("interval"))
		}
		w.Write([]byte(`{"chart": {"result": [{
			"timestamp": [1700000000, 1700000900, 1700001800],
			"indicators": {"quote": [{
				"open":   [1, null, 3],
				"high":   [2, null, 4],
				"low":    [0.5, null, 2.5],
				"close":  [1.5, null, 3.5],
				"volume": [10, null, 30]
			}]}
		}], "error": null}}`))
	}))
	defer srv.Close()

	y := NewYahooSource("")
	y.BaseURL = srv.URL
	bars, err := y.Bars(context.Background(), "XAUUSD", model.M15, 10)
	if err != nil {
		t.Fatalf("Bars: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("len = %d, want 2 (null bar skipped)", len(bars))
	}
	if bars[1].Close != 3.5 || bars[1].Volume != 30 {
		t.Errorf("last bar = %+v", bars[1])
	}
}

func TestYahooSource_UnsupportedTimeframe(t *testing.T) {
	y := NewYahooSource("")
	if _, err := y.Bars(context.Background(), "XAUUSD", model.H4, 10); err == nil {
		t.Error("expected error for H4")
	}
}

func TestYahooRange(t *testing.T) {
	tests := []struct {
		span time.Duration
		want string
	}{
		{time.Hour, "1d"},
		{72 * time.Hour, "5d"},
		{20 * 24 * time.Hour, "1mo"},
		{400 * 24 * time.Hour, "2y"},
	}
	for _, tt := range tests {
		if got := yahooRange(tt.span); got != tt.want {
			t.Errorf("yahooRange(%v) = %s, want %s", tt.span, got, tt.want)
		}
	}
}
