package recorder

import (
	"math"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteRecorder_RoundTrip(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	start := time.Now().Add(-time.Minute)
	cycles := []*CycleRecord{
		{ID: "c1", StartedAt: time.Now(), Direction: "BUY", Result: ResultTraded, ClosestSupport: 1990, ClosestResistance: math.Inf(1)},
		{ID: "c2", StartedAt: time.Now(), Direction: "NONE", Result: ResultNoSignal, ClosestSupport: math.Inf(-1)},
		{ID: "c3", StartedAt: time.Now(), Direction: "SELL", Result: ResultRejected},
		{ID: "c4", StartedAt: time.Now(), Result: ResultSkipped},
		{ID: "old", StartedAt: start.Add(-time.Hour), Direction: "BUY", Result: ResultTraded},
	}
	for _, c := range cycles {
		if err := r.RecordCycle(c); err != nil {
			t.Fatalf("RecordCycle %s: %v", c.ID, err)
		}
	}
	if err := r.RecordOrder(&OrderRecord{CycleID: "c1", Symbol: "XAUUSD", Side: "BUY", Volume: 0.1, Order: 5, Retcode: 10009}); err != nil {
		t.Fatalf("RecordOrder: %v", err)
	}
	if err := r.RecordClose(&CloseRecord{Ticket: 5, Price: 2001, Volume: 0.1, Retcode: 10009, Reason: "command"}); err != nil {
		t.Fatalf("RecordClose: %v", err)
	}

	s, err := r.Summary(start)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	want := Summary{Cycles: 4, Signals: 2, Traded: 1, Rejected: 1}
	if s != want {
		t.Errorf("Summary = %+v, want %+v", s, want)
	}

	var support, resistance *float64
	row := r.db.QueryRow(`SELECT closest_support, closest_resistance FROM cycles WHERE id = 'c1'`)
	if err := row.Scan(&support, &resistance); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if support == nil || *support != 1990 {
		t.Errorf("closest_support = %v, want 1990", support)
	}
	if resistance != nil {
		t.Errorf("infinite resistance stored as %v, want NULL", *resistance)
	}
}

func TestSQLiteRecorder_DuplicateCycleID(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	rec := &CycleRecord{ID: "same", StartedAt: time.Now(), Result: ResultSkipped}
	if err := r.RecordCycle(rec); err != nil {
		t.Fatal(err)
	}
	if err := r.RecordCycle(rec); err == nil {
		t.Error("expected primary key violation")
	}
}
