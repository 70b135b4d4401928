package collector

import (
	"context"
	"errors"
	"testing"

	"ConfluenceTrader/internal/broker"
	"ConfluenceTrader/internal/model"
)

func TestCollect(t *testing.T) {
	ctx := context.Background()
	p := broker.NewPaper(broker.PaperConfig{
		Symbol: "XAUUSD", Balance: 5000, Spread: 10,
		Info: model.SymbolInfo{Name: "XAUUSD", Digits: 2, Point: 0.01, VolumeMin: 0.01, VolumeMax: 10, VolumeStep: 0.01, TickValue: 1},
	})
	if err := p.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	c := NewCollector(p, "XAUUSD", model.M5, 50)
	st, err := c.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(st.Bars) != 50 {
		t.Errorf("bars = %d, want 50", len(st.Bars))
	}
	if st.Account.Equity != 5000 {
		t.Errorf("equity = %v, want 5000", st.Account.Equity)
	}
	if st.Info.Point != 0.01 {
		t.Errorf("point = %v", st.Info.Point)
	}
	if st.Tick.Ask <= st.Tick.Bid {
		t.Errorf("ask %v not above bid %v", st.Tick.Ask, st.Tick.Bid)
	}
}

func TestCollect_BrokerError(t *testing.T) {
	p := broker.NewPaper(broker.PaperConfig{Symbol: "XAUUSD"})
	c := NewCollector(p, "XAUUSD", model.M5, 50)

	_, err := c.Collect(context.Background())
	var be *model.BrokerError
	if !errors.As(err, &be) {
		t.Fatalf("want wrapped *BrokerError, got %v", err)
	}
}
