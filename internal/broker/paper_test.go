package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"ConfluenceTrader/internal/model"
)

func newTestPaper(t *testing.T) *Paper {
	t.Helper()
	p := NewPaper(PaperConfig{
		Symbol:  "XAUUSD",
		Balance: 10000,
		Spread:  20,
		Info: model.SymbolInfo{
			Name: "XAUUSD", Digits: 2, Point: 0.01,
			VolumeStep: 0.01, VolumeMin: 0.01, VolumeMax: 100, TickValue: 1,
		},
	})
	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	p.SetTick(model.Tick{Bid: 2000, Ask: 2000.2})
	return p
}

func TestPaper_NotConnected(t *testing.T) {
	p := NewPaper(PaperConfig{Symbol: "XAUUSD"})
	_, err := p.Tick(context.Background(), "XAUUSD")
	var be *model.BrokerError
	if !errors.As(err, &be) || be.Code != RetcodeNoConnection {
		t.Errorf("want no-connection error, got %v", err)
	}
}

func TestPaper_OpenAndClose(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(t)

	res, err := p.SendOrder(ctx, model.OrderRequest{
		Symbol: "XAUUSD", Side: model.SideBuy, Volume: 0.5,
		StopLoss: 1990, TakeProfit: 2030, Magic: 234000,
	})
	if err != nil || !res.Done() {
		t.Fatalf("open: res=%+v err=%v", res, err)
	}
	if res.Price != 2000.2 {
		t.Errorf("buy filled at %v, want ask 2000.2", res.Price)
	}

	p.SetTick(model.Tick{Bid: 2010, Ask: 2010.2})
	pos, err := p.PositionByTicket(ctx, res.Order)
	if err != nil {
		t.Fatalf("PositionByTicket: %v", err)
	}
	// (2010 - 2000.2) / 0.01 * 1 * 0.5
	if pos.Profit != 490 {
		t.Errorf("floating profit = %v, want 490", pos.Profit)
	}

	closeRes, err := p.SendOrder(ctx, model.OrderRequest{
		Symbol: "XAUUSD", Side: model.SideSell, Volume: 0.5, Position: res.Order, Filling: model.FillReturn,
	})
	if err != nil || !closeRes.Done() {
		t.Fatalf("close: res=%+v err=%v", closeRes, err)
	}
	acct, _ := p.Account(ctx)
	if acct.Balance != 10490 {
		t.Errorf("balance = %v, want 10490", acct.Balance)
	}
	if ps, _ := p.Positions(ctx, "XAUUSD"); len(ps) != 0 {
		t.Errorf("positions left: %d", len(ps))
	}
}

func TestPaper_CheckRejects(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(t)

	tests := []struct {
		name string
		req  model.OrderRequest
		want int
	}{
		{"volume below min", model.OrderRequest{Symbol: "XAUUSD", Side: model.SideBuy, Volume: 0.001}, RetcodeInvalidVolume},
		{"volume above max", model.OrderRequest{Symbol: "XAUUSD", Side: model.SideBuy, Volume: 1000}, RetcodeInvalidVolume},
		{"buy stop above bid", model.OrderRequest{Symbol: "XAUUSD", Side: model.SideBuy, Volume: 1, StopLoss: 2001}, RetcodeInvalidStops},
		{"sell stop below ask", model.OrderRequest{Symbol: "XAUUSD", Side: model.SideSell, Volume: 1, StopLoss: 1999}, RetcodeInvalidStops},
		{"unknown symbol", model.OrderRequest{Symbol: "EURUSD", Side: model.SideBuy, Volume: 1}, RetcodeInvalid},
		{"unknown position", model.OrderRequest{Symbol: "XAUUSD", Side: model.SideSell, Volume: 1, Position: 77}, RetcodePosNotFound},
		{"valid", model.OrderRequest{Symbol: "XAUUSD", Side: model.SideSell, Volume: 1, StopLoss: 2010, TakeProfit: 1980}, model.RetcodeDone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.CheckOrder(ctx, tt.req)
			if err != nil {
				t.Fatalf("CheckOrder: %v", err)
			}
			if res.Retcode != tt.want {
				t.Errorf("retcode = %d, want %d (%s)", res.Retcode, tt.want, res.Comment)
			}
		})
	}
}

func TestPaper_SyntheticBars(t *testing.T) {
	ctx := context.Background()
	p := NewPaper(PaperConfig{Symbol: "XAUUSD", Info: model.SymbolInfo{Point: 0.01}})
	p.Connect(ctx)

	bars, err := p.Bars(ctx, "XAUUSD", model.M15, 100)
	if err != nil {
		t.Fatalf("Bars: %v", err)
	}
	if len(bars) != 100 {
		t.Fatalf("len = %d, want 100", len(bars))
	}
	for i := 1; i < len(bars); i++ {
		if bars[i].Time.Sub(bars[i-1].Time) != 15*time.Minute {
			t.Fatalf("bar %d not on a 15m cadence", i)
		}
		if bars[i].High < bars[i].Low {
			t.Fatalf("bar %d high below low", i)
		}
	}
	tick, err := p.Tick(ctx, "XAUUSD")
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if tick.Bid != bars[99].Close {
		t.Errorf("bid = %v, want last close %v", tick.Bid, bars[99].Close)
	}
}
