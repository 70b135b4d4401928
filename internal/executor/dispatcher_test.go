package executor

import (
	"context"
	"errors"
	"testing"

	"ConfluenceTrader/internal/broker"
	"ConfluenceTrader/internal/model"
)

const magic = 234000

func newPaper(t *testing.T) *broker.Paper {
	t.Helper()
	p := broker.NewPaper(broker.PaperConfig{
		Symbol:  "XAUUSD",
		Balance: 10000,
		Info: model.SymbolInfo{
			Name: "XAUUSD", Digits: 2, Point: 0.01,
			VolumeStep: 0.01, VolumeMin: 0.01, VolumeMax: 50, TickValue: 1,
		},
	})
	if err := p.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	p.SetTick(model.Tick{Bid: 2000, Ask: 2000.3})
	return p
}

func buySignal() *model.Signal {
	return &model.Signal{
		Direction:  model.DirectionBuy,
		Entry:      2000.3,
		StopLoss:   1990,
		TakeProfit: 2030,
		Volume:     0.2,
	}
}

func TestOpen(t *testing.T) {
	p := newPaper(t)
	d := NewDispatcher(p, Config{Deviation: 20, Magic: magic, Comment: "confluence"})

	res, err := d.Open(context.Background(), buySignal(), "XAUUSD")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	pos, err := p.PositionByTicket(context.Background(), res.Order)
	if err != nil {
		t.Fatalf("position not booked: %v", err)
	}
	if pos.Side != model.SideBuy || pos.Volume != 0.2 || pos.Magic != magic {
		t.Errorf("position = %+v", pos)
	}
}

func TestOpen_NotActionable(t *testing.T) {
	d := NewDispatcher(newPaper(t), Config{})
	sig := &model.Signal{Direction: model.DirectionNone}
	if _, err := d.Open(context.Background(), sig, "XAUUSD"); !errors.Is(err, ErrNotActionable) {
		t.Errorf("NONE signal: got %v", err)
	}
	zero := buySignal()
	zero.Volume = 0
	if _, err := d.Open(context.Background(), zero, "XAUUSD"); !errors.Is(err, ErrNotActionable) {
		t.Errorf("zero volume: got %v", err)
	}
}

func TestOpen_CheckRejected(t *testing.T) {
	p := newPaper(t)
	d := NewDispatcher(p, Config{Magic: magic})
	sig := buySignal()
	sig.StopLoss = 2005 // above bid

	_, err := d.Open(context.Background(), sig, "XAUUSD")
	var be *model.BrokerError
	if !errors.As(err, &be) {
		t.Fatalf("want *BrokerError, got %v", err)
	}
	if be.Op != "order_check" || be.Code != broker.RetcodeInvalidStops {
		t.Errorf("error = %+v", be)
	}
	if ps, _ := p.Positions(context.Background(), "XAUUSD"); len(ps) != 0 {
		t.Error("rejected order must not open a position")
	}
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	p := newPaper(t)
	d := NewDispatcher(p, Config{Magic: magic})

	res, err := d.Open(ctx, buySignal(), "XAUUSD")
	if err != nil {
		t.Fatal(err)
	}
	closed, err := d.Close(ctx, res.Order)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.Price != 2000 {
		t.Errorf("buy closed at %v, want bid 2000", closed.Price)
	}
	if ps, _ := p.Positions(ctx, "XAUUSD"); len(ps) != 0 {
		t.Errorf("positions left: %d", len(ps))
	}
}

func TestClose_UnknownTicket(t *testing.T) {
	d := NewDispatcher(newPaper(t), Config{})
	_, err := d.Close(context.Background(), 404)
	var be *model.BrokerError
	if !errors.As(err, &be) || be.Code != broker.RetcodePosNotFound {
		t.Errorf("want position-not-found, got %v", err)
	}
}

func TestCloseOpposite(t *testing.T) {
	ctx := context.Background()
	p := newPaper(t)
	d := NewDispatcher(p, Config{Magic: magic})
	other := NewDispatcher(p, Config{Magic: 1})

	sell := &model.Signal{Direction: model.DirectionSell, Entry: 2000, StopLoss: 2010, TakeProfit: 1970, Volume: 0.1}
	if _, err := d.Open(ctx, sell, "XAUUSD"); err != nil {
		t.Fatal(err)
	}
	if _, err := other.Open(ctx, sell, "XAUUSD"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Open(ctx, buySignal(), "XAUUSD"); err != nil {
		t.Fatal(err)
	}

	results, err := d.CloseOpposite(ctx, "XAUUSD", model.SideBuy)
	if err != nil {
		t.Fatalf("CloseOpposite: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("closed %d positions, want 1", len(results))
	}
	ps, _ := p.Positions(ctx, "XAUUSD")
	if len(ps) != 2 {
		t.Errorf("remaining positions = %d, want 2 (foreign sell and own buy)", len(ps))
	}
}
