package strategy

import (
	"fmt"
	"math"

	"ConfluenceTrader/internal/indicator"
	"ConfluenceTrader/internal/model"
)

// Config holds the evaluator parameters.
type Config struct {
	MaxPositions        int
	ConfluenceATRFactor float64
	SLMultiplier        float64
	TPMultiplier        float64
	MinStopPoints       float64 // fallback stop distance when the ATR stop lands on the wrong side
}

// DefaultConfig mirrors the bot's stock parameters.
func DefaultConfig() Config {
	return Config{
		MaxPositions:        1,
		ConfluenceATRFactor: 0.25,
		SLMultiplier:        1.5,
		TPMultiplier:        3.0,
		MinStopPoints:       10,
	}
}

// Input is everything the evaluator needs for one cycle.
type Input struct {
	Snapshot      *indicator.Snapshot
	Tick          model.Tick
	Info          model.SymbolInfo
	OpenPositions int
}

// Evaluator turns an indicator snapshot into at most one signal per cycle.
type Evaluator struct {
	cfg Config
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Evaluate returns the decision for this cycle. Volume is left for the risk sizer.
func (e *Evaluator) Evaluate(in Input) *model.Signal {
	sig := &model.Signal{Direction: model.DirectionNone}
	if in.OpenPositions >= e.cfg.MaxPositions {
		sig.Reason = fmt.Sprintf("max positions reached (%d/%d)", in.OpenPositions, e.cfg.MaxPositions)
		return sig
	}
	snap := in.Snapshot
	if snap == nil {
		sig.Reason = "no indicator snapshot"
		return sig
	}

	bid, ask := in.Tick.Bid, in.Tick.Ask
	levels := Pool(snap, bid, ask)
	support, resistance := levels.ClosestSupport(), levels.ClosestResistance()
	tol := snap.ATR * e.cfg.ConfluenceATRFactor

	sig.ClosestSupport = support
	sig.ClosestResistance = resistance
	sig.Tolerance = tol

	buy := e.buyFires(snap, bid, support, tol)
	sell := e.sellFires(snap, bid, resistance, tol)

	switch {
	case buy && sell:
		sig.Reason = "conflicting buy and sell conditions"
	case buy:
		e.fill(sig, model.DirectionBuy, ask, snap.ATR, in.Info)
	case sell:
		e.fill(sig, model.DirectionSell, bid, snap.ATR, in.Info)
	default:
		sig.Reason = "no confluence"
	}
	return sig
}

// buyFires: (EMA cross up AND bounce) OR (near closest support AND bounce).
func (e *Evaluator) buyFires(snap *indicator.Snapshot, bid, support, tol float64) bool {
	crossUp := snap.PrevEMAShort < snap.PrevEMALong && snap.EMAShort > snap.EMALong
	confluence := append([]float64{support}, snap.HVN...)
	confluence = append(confluence, pivot(snap, "S1"), fib(snap, "61.8%"), fib(snap, "50.0%"))
	bounce := NearAny(bid, tol, confluence...) && snap.Close > snap.PrevClose
	return (crossUp && bounce) || (NearAny(bid, tol, support) && bounce)
}

// sellFires mirrors buyFires on the resistance side with a falling close.
func (e *Evaluator) sellFires(snap *indicator.Snapshot, bid, resistance, tol float64) bool {
	crossDown := snap.PrevEMAShort > snap.PrevEMALong && snap.EMAShort < snap.EMALong
	confluence := append([]float64{resistance}, snap.HVN...)
	confluence = append(confluence, pivot(snap, "R1"), fib(snap, "38.2%"), fib(snap, "50.0%"))
	rejection := NearAny(bid, tol, confluence...) && snap.Close < snap.PrevClose
	return (crossDown && rejection) || (NearAny(bid, tol, resistance) && rejection)
}

func (e *Evaluator) fill(sig *model.Signal, dir model.Direction, entry, atr float64, info model.SymbolInfo) {
	sig.Direction = dir
	sig.Entry = entry
	fallback := info.Point * e.cfg.MinStopPoints
	if dir == model.DirectionBuy {
		sig.StopLoss = RoundPrice(entry-atr*e.cfg.SLMultiplier, info.Digits)
		sig.TakeProfit = RoundPrice(entry+atr*e.cfg.TPMultiplier, info.Digits)
		if sig.StopLoss >= entry {
			sig.StopLoss = entry - fallback
		}
		sig.Reason = "bounce from support confluence"
	} else {
		sig.StopLoss = RoundPrice(entry+atr*e.cfg.SLMultiplier, info.Digits)
		sig.TakeProfit = RoundPrice(entry-atr*e.cfg.TPMultiplier, info.Digits)
		if sig.StopLoss <= entry {
			sig.StopLoss = entry + fallback
		}
		sig.Reason = "rejection from resistance confluence"
	}
	if info.Point > 0 {
		sig.StopPoints = math.Abs(entry-sig.StopLoss) / info.Point
	}
}

// RoundPrice rounds a price to the symbol's number of digits.
func RoundPrice(price float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(price*p) / p
}

func pivot(snap *indicator.Snapshot, name string) float64 {
	if v, ok := snap.Pivots[name]; ok {
		return v
	}
	return math.NaN()
}

func fib(snap *indicator.Snapshot, name string) float64 {
	if v, ok := snap.Fib[name]; ok {
		return v
	}
	return math.NaN()
}
