package indicator

import (
	"errors"
	"fmt"

	"ConfluenceTrader/internal/model"
)

// Config holds the lookback periods of every indicator.
type Config struct {
	EMAShort     int
	EMALong      int
	ATRPeriod    int
	FibLookback  int
	VPLookback   int
	VPBucketSize float64
	WarmupBuffer int
}

// Snapshot holds all indicator values for the latest bar of a window.
type Snapshot struct {
	EMAShort     float64
	EMALong      float64
	PrevEMAShort float64
	PrevEMALong  float64
	ATR          float64
	Close        float64
	PrevClose    float64

	Fib    FibLevels   // empty when the market was flat
	Pivots PivotLevels // nil when fewer than two days are available
	HVN    []float64
	LVN    []float64
}

// HasPivots reports whether pivot levels are defined.
func (s *Snapshot) HasPivots() bool { return len(s.Pivots) > 0 }

// Engine computes indicator snapshots from bar windows.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine and checks that every period is usable.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.EMAShort <= 0 || cfg.EMALong <= 0 || cfg.ATRPeriod <= 0 || cfg.FibLookback <= 0 || cfg.VPLookback <= 0 {
		return nil, errors.New("indicator periods must be positive")
	}
	if cfg.VPBucketSize <= 0 {
		return nil, errors.New("volume profile bucket size must be positive")
	}
	if cfg.WarmupBuffer < 0 {
		return nil, errors.New("warmup buffer must not be negative")
	}
	return &Engine{cfg: cfg}, nil
}

// Lookback returns the longest configured lookback in bars.
func (e *Engine) Lookback() int {
	m := e.cfg.EMAShort
	for _, p := range []int{e.cfg.EMALong, e.cfg.ATRPeriod, e.cfg.FibLookback, e.cfg.VPLookback} {
		if p > m {
			m = p
		}
	}
	return m
}

// MinBars returns the number of bars Compute needs.
func (e *Engine) MinBars() int { return e.Lookback() + e.cfg.WarmupBuffer }

// Compute builds a snapshot of the latest bar. Windows shorter than MinBars
// yield ErrInsufficientData.
func (e *Engine) Compute(bars []model.Bar) (*Snapshot, error) {
	if len(bars) < e.MinBars() || len(bars) < 2 {
		return nil, fmt.Errorf("%w: have %d bars, need %d", ErrInsufficientData, len(bars), e.MinBars())
	}

	cl := closes(bars)
	last := len(bars) - 1
	snap := &Snapshot{Close: cl[last], PrevClose: cl[last-1]}

	emaShort, err := EMA(cl, e.cfg.EMAShort)
	if err != nil {
		return nil, fmt.Errorf("ema short: %w", err)
	}
	emaLong, err := EMA(cl, e.cfg.EMALong)
	if err != nil {
		return nil, fmt.Errorf("ema long: %w", err)
	}
	var ok [4]bool
	snap.EMAShort, ok[0] = At(emaShort, last)
	snap.EMALong, ok[1] = At(emaLong, last)
	snap.PrevEMAShort, ok[2] = At(emaShort, last-1)
	snap.PrevEMALong, ok[3] = At(emaLong, last-1)
	for _, defined := range ok {
		if !defined {
			return nil, fmt.Errorf("ema: %w", ErrInsufficientData)
		}
	}

	atr, err := ATR(bars, e.cfg.ATRPeriod)
	if err != nil {
		return nil, fmt.Errorf("atr: %w", err)
	}
	v, defined := Last(atr)
	if !defined {
		return nil, fmt.Errorf("atr: %w", ErrInsufficientData)
	}
	snap.ATR = v

	if snap.Fib, err = Fibonacci(bars, e.cfg.FibLookback); err != nil {
		return nil, fmt.Errorf("fibonacci: %w", err)
	}

	// Fewer than two days of history leaves pivots undefined, not the snapshot.
	if pivots, err := Pivots(bars); err == nil {
		snap.Pivots = pivots
	} else if !errors.Is(err, ErrInsufficientData) {
		return nil, fmt.Errorf("pivots: %w", err)
	}

	profile, err := VolumeProfile(bars, e.cfg.VPLookback, e.cfg.VPBucketSize)
	if err != nil {
		return nil, fmt.Errorf("volume profile: %w", err)
	}
	snap.HVN, snap.LVN = profile.HVN, profile.LVN

	return snap, nil
}
