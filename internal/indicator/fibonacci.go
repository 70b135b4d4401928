package indicator

import (
	"errors"
	"math"

	"ConfluenceTrader/internal/model"
)

// FibLevels maps a retracement name ("0.0%" … "100.0%") to its price.
// An empty map means the market was flat over the lookback.
type FibLevels map[string]float64

// FibRatios lists the standard retracement fractions in order.
var FibRatios = []struct {
	Name  string
	Ratio float64
}{
	{"0.0%", 0.0},
	{"23.6%", 0.236},
	{"38.2%", 0.382},
	{"50.0%", 0.5},
	{"61.8%", 0.618},
	{"78.6%", 0.786},
	{"100.0%", 1.0},
}

// Fibonacci computes retracement levels over the trailing lookback bars,
// measured down from the swing high.
func Fibonacci(bars []model.Bar, lookback int) (FibLevels, error) {
	if lookback <= 0 {
		return nil, errors.New("lookback must be positive")
	}
	if len(bars) < lookback {
		return nil, ErrInsufficientData
	}
	high, low := SwingRange(bars[len(bars)-lookback:])
	return FibonacciFromSwing(high, low), nil
}

// FibonacciFromSwing computes retracement levels between a swing high and low.
func FibonacciFromSwing(high, low float64) FibLevels {
	levels := FibLevels{}
	if high == low {
		return levels
	}
	rng := high - low
	for _, r := range FibRatios {
		levels[r.Name] = high - r.Ratio*rng
	}
	return levels
}

// SwingRange returns max(high) and min(low) over bars.
func SwingRange(bars []model.Bar) (high, low float64) {
	high, low = math.Inf(-1), math.Inf(1)
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low
}
