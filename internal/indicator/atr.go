package indicator

import (
	"errors"
	"math"

	"ConfluenceTrader/internal/model"
)

// TrueRange returns the true range of each bar. The first bar has no previous
// close and uses high-low.
func TrueRange(bars []model.Bar) []float64 {
	tr := make([]float64, len(bars))
	for i, b := range bars {
		r := b.High - b.Low
		if i > 0 {
			prev := bars[i-1].Close
			r = math.Max(r, math.Max(math.Abs(b.High-prev), math.Abs(b.Low-prev)))
		}
		tr[i] = r
	}
	return tr
}

// ATR computes the Wilder-smoothed average true range series.
// The value at window-1 is the mean of the first window true ranges; earlier
// outputs are NaN.
func ATR(bars []model.Bar, window int) ([]float64, error) {
	if window <= 0 {
		return nil, errors.New("window must be positive")
	}
	if len(bars) < window {
		return nil, ErrInsufficientData
	}
	tr := TrueRange(bars)
	out := make([]float64, len(bars))
	sum := 0.0
	for i := 0; i < window; i++ {
		sum += tr[i]
		out[i] = math.NaN()
	}
	atr := sum / float64(window)
	out[window-1] = atr
	for i := window; i < len(bars); i++ {
		atr = (atr*float64(window-1) + tr[i]) / float64(window)
		out[i] = atr
	}
	return out, nil
}
