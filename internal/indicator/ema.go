package indicator

import (
	"errors"
	"math"

	"ConfluenceTrader/internal/model"
)

// ErrInsufficientData is returned when a window is shorter than the lookback it needs.
var ErrInsufficientData = errors.New("insufficient data")

// EMA computes the exponential moving average series of values.
// alpha = 2/(window+1), seeded with the first sample. The first window-1
// outputs are NaN.
func EMA(values []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, errors.New("window must be positive")
	}
	if len(values) < window {
		return nil, ErrInsufficientData
	}
	alpha := 2.0 / float64(window+1)
	out := make([]float64, len(values))
	ema := values[0]
	for i, v := range values {
		if i > 0 {
			ema = alpha*v + (1-alpha)*ema
		}
		if i < window-1 {
			out[i] = math.NaN()
		} else {
			out[i] = ema
		}
	}
	return out, nil
}

// Last returns the final element of a series and whether it is defined.
func Last(series []float64) (float64, bool) {
	return At(series, len(series)-1)
}

// At returns series[i] and whether it is defined.
func At(series []float64, i int) (float64, bool) {
	if i < 0 || i >= len(series) || math.IsNaN(series[i]) {
		return 0, false
	}
	return series[i], true
}

func closes(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
