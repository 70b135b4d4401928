package risk

import (
	"github.com/shopspring/decimal"

	"ConfluenceTrader/internal/model"
)

// Sizer converts a stop distance into a position volume that risks a fixed
// fraction of account equity.
type Sizer struct {
	RiskFraction float64
}

// NewSizer creates a Sizer risking the given fraction of equity per trade.
func NewSizer(riskFraction float64) *Sizer {
	return &Sizer{RiskFraction: riskFraction}
}

// Size returns the volume for a trade on info's symbol. Zero means skip the trade.
func (s *Sizer) Size(equity, stopPoints float64, info model.SymbolInfo) float64 {
	return Volume(equity, s.RiskFraction, stopPoints, info)
}

// RawVolume is risk_amount / (stop_points * value_per_point), before any
// broker constraint is applied.
func RawVolume(equity, riskFraction, stopPoints, valuePerPoint float64) float64 {
	if equity <= 0 || riskFraction <= 0 || stopPoints <= 0 || valuePerPoint <= 0 {
		return 0
	}
	return equity * riskFraction / (stopPoints * valuePerPoint)
}

// Volume floors the raw volume to the symbol's volume step and clamps it to
// [VolumeMin, VolumeMax]. A volume that floors to zero is returned as zero.
func Volume(equity, riskFraction, stopPoints float64, info model.SymbolInfo) float64 {
	raw := RawVolume(equity, riskFraction, stopPoints, info.TickValue)
	if raw <= 0 {
		return 0
	}

	v := decimal.NewFromFloat(raw)
	if info.VolumeStep > 0 {
		step := decimal.NewFromFloat(info.VolumeStep)
		v = v.Div(step).Floor().Mul(step)
	}
	if !v.IsPositive() {
		return 0
	}
	if info.VolumeMin > 0 {
		v = decimal.Max(v, decimal.NewFromFloat(info.VolumeMin))
	}
	if info.VolumeMax > 0 {
		v = decimal.Min(v, decimal.NewFromFloat(info.VolumeMax))
	}
	f, _ := v.Float64()
	return f
}
