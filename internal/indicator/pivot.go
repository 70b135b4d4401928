package indicator

import (
	"time"

	"ConfluenceTrader/internal/model"
)

// PivotNames lists the classic pivot levels.
var PivotNames = []string{"PP", "R1", "R2", "R3", "S1", "S2", "S3"}

// PivotLevels maps a pivot name to its price. Nil means undefined.
type PivotLevels map[string]float64

// Pivots computes classic floor pivots from the most recently closed day.
// The last daily bar is treated as the day in progress.
func Pivots(bars []model.Bar) (PivotLevels, error) {
	daily := DailyBars(bars)
	if len(daily) < 2 {
		return nil, ErrInsufficientData
	}
	d := daily[len(daily)-2]
	h, l, c := d.High, d.Low, d.Close
	pp := (h + l + c) / 3
	return PivotLevels{
		"PP": pp,
		"R1": 2*pp - l,
		"S1": 2*pp - h,
		"R2": pp + (h - l),
		"S2": pp - (h - l),
		"R3": h + 2*(pp-l),
		"S3": l - 2*(h-pp),
	}, nil
}

// DailyBars resamples intraday bars into UTC calendar-day bars.
func DailyBars(bars []model.Bar) []model.Bar {
	if len(bars) == 0 {
		return nil
	}
	var daily []model.Bar
	var day model.Bar
	var dayKey time.Time
	started := false

	for _, b := range bars {
		key := b.Time.UTC().Truncate(24 * time.Hour)
		if !started || !key.Equal(dayKey) {
			if started {
				daily = append(daily, day)
			}
			day = model.Bar{Time: key, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
			dayKey = key
			started = true
			continue
		}
		if b.High > day.High {
			day.High = b.High
		}
		if b.Low < day.Low {
			day.Low = b.Low
		}
		day.Close = b.Close
		day.Volume += b.Volume
	}
	daily = append(daily, day)
	return daily
}
