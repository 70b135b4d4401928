package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"ConfluenceTrader/internal/model"
)

const eps = 1e-9

var t0 = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func bar(i int, step time.Duration, o, h, l, c, v float64) model.Bar {
	return model.Bar{Time: t0.Add(time.Duration(i) * step), Open: o, High: h, Low: l, Close: c, Volume: v}
}

// trendBars builds n 15-minute bars oscillating around a rising base.
func trendBars(n int) []model.Bar {
	bars := make([]model.Bar, n)
	for i := 0; i < n; i++ {
		base := 100 + float64(i)*0.05 + math.Sin(float64(i)/5)
		bars[i] = bar(i, 15*time.Minute, base-0.1, base+0.6, base-0.7, base, 100+float64(i%7)*10)
	}
	return bars
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestEMA_MatchesRecurrence(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	got, err := EMA(values, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if !math.IsNaN(got[i]) {
			t.Errorf("index %d: expected NaN before window fills, got %v", i, got[i])
		}
	}
	want := []float64{2.25, 3.125}
	for i, w := range want {
		if math.Abs(got[i+2]-w) > eps {
			t.Errorf("index %d: expected %v, got %v", i+2, w, got[i+2])
		}
	}

	alpha := 2.0 / 4.0
	ref := values[0]
	for i := 1; i < len(values); i++ {
		ref = alpha*values[i] + (1-alpha)*ref
		if i >= 2 && math.Abs(got[i]-ref) > eps {
			t.Errorf("index %d: expected %v, got %v", i, ref, got[i])
		}
	}
}

func TestEMA_InsufficientData(t *testing.T) {
	if _, err := EMA([]float64{1, 2}, 3); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := EMA(nil, 3); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for empty input, got %v", err)
	}
	if _, err := EMA([]float64{1}, 0); err == nil {
		t.Error("expected error for zero window")
	}
}

func TestATR_WilderSmoothing(t *testing.T) {
	bars := []model.Bar{
		bar(0, time.Hour, 9, 10, 8, 9, 1),
		bar(1, time.Hour, 9, 11, 9, 10, 1),
		bar(2, time.Hour, 10, 12, 9, 11, 1),
		bar(3, time.Hour, 11, 11, 10, 10.5, 1),
	}
	tr := TrueRange(bars)
	for i, w := range []float64{2, 2, 3, 1} {
		if math.Abs(tr[i]-w) > eps {
			t.Errorf("tr[%d]: expected %v, got %v", i, w, tr[i])
		}
	}

	atr, err := ATR(bars, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(atr[0]) {
		t.Errorf("expected NaN at index 0, got %v", atr[0])
	}
	for i, w := range []float64{2, 2.5, 1.75} {
		if math.Abs(atr[i+1]-w) > eps {
			t.Errorf("atr[%d]: expected %v, got %v", i+1, w, atr[i+1])
		}
	}
	if v, ok := Last(atr); !ok || math.Abs(v-1.75) > eps {
		t.Errorf("Last: expected 1.75, got %v (%v)", v, ok)
	}
}

func TestATR_InsufficientData(t *testing.T) {
	if _, err := ATR(trendBars(5), 14); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestFibonacci_Levels(t *testing.T) {
	fib := FibonacciFromSwing(110, 100)
	tests := []struct {
		name  string
		price float64
	}{
		{"0.0%", 110},
		{"23.6%", 107.64},
		{"38.2%", 106.18},
		{"50.0%", 105.0},
		{"61.8%", 103.82},
		{"78.6%", 102.14},
		{"100.0%", 100},
	}
	if len(fib) != len(tests) {
		t.Fatalf("expected %d levels, got %d", len(tests), len(fib))
	}
	for _, tt := range tests {
		if got, ok := fib[tt.name]; !ok || math.Abs(got-tt.price) > 1e-6 {
			t.Errorf("%s: expected %.2f, got %.4f", tt.name, tt.price, got)
		}
	}
}

func TestFibonacci_FlatMarket(t *testing.T) {
	bars := make([]model.Bar, 10)
	for i := range bars {
		bars[i] = bar(i, time.Minute, 100, 100, 100, 100, 5)
	}
	fib, err := Fibonacci(bars, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(fib) != 0 {
		t.Errorf("expected no levels for flat market, got %v", fib)
	}
}

func TestFibonacci_UsesTrailingWindow(t *testing.T) {
	bars := []model.Bar{
		bar(0, time.Minute, 0, 500, 1, 0, 1), // outside the lookback
		bar(1, time.Minute, 0, 110, 105, 0, 1),
		bar(2, time.Minute, 0, 108, 100, 0, 1),
	}
	fib, err := Fibonacci(bars, 2)
	if err != nil {
		t.Fatal(err)
	}
	if fib["0.0%"] != 110 || fib["100.0%"] != 100 {
		t.Errorf("expected swing 110/100, got %v/%v", fib["0.0%"], fib["100.0%"])
	}
	if _, err := Fibonacci(bars, 4); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestDailyBars_Resample(t *testing.T) {
	var bars []model.Bar
	for i := 0; i < 48; i++ {
		p := 100 + float64(i)
		bars = append(bars, bar(i, time.Hour, p, p+1, p-1, p+0.5, 10))
	}
	daily := DailyBars(bars)
	if len(daily) != 2 {
		t.Fatalf("expected 2 daily bars, got %d", len(daily))
	}
	d := daily[0]
	if d.Open != 100 || d.High != 124 || d.Low != 99 || d.Close != 123.5 || d.Volume != 240 {
		t.Errorf("unexpected first day: %+v", d)
	}
}

func TestPivots_SecondToLastDay(t *testing.T) {
	day := 24 * time.Hour
	bars := []model.Bar{
		{Time: t0, Open: 90, High: 95, Low: 85, Close: 92, Volume: 1},
		{Time: t0.Add(day), Open: 101, High: 110, Low: 102, Close: 104, Volume: 1},
		{Time: t0.Add(day + time.Hour), Open: 104, High: 108, Low: 100, Close: 105, Volume: 1},
		{Time: t0.Add(2 * day), Open: 105, High: 130, Low: 60, Close: 70, Volume: 1},
	}
	pv, err := Pivots(bars)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]float64{"PP": 105, "R1": 110, "S1": 100, "R2": 115, "S2": 95, "R3": 120, "S3": 90}
	for k, w := range want {
		if !near(pv[k], w) {
			t.Errorf("%s: expected %v, got %v", k, w, pv[k])
		}
	}
}

func TestPivots_FewerThanTwoDays(t *testing.T) {
	bars := []model.Bar{
		bar(0, time.Hour, 1, 2, 0.5, 1.5, 1),
		bar(1, time.Hour, 1, 2, 0.5, 1.5, 1),
	}
	pv, err := Pivots(bars)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if pv != nil {
		t.Errorf("expected undefined pivots, got %v", pv)
	}
}

func TestVolumeProfile_ConservesVolume(t *testing.T) {
	bars := trendBars(200)
	bars[50].High, bars[50].Low = bars[50].Close, bars[50].Close // zero-range bar

	p, err := VolumeProfile(bars, 200, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	total := 0.0
	for _, b := range bars {
		total += b.Volume
	}
	if math.Abs(p.TotalVolume()-total) > 1e-6 {
		t.Errorf("expected bucket total %v, got %v", total, p.TotalVolume())
	}
	if len(p.HVN) == 0 || len(p.LVN) == 0 {
		t.Errorf("expected non-empty node sets, got hvn=%d lvn=%d", len(p.HVN), len(p.LVN))
	}
}

func TestVolumeProfile_NodesRanking(t *testing.T) {
	// Ten one-unit buckets from 100 to 110; the bar covering 104..105 carries most volume.
	var bars []model.Bar
	for i := 0; i < 10; i++ {
		lo := 100 + float64(i)
		vol := 10.0
		if i == 4 {
			vol = 1000
		}
		if i == 7 {
			vol = 1
		}
		bars = append(bars, bar(i, time.Minute, lo, lo+1, lo, lo+0.5, vol))
	}
	p, err := VolumeProfile(bars, 10, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.HVN) != 1 || !near(p.HVN[0], 104.5) {
		t.Errorf("expected HVN [104.5], got %v", p.HVN)
	}
	if len(p.LVN) != 1 || !near(p.LVN[0], 107.5) {
		t.Errorf("expected LVN [107.5], got %v", p.LVN)
	}
}

func TestVolumeProfile_ZeroRangeBarUsesClose(t *testing.T) {
	bars := []model.Bar{
		bar(0, time.Minute, 100, 102, 100, 101, 0),
		bar(1, time.Minute, 101.2, 101.2, 101.2, 101.2, 50),
	}
	p, err := VolumeProfile(bars, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if p.Buckets[1].Volume != 50 {
		t.Errorf("expected full volume in bucket [101,102), got %+v", p.Buckets)
	}
}

func TestVolumeProfile_Degenerate(t *testing.T) {
	bars := []model.Bar{
		bar(0, time.Minute, 100, 100, 100, 100, 10),
		bar(1, time.Minute, 100, 100, 100, 100, 10),
	}
	p, err := VolumeProfile(bars, 2, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.HVN) != 0 || len(p.LVN) != 0 || len(p.Buckets) != 0 {
		t.Errorf("expected empty profile, got %+v", p)
	}
}
