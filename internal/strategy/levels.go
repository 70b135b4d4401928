package strategy

import (
	"math"
	"sort"

	"ConfluenceTrader/internal/indicator"
)

// Level is a named support/resistance price.
type Level struct {
	Source string // "fib", "pivot", "ema", "hvn"
	Name   string
	Price  float64
}

// Levels splits pooled levels around the current quote.
type Levels struct {
	Supports    []Level // below bid
	Resistances []Level // above ask
}

// CollectLevels pools every defined level from a snapshot.
func CollectLevels(snap *indicator.Snapshot) []Level {
	var out []Level
	for _, r := range indicator.FibRatios {
		if p, ok := snap.Fib[r.Name]; ok {
			out = append(out, Level{Source: "fib", Name: r.Name, Price: p})
		}
	}
	for _, name := range indicator.PivotNames {
		if p, ok := snap.Pivots[name]; ok {
			out = append(out, Level{Source: "pivot", Name: name, Price: p})
		}
	}
	out = append(out,
		Level{Source: "ema", Name: "short", Price: snap.EMAShort},
		Level{Source: "ema", Name: "long", Price: snap.EMALong},
	)
	for _, p := range snap.HVN {
		out = append(out, Level{Source: "hvn", Name: "hvn", Price: p})
	}
	return out
}

// Split partitions levels into supports below bid and resistances above ask.
// Levels inside the spread or undefined (NaN) belong to neither side.
func Split(levels []Level, bid, ask float64) Levels {
	var ls Levels
	for _, l := range levels {
		switch {
		case math.IsNaN(l.Price):
		case l.Price < bid:
			ls.Supports = append(ls.Supports, l)
		case l.Price > ask:
			ls.Resistances = append(ls.Resistances, l)
		}
	}
	sort.Slice(ls.Supports, func(i, j int) bool { return ls.Supports[i].Price > ls.Supports[j].Price })
	sort.Slice(ls.Resistances, func(i, j int) bool { return ls.Resistances[i].Price < ls.Resistances[j].Price })
	return ls
}

// Pool collects the snapshot's levels and splits them around bid/ask.
func Pool(snap *indicator.Snapshot, bid, ask float64) Levels {
	return Split(CollectLevels(snap), bid, ask)
}

// ClosestSupport returns the highest support, or -Inf when there is none.
func (ls Levels) ClosestSupport() float64 {
	if len(ls.Supports) == 0 {
		return math.Inf(-1)
	}
	return ls.Supports[0].Price
}

// ClosestResistance returns the lowest resistance, or +Inf when there is none.
func (ls Levels) ClosestResistance() float64 {
	if len(ls.Resistances) == 0 {
		return math.Inf(1)
	}
	return ls.Resistances[0].Price
}

// NearAny reports whether price is strictly within tolerance of any finite level.
func NearAny(price, tolerance float64, levels ...float64) bool {
	for _, l := range levels {
		if math.IsNaN(l) || math.IsInf(l, 0) {
			continue
		}
		if math.Abs(price-l) < tolerance {
			return true
		}
	}
	return false
}
