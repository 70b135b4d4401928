package model

import "fmt"

// Direction is the decision produced by one evaluation cycle.
type Direction string

const (
	DirectionNone Direction = "NONE"
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Side maps a trade direction to an order side. NONE has no side.
func (d Direction) Side() (Side, bool) {
	switch d {
	case DirectionBuy:
		return SideBuy, true
	case DirectionSell:
		return SideSell, true
	default:
		return "", false
	}
}

// Signal is a transient trade decision, valid only within one cycle.
type Signal struct {
	Direction         Direction
	Entry             float64
	StopLoss          float64
	TakeProfit        float64
	StopPoints        float64
	Volume            float64
	ClosestSupport    float64
	ClosestResistance float64
	Tolerance         float64
	Reason            string
}

// Actionable reports whether the signal should result in an order.
func (s *Signal) Actionable() bool {
	return s != nil && s.Direction != DirectionNone && s.Volume > 0
}

func (s *Signal) String() string {
	if s == nil || s.Direction == DirectionNone {
		return "NONE"
	}
	return fmt.Sprintf("%s vol=%.2f entry=%.5f sl=%.5f tp=%.5f", s.Direction, s.Volume, s.Entry, s.StopLoss, s.TakeProfit)
}
