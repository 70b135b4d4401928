package recorder

import "time"

// Cycle outcomes.
const (
	ResultSkipped  = "skipped"   // insufficient data or paused
	ResultNoSignal = "no_signal" // evaluated to NONE or zero volume
	ResultTraded   = "traded"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// CycleRecord describes one polling cycle.
type CycleRecord struct {
	ID                string
	StartedAt         time.Time
	Duration          time.Duration
	Symbol            string
	Bid               float64
	Ask               float64
	Equity            float64
	EMAShort          float64
	EMALong           float64
	ATR               float64
	ClosestSupport    float64
	ClosestResistance float64
	Direction         string
	Volume            float64
	Reason            string
	Result            string
	Error             string
}

// OrderRecord describes an order submitted for a signal.
type OrderRecord struct {
	CycleID    string
	Symbol     string
	Side       string
	Volume     float64
	Price      float64
	StopLoss   float64
	TakeProfit float64
	Order      int64
	Retcode    int
	Comment    string
}

// CloseRecord describes a position close.
type CloseRecord struct {
	CycleID string // empty for closes issued by command
	Ticket  int64
	Price   float64
	Volume  float64
	Retcode int
	Reason  string // "reverse" or "command"
}

// Summary aggregates cycles since a point in time.
type Summary struct {
	Cycles   int
	Signals  int
	Traded   int
	Rejected int
	Errors   int
}

// Recorder persists the trading journal.
type Recorder interface {
	RecordCycle(rec *CycleRecord) error
	RecordOrder(rec *OrderRecord) error
	RecordClose(rec *CloseRecord) error
	Summary(since time.Time) (Summary, error)
	Close() error
}
