package model

import "fmt"

// Side is the direction of an order or position.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the side that closes a position of this side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Filling is the order filling policy.
type Filling string

const (
	FillOrKill Filling = "FOK"
	FillReturn Filling = "RETURN"
)

// RetcodeDone is the terminal's success code for checked and sent orders.
const RetcodeDone = 10009

// Position is an open position reported by the terminal.
type Position struct {
	Ticket       int64   `json:"ticket"`
	Symbol       string  `json:"symbol"`
	Side         Side    `json:"side"`
	Volume       float64 `json:"volume"`
	PriceOpen    float64 `json:"price_open"`
	PriceCurrent float64 `json:"price_current"`
	Profit       float64 `json:"profit"`
	Magic        int64   `json:"magic"`
}

// OrderRequest is a market deal request.
type OrderRequest struct {
	Symbol     string  `json:"symbol"`
	Side       Side    `json:"side"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
	StopLoss   float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
	Deviation  int     `json:"deviation"`
	Magic      int64   `json:"magic"`
	Comment    string  `json:"comment"`
	Position   int64   `json:"position,omitempty"` // ticket of the position being closed
	Filling    Filling `json:"filling"`
}

// OrderResult is the terminal's answer to a check or send.
type OrderResult struct {
	Retcode int     `json:"retcode"`
	Order   int64   `json:"order"`
	Deal    int64   `json:"deal"`
	Price   float64 `json:"price"`
	Volume  float64 `json:"volume"`
	Comment string  `json:"comment"`
}

// Done reports whether the terminal accepted the request.
func (r *OrderResult) Done() bool { return r != nil && r.Retcode == RetcodeDone }

// BrokerError is any failed terminal operation.
type BrokerError struct {
	Op      string
	Code    int
	Comment string
}

func (e *BrokerError) Error() string {
	if e.Comment == "" {
		return fmt.Sprintf("%s failed, code %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s failed, code %d: %s", e.Op, e.Code, e.Comment)
}
