package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"ConfluenceTrader/internal/model"
)

// Status is the content of a status report.
type Status struct {
	Symbol    string
	Timeframe model.Timeframe
	Paused    bool
	Account   model.Account
	Positions []model.Position
	Since     time.Time
	Cycles    int
	Signals   int
	Traded    int
	Rejected  int
	Errors    int
}

func level(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.5g", v)
}

// FormatSignal formats an actionable signal.
func FormatSignal(symbol string, sig *model.Signal) string {
	var b strings.Builder
	icon := "🟢"
	if sig.Direction == model.DirectionSell {
		icon = "🔴"
	}
	b.WriteString(fmt.Sprintf("%s <b>%s %s</b>\n\n", icon, sig.Direction, html.EscapeString(symbol)))
	b.WriteString(fmt.Sprintf("Entry: %.5g\n", sig.Entry))
	b.WriteString(fmt.Sprintf("SL: %.5g | TP: %.5g (%.0f pts)\n", sig.StopLoss, sig.TakeProfit, sig.StopPoints))
	b.WriteString(fmt.Sprintf("Volume: %.2f\n", sig.Volume))
	b.WriteString(fmt.Sprintf("Support: %s | Resistance: %s\n", level(sig.ClosestSupport), level(sig.ClosestResistance)))
	if sig.Reason != "" {
		b.WriteString(fmt.Sprintf("Reason: %s\n", html.EscapeString(sig.Reason)))
	}
	return b.String()
}

// FormatOrderResult formats a filled order.
func FormatOrderResult(symbol string, sig *model.Signal, res *model.OrderResult) string {
	return fmt.Sprintf("✅ <b>Order filled</b> %s %s %.2f @ %.5g\nOrder #%d, deal #%d",
		sig.Direction, html.EscapeString(symbol), res.Volume, res.Price, res.Order, res.Deal)
}

// FormatRejection formats an order the broker refused.
func FormatRejection(symbol string, sig *model.Signal, err error) string {
	return fmt.Sprintf("⚠️ <b>Order rejected</b> %s %s %.2f\n%s",
		sig.Direction, html.EscapeString(symbol), sig.Volume, html.EscapeString(err.Error()))
}

// FormatClose formats a closed position.
func FormatClose(ticket int64, res *model.OrderResult, reason string) string {
	return fmt.Sprintf("☑️ <b>Position #%d closed</b> @ %.5g (%s)", ticket, res.Price, html.EscapeString(reason))
}

// FormatPositions lists open positions.
func FormatPositions(positions []model.Position) string {
	if len(positions) == 0 {
		return "No open positions."
	}
	var b strings.Builder
	b.WriteString("📋 <b>Open positions</b>\n\n")
	total := 0.0
	for _, p := range positions {
		b.WriteString(fmt.Sprintf("#%d %s %s %.2f @ %.5g → %.5g  P/L %+.2f\n",
			p.Ticket, p.Side, html.EscapeString(p.Symbol), p.Volume, p.PriceOpen, p.PriceCurrent, p.Profit))
		total += p.Profit
	}
	b.WriteString(fmt.Sprintf("\nTotal P/L: %+.2f", total))
	return b.String()
}

// FormatStatus formats the periodic status report.
func FormatStatus(s *Status) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>ConfluenceTrader</b> | %s %s\n\n", html.EscapeString(s.Symbol), s.Timeframe))
	state := "running"
	if s.Paused {
		state = "paused"
	}
	b.WriteString(fmt.Sprintf("State: %s\n", state))
	b.WriteString(fmt.Sprintf("Balance: %.2f %s | Equity: %.2f\n", s.Account.Balance, s.Account.Currency, s.Account.Equity))
	b.WriteString(fmt.Sprintf("Open positions: %d\n", len(s.Positions)))
	if !s.Since.IsZero() {
		b.WriteString(fmt.Sprintf("\nSince %s:\n", s.Since.Format("2006-01-02 15:04")))
		b.WriteString(fmt.Sprintf("  cycles %d, signals %d, traded %d, rejected %d, errors %d\n",
			s.Cycles, s.Signals, s.Traded, s.Rejected, s.Errors))
	}
	return b.String()
}
