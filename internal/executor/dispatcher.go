// Package executor turns signals into validated market orders.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"ConfluenceTrader/internal/broker"
	"ConfluenceTrader/internal/model"
)

// ErrNotActionable is returned when asked to open a NONE or zero-volume signal.
var ErrNotActionable = errors.New("signal is not actionable")

// Config holds the fixed order fields.
type Config struct {
	Deviation    int
	Magic        int64
	Comment      string
	CloseComment string
}

// Dispatcher submits and closes market orders. Every order is checked by the
// broker before it is sent and nothing is retried.
type Dispatcher struct {
	broker broker.Broker
	cfg    Config
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(b broker.Broker, cfg Config) *Dispatcher {
	if cfg.CloseComment == "" {
		cfg.CloseComment = "close"
	}
	return &Dispatcher{broker: b, cfg: cfg}
}

// Open submits a fill-or-kill market order for the signal.
func (d *Dispatcher) Open(ctx context.Context, sig *model.Signal, symbol string) (*model.OrderResult, error) {
	if sig == nil || !sig.Actionable() {
		return nil, ErrNotActionable
	}
	side, _ := sig.Direction.Side()
	req := model.OrderRequest{
		Symbol:     symbol,
		Side:       side,
		Volume:     sig.Volume,
		Price:      sig.Entry,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		Deviation:  d.cfg.Deviation,
		Magic:      d.cfg.Magic,
		Comment:    d.cfg.Comment,
		Filling:    model.FillOrKill,
	}
	res, err := d.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Info().Str("symbol", symbol).Str("side", string(side)).Float64("volume", sig.Volume).
		Float64("price", res.Price).Int64("order", res.Order).Msg("order placed")
	return res, nil
}

// Close closes the position with the given ticket at the current quote.
func (d *Dispatcher) Close(ctx context.Context, ticket int64) (*model.OrderResult, error) {
	pos, err := d.broker.PositionByTicket(ctx, ticket)
	if err != nil {
		return nil, fmt.Errorf("position %d: %w", ticket, err)
	}
	return d.closePosition(ctx, pos)
}

// Closed pairs a closed position with the order that closed it.
type Closed struct {
	Position model.Position
	Result   model.OrderResult
}

// CloseOpposite closes every position of this bot on symbol whose side is
// opposite to side. It stops at the first failure.
func (d *Dispatcher) CloseOpposite(ctx context.Context, symbol string, side model.Side) ([]Closed, error) {
	positions, err := d.broker.Positions(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	var closed []Closed
	for _, pos := range positions {
		if pos.Magic != d.cfg.Magic || pos.Side != side.Opposite() {
			continue
		}
		res, err := d.closePosition(ctx, pos)
		if err != nil {
			return closed, err
		}
		closed = append(closed, Closed{Position: pos, Result: *res})
	}
	return closed, nil
}

func (d *Dispatcher) closePosition(ctx context.Context, pos model.Position) (*model.OrderResult, error) {
	tick, err := d.broker.Tick(ctx, pos.Symbol)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", pos.Symbol, err)
	}
	price := tick.Ask
	if pos.Side == model.SideBuy {
		price = tick.Bid
	}
	req := model.OrderRequest{
		Symbol:    pos.Symbol,
		Side:      pos.Side.Opposite(),
		Volume:    pos.Volume,
		Price:     price,
		Deviation: d.cfg.Deviation,
		Magic:     d.cfg.Magic,
		Comment:   d.cfg.CloseComment,
		Position:  pos.Ticket,
		Filling:   model.FillReturn,
	}
	res, err := d.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("ticket", pos.Ticket).Float64("price", res.Price).Msg("position closed")
	return res, nil
}

func (d *Dispatcher) submit(ctx context.Context, req model.OrderRequest) (*model.OrderResult, error) {
	check, err := d.broker.CheckOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	if !check.Done() {
		return nil, &model.BrokerError{Op: "order_check", Code: check.Retcode, Comment: check.Comment}
	}
	res, err := d.broker.SendOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	if !res.Done() {
		return nil, &model.BrokerError{Op: "order_send", Code: res.Retcode, Comment: res.Comment}
	}
	return &res, nil
}
