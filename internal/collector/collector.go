// Package collector gathers everything a cycle needs from the broker.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"ConfluenceTrader/internal/broker"
	"ConfluenceTrader/internal/model"
)

// Collector fetches the market state for one symbol and timeframe.
type Collector struct {
	Broker    broker.Broker
	Symbol    string
	Timeframe model.Timeframe
	Count     int
}

// NewCollector creates a new Collector that requests count bars per cycle.
func NewCollector(b broker.Broker, symbol string, tf model.Timeframe, count int) *Collector {
	return &Collector{Broker: b, Symbol: symbol, Timeframe: tf, Count: count}
}

// Collect fetches bars, quote, account, symbol constraints and open positions.
func (c *Collector) Collect(ctx context.Context) (*model.MarketState, error) {
	bars, err := c.Broker.Bars(ctx, c.Symbol, c.Timeframe, c.Count)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	if len(bars) < c.Count {
		log.Warn().Int("got", len(bars)).Int("want", c.Count).Msg("broker returned fewer bars than requested")
	}
	tick, err := c.Broker.Tick(ctx, c.Symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch tick: %w", err)
	}
	account, err := c.Broker.Account(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}
	info, err := c.Broker.Symbol(ctx, c.Symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch symbol info: %w", err)
	}
	positions, err := c.Broker.Positions(ctx, c.Symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch positions: %w", err)
	}

	return &model.MarketState{
		Symbol:    c.Symbol,
		Timeframe: c.Timeframe,
		Bars:      bars,
		Tick:      tick,
		Account:   account,
		Info:      info,
		Positions: positions,
		FetchedAt: time.Now().UTC(),
	}, nil
}
