// Package broker abstracts the trading terminal: market data, account
// state and order routing.
package broker

import (
	"context"

	"ConfluenceTrader/internal/model"
)

// Broker is the trading terminal collaborator. Every failure is reported as an
// error, usually a *model.BrokerError.
type Broker interface {
	Connect(ctx context.Context) error
	Close() error

	Bars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.Bar, error)
	Tick(ctx context.Context, symbol string) (model.Tick, error)
	Account(ctx context.Context) (model.Account, error)
	Symbol(ctx context.Context, symbol string) (model.SymbolInfo, error)

	Positions(ctx context.Context, symbol string) ([]model.Position, error)
	PositionByTicket(ctx context.Context, ticket int64) (model.Position, error)

	CheckOrder(ctx context.Context, req model.OrderRequest) (model.OrderResult, error)
	SendOrder(ctx context.Context, req model.OrderRequest) (model.OrderResult, error)

	Name() string
}

// BarSource supplies historical bars.
type BarSource interface {
	Bars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.Bar, error)
	Name() string
}
