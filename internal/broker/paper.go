package broker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"ConfluenceTrader/internal/model"
)

// Terminal return codes produced by the paper broker.
const (
	RetcodeInvalid       = 10013
	RetcodeInvalidVolume = 10014
	RetcodeInvalidStops  = 10016
	RetcodeNoConnection  = 10031
	RetcodePosNotFound   = 10036
)

// PaperConfig parameterises a paper broker.
type PaperConfig struct {
	Symbol  string
	Balance float64
	Spread  int // in points
	Info    model.SymbolInfo
	Source  BarSource // optional; synthetic bars when nil
}

const syntheticBase = 2000.0

// Paper simulates a terminal in memory: market fills at the current quote,
// a position book and realised profit booked into the balance.
type Paper struct {
	mu        sync.Mutex
	cfg       PaperConfig
	connected bool
	bars      []model.Bar
	tick      *model.Tick
	balance   float64
	positions []model.Position
	seq       int64
	synthetic bool
	seqBars   int
}

// NewPaper creates a paper broker.
func NewPaper(cfg PaperConfig) *Paper {
	if cfg.Info.Name == "" {
		cfg.Info.Name = cfg.Symbol
	}
	return &Paper{cfg: cfg, balance: cfg.Balance}
}

func (p *Paper) Name() string { return "paper" }

func (p *Paper) Connect(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	log.Info().Str("symbol", p.cfg.Symbol).Float64("balance", p.balance).Msg("paper broker connected")
	return nil
}

func (p *Paper) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

// SetBars replaces the bar history. The quote follows the last close until
// SetTick overrides it.
func (p *Paper) SetBars(bars []model.Bar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bars = append([]model.Bar(nil), bars...)
	p.tick = nil
	p.synthetic = false
}

// SetTick pins the quote.
func (p *Paper) SetTick(t model.Tick) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tick = &t
}

func (p *Paper) Bars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.Bar, error) {
	if err := p.checkConnected("copy_rates"); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cfg.Source != nil {
		bars, err := p.cfg.Source.Bars(ctx, symbol, tf, count)
		if err != nil {
			return nil, &model.BrokerError{Op: "copy_rates", Code: RetcodeNoConnection, Comment: err.Error()}
		}
		p.bars = bars
		p.tick = nil
	} else if p.synthetic || len(p.bars) == 0 {
		d, err := tf.Duration()
		if err != nil {
			return nil, &model.BrokerError{Op: "copy_rates", Code: RetcodeInvalid, Comment: err.Error()}
		}
		if len(p.bars) == 0 {
			p.synthetic = true
			p.bars = SyntheticBars(syntheticBase, count, d, time.Now().UTC())
			p.seqBars = count
		} else {
			// one new bar per fetch
			p.bars = append(p.bars, nextSyntheticBar(syntheticBase, p.seqBars, p.bars[len(p.bars)-1], d))
			p.seqBars++
			p.tick = nil
			if len(p.bars) > 2*count {
				p.bars = append([]model.Bar(nil), p.bars[len(p.bars)-count:]...)
			}
		}
	}

	bars := p.bars
	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return append([]model.Bar(nil), bars...), nil
}

func (p *Paper) Tick(_ context.Context, _ string) (model.Tick, error) {
	if err := p.checkConnected("symbol_info_tick"); err != nil {
		return model.Tick{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quote()
}

func (p *Paper) Account(_ context.Context) (model.Account, error) {
	if err := p.checkConnected("account_info"); err != nil {
		return model.Account{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	equity := p.balance
	for _, pos := range p.positions {
		equity += pos.Profit
	}
	return model.Account{Login: 1, Server: "paper", Currency: "USD", Balance: p.balance, Equity: equity}, nil
}

func (p *Paper) Symbol(_ context.Context, symbol string) (model.SymbolInfo, error) {
	if symbol != p.cfg.Symbol {
		return model.SymbolInfo{}, &model.BrokerError{Op: "symbol_info", Code: RetcodeInvalid, Comment: "unknown symbol " + symbol}
	}
	return p.cfg.Info, nil
}

func (p *Paper) Positions(_ context.Context, symbol string) ([]model.Position, error) {
	if err := p.checkConnected("positions_get"); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markToMarket()
	var out []model.Position
	for _, pos := range p.positions {
		if symbol == "" || pos.Symbol == symbol {
			out = append(out, pos)
		}
	}
	return out, nil
}

func (p *Paper) PositionByTicket(_ context.Context, ticket int64) (model.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markToMarket()
	for _, pos := range p.positions {
		if pos.Ticket == ticket {
			return pos, nil
		}
	}
	return model.Position{}, &model.BrokerError{Op: "positions_get", Code: RetcodePosNotFound, Comment: fmt.Sprintf("ticket %d", ticket)}
}

func (p *Paper) CheckOrder(_ context.Context, req model.OrderRequest) (model.OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.check(req), nil
}

func (p *Paper) SendOrder(_ context.Context, req model.OrderRequest) (model.OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := p.check(req)
	if !res.Done() {
		return res, nil
	}
	t, err := p.quote()
	if err != nil {
		return model.OrderResult{}, err
	}
	price := t.Ask
	if req.Side == model.SideSell {
		price = t.Bid
	}

	p.seq++
	ticket := p.seq
	if req.Position != 0 {
		idx := p.indexOf(req.Position)
		pos := p.positions[idx]
		profit := p.profit(pos.Side, pos.PriceOpen, price, pos.Volume)
		p.balance += profit
		p.positions = append(p.positions[:idx], p.positions[idx+1:]...)
		log.Info().Int64("ticket", pos.Ticket).Float64("price", price).Float64("profit", profit).Msg("paper position closed")
	} else {
		p.positions = append(p.positions, model.Position{
			Ticket:       ticket,
			Symbol:       req.Symbol,
			Side:         req.Side,
			Volume:       req.Volume,
			PriceOpen:    price,
			PriceCurrent: price,
			Magic:        req.Magic,
		})
		log.Info().Int64("ticket", ticket).Str("side", string(req.Side)).
			Float64("volume", req.Volume).Float64("price", price).Msg("paper position opened")
	}
	return model.OrderResult{
		Retcode: model.RetcodeDone,
		Order:   ticket,
		Deal:    ticket,
		Price:   price,
		Volume:  req.Volume,
		Comment: "paper fill",
	}, nil
}

func (p *Paper) check(req model.OrderRequest) model.OrderResult {
	reject := func(code int, comment string) model.OrderResult {
		return model.OrderResult{Retcode: code, Comment: comment}
	}
	if !p.connected {
		return reject(RetcodeNoConnection, "no connection")
	}
	if req.Symbol != p.cfg.Symbol {
		return reject(RetcodeInvalid, "unknown symbol")
	}
	if req.Side != model.SideBuy && req.Side != model.SideSell {
		return reject(RetcodeInvalid, "invalid side")
	}
	info := p.cfg.Info
	if req.Volume <= 0 || (info.VolumeMin > 0 && req.Volume < info.VolumeMin) ||
		(info.VolumeMax > 0 && req.Volume > info.VolumeMax) {
		return reject(RetcodeInvalidVolume, "invalid volume")
	}
	if req.Position != 0 {
		idx := p.indexOf(req.Position)
		if idx < 0 {
			return reject(RetcodePosNotFound, "position not found")
		}
		if p.positions[idx].Side == req.Side {
			return reject(RetcodeInvalid, "close must be opposite side")
		}
		return model.OrderResult{Retcode: model.RetcodeDone, Comment: "Done"}
	}
	t, err := p.quote()
	if err != nil {
		return reject(RetcodeInvalid, "no quote")
	}
	switch req.Side {
	case model.SideBuy:
		if (req.StopLoss != 0 && req.StopLoss >= t.Bid) || (req.TakeProfit != 0 && req.TakeProfit <= t.Ask) {
			return reject(RetcodeInvalidStops, "invalid stops")
		}
	case model.SideSell:
		if (req.StopLoss != 0 && req.StopLoss <= t.Ask) || (req.TakeProfit != 0 && req.TakeProfit >= t.Bid) {
			return reject(RetcodeInvalidStops, "invalid stops")
		}
	}
	return model.OrderResult{Retcode: model.RetcodeDone, Comment: "Done"}
}

// quote must be called with p.mu held.
func (p *Paper) quote() (model.Tick, error) {
	if p.tick != nil {
		return *p.tick, nil
	}
	if len(p.bars) == 0 {
		return model.Tick{}, &model.BrokerError{Op: "symbol_info_tick", Code: RetcodeInvalid, Comment: "no prices"}
	}
	last := p.bars[len(p.bars)-1]
	bid := last.Close
	return model.Tick{Time: last.Time, Bid: bid, Ask: bid + float64(p.cfg.Spread)*p.cfg.Info.Point}, nil
}

func (p *Paper) markToMarket() {
	t, err := p.quote()
	if err != nil {
		return
	}
	for i := range p.positions {
		pos := &p.positions[i]
		if pos.Side == model.SideBuy {
			pos.PriceCurrent = t.Bid
		} else {
			pos.PriceCurrent = t.Ask
		}
		pos.Profit = p.profit(pos.Side, pos.PriceOpen, pos.PriceCurrent, pos.Volume)
	}
}

func (p *Paper) profit(side model.Side, open, current, volume float64) float64 {
	if p.cfg.Info.Point == 0 {
		return 0
	}
	diff := current - open
	if side == model.SideSell {
		diff = -diff
	}
	return math.Round(diff/p.cfg.Info.Point*p.cfg.Info.TickValue*volume*100) / 100
}

func (p *Paper) indexOf(ticket int64) int {
	for i, pos := range p.positions {
		if pos.Ticket == ticket {
			return i
		}
	}
	return -1
}

func (p *Paper) checkConnected(op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return &model.BrokerError{Op: op, Code: RetcodeNoConnection, Comment: "not connected"}
	}
	return nil
}

// SyntheticBars generates a deterministic oscillating series ending at end.
func SyntheticBars(basePrice float64, count int, step time.Duration, end time.Time) []model.Bar {
	bars := make([]model.Bar, 0, count)
	prev := model.Bar{
		Time:  end.Truncate(step).Add(-time.Duration(count) * step),
		Close: basePrice,
	}
	for i := 0; i < count; i++ {
		prev = nextSyntheticBar(basePrice, i, prev, step)
		bars = append(bars, prev)
	}
	return bars
}

func nextSyntheticBar(basePrice float64, i int, prev model.Bar, step time.Duration) model.Bar {
	c := basePrice * (1 + 0.01*math.Sin(float64(i)/12) + 0.002*math.Sin(float64(i)/3))
	return model.Bar{
		Time:   prev.Time.Add(step),
		Open:   prev.Close,
		High:   math.Max(prev.Close, c) * 1.0008,
		Low:    math.Min(prev.Close, c) * 0.9992,
		Close:  c,
		Volume: 100 + float64(i%17)*10,
	}
}
