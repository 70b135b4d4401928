// Package scheduler runs the trading pipeline on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"ConfluenceTrader/internal/broker"
	"ConfluenceTrader/internal/collector"
	"ConfluenceTrader/internal/executor"
	"ConfluenceTrader/internal/indicator"
	"ConfluenceTrader/internal/logging"
	"ConfluenceTrader/internal/metrics"
	"ConfluenceTrader/internal/model"
	"ConfluenceTrader/internal/notifier"
	"ConfluenceTrader/internal/recorder"
	"ConfluenceTrader/internal/risk"
	"ConfluenceTrader/internal/strategy"
)

// SignalEvaluator decides the trade of one cycle.
type SignalEvaluator interface {
	Evaluate(in strategy.Input) *model.Signal
}

// Deps are the collaborators of a scheduler.
type Deps struct {
	Broker     broker.Broker
	Collector  *collector.Collector
	Engine     *indicator.Engine
	Evaluator  SignalEvaluator
	Sizer      *risk.Sizer
	Dispatcher *executor.Dispatcher
	Notifier   notifier.Notifier
	Recorder   recorder.Recorder
	Metrics    *metrics.Metrics
}

// Options controls the loop.
type Options struct {
	Symbol         string
	Timeframe      model.Timeframe
	PollInterval   time.Duration
	StatusCron     string
	MaxPositions   int
	Magic          int64
	CloseOnReverse bool
}

// Scheduler manages the polling cycle and the status report.
type Scheduler struct {
	Cron *cron.Cron
	Deps
	Ctx  context.Context
	opts Options

	// mu serialises cycles with command-issued closes.
	mu     sync.Mutex
	paused atomic.Bool
}

// NewScheduler creates a new Scheduler. Cron jobs never overlap and a panic
// inside a job is logged.
func NewScheduler(ctx context.Context, deps Deps, opts Options) *Scheduler {
	logger := logging.CronLogger{}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		Deps: deps,
		Ctx:  ctx,
		opts: opts,
	}
}

// RegisterAll registers the polling cycle and the status report.
func (s *Scheduler) RegisterAll() error {
	if s.opts.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if _, err := s.Cron.AddFunc("@every "+s.opts.PollInterval.String(), s.cycleTask); err != nil {
		return fmt.Errorf("register cycle task: %w", err)
	}
	if s.opts.StatusCron != "" {
		if _, err := s.Cron.AddFunc(s.opts.StatusCron, s.statusTask); err != nil {
			return fmt.Errorf("register status task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Str("symbol", s.opts.Symbol).Dur("interval", s.opts.PollInterval).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// Pause stops trading until Resume; cycles are still logged as skipped.
func (s *Scheduler) Pause() {
	s.paused.Store(true)
	s.Metrics.SetPaused(true)
}

func (s *Scheduler) Resume() {
	s.paused.Store(false)
	s.Metrics.SetPaused(false)
}

func (s *Scheduler) Paused() bool { return s.paused.Load() }

func (s *Scheduler) cycleTask() {
	ctx, cancel := context.WithTimeout(s.Ctx, s.opts.PollInterval)
	defer cancel()
	s.RunCycle(ctx)
}

func (s *Scheduler) statusTask() {
	st, err := s.status(s.Ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		log.Error().Err(err).Msg("status report")
		return
	}
	s.trySend(notifier.FormatStatus(st))
}

// RunCycle executes one fetch, compute, evaluate, size and dispatch pass and
// returns its journal entry. Failures end the cycle; the next one starts fresh.
func (s *Scheduler) RunCycle(ctx context.Context) *recorder.CycleRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &recorder.CycleRecord{
		ID:                uuid.NewString(),
		StartedAt:         time.Now().UTC(),
		Symbol:            s.opts.Symbol,
		Direction:         string(model.DirectionNone),
		ClosestSupport:    math.Inf(-1),
		ClosestResistance: math.Inf(1),
	}
	defer s.finish(rec)

	if s.Paused() {
		rec.Result, rec.Reason = recorder.ResultSkipped, "paused"
		return rec
	}

	state, err := s.Collector.Collect(ctx)
	if err != nil {
		log.Error().Err(err).Str("cycle", rec.ID).Msg("market data fetch failed")
		rec.Result, rec.Error = recorder.ResultError, err.Error()
		return rec
	}
	rec.Bid, rec.Ask, rec.Equity = state.Tick.Bid, state.Tick.Ask, state.Account.Equity
	s.Metrics.Account(state.Account.Equity, len(state.Positions))

	snap, err := s.Engine.Compute(state.Bars)
	if err != nil {
		if errors.Is(err, indicator.ErrInsufficientData) {
			log.Warn().Err(err).Msg("skipping cycle")
			rec.Result, rec.Reason = recorder.ResultSkipped, err.Error()
			return rec
		}
		log.Error().Err(err).Msg("indicator computation failed")
		rec.Result, rec.Error = recorder.ResultError, err.Error()
		return rec
	}
	rec.EMAShort, rec.EMALong, rec.ATR = snap.EMAShort, snap.EMALong, snap.ATR

	sig := s.evaluate(snap, state)
	rec.Direction, rec.Reason = string(sig.Direction), sig.Reason
	rec.ClosestSupport, rec.ClosestResistance = sig.ClosestSupport, sig.ClosestResistance

	side, ok := sig.Direction.Side()
	if !ok {
		rec.Result = recorder.ResultNoSignal
		return rec
	}

	sig.Volume = s.Sizer.Size(state.Account.Equity, sig.StopPoints, state.Info)
	rec.Volume = sig.Volume
	if sig.Volume <= 0 {
		log.Warn().Str("direction", string(sig.Direction)).Float64("stop_points", sig.StopPoints).
			Msg("computed volume below minimum step, skipping trade")
		rec.Result, rec.Reason = recorder.ResultNoSignal, "volume rounds to zero"
		return rec
	}
	s.Metrics.Signal(string(sig.Direction))
	log.Info().Str("cycle", rec.ID).Stringer("signal", sig).Str("reason", sig.Reason).Msg("signal")
	s.trySend(notifier.FormatSignal(s.opts.Symbol, sig))

	if s.opts.CloseOnReverse {
		closed, err := s.Dispatcher.CloseOpposite(ctx, s.opts.Symbol, side)
		for _, c := range closed {
			s.recordClose(rec.ID, c.Position.Ticket, &c.Result, "reverse")
		}
		if err != nil {
			s.Metrics.Order("close", false)
			s.orderFailed(rec, sig, err)
			return rec
		}
	}

	res, err := s.Dispatcher.Open(ctx, sig, s.opts.Symbol)
	if err != nil {
		s.Metrics.Order("open", false)
		s.orderFailed(rec, sig, err)
		return rec
	}
	s.Metrics.Order("open", true)
	s.record(s.Recorder.RecordOrder(&recorder.OrderRecord{
		CycleID:    rec.ID,
		Symbol:     s.opts.Symbol,
		Side:       string(side),
		Volume:     res.Volume,
		Price:      res.Price,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		Order:      res.Order,
		Retcode:    res.Retcode,
		Comment:    res.Comment,
	}))
	s.trySend(notifier.FormatOrderResult(s.opts.Symbol, sig, res))
	rec.Result = recorder.ResultTraded
	return rec
}

// evaluate gates on open positions. With close-on-reverse only positions on
// the signal's own side count, since opposite ones are about to be closed.
func (s *Scheduler) evaluate(snap *indicator.Snapshot, state *model.MarketState) *model.Signal {
	in := strategy.Input{
		Snapshot:      snap,
		Tick:          state.Tick,
		Info:          state.Info,
		OpenPositions: len(state.Positions),
	}
	if !s.opts.CloseOnReverse {
		return s.Evaluator.Evaluate(in)
	}

	in.OpenPositions = 0
	sig := s.Evaluator.Evaluate(in)
	side, ok := sig.Direction.Side()
	if !ok {
		return sig
	}
	same := 0
	for _, p := range state.Positions {
		if p.Side == side && p.Magic == s.opts.Magic {
			same++
		}
	}
	if same >= s.opts.MaxPositions {
		return &model.Signal{
			Direction:         model.DirectionNone,
			ClosestSupport:    sig.ClosestSupport,
			ClosestResistance: sig.ClosestResistance,
			Reason:            fmt.Sprintf("max positions reached (%d/%d)", same, s.opts.MaxPositions),
		}
	}
	return sig
}

func (s *Scheduler) orderFailed(rec *recorder.CycleRecord, sig *model.Signal, err error) {
	rec.Error = err.Error()
	var be *model.BrokerError
	if errors.As(err, &be) {
		rec.Result = recorder.ResultRejected
		side, _ := sig.Direction.Side()
		s.record(s.Recorder.RecordOrder(&recorder.OrderRecord{
			CycleID:    rec.ID,
			Symbol:     s.opts.Symbol,
			Side:       string(side),
			Volume:     sig.Volume,
			Price:      sig.Entry,
			StopLoss:   sig.StopLoss,
			TakeProfit: sig.TakeProfit,
			Retcode:    be.Code,
			Comment:    be.Comment,
		}))
		log.Error().Err(err).Str("cycle", rec.ID).Msg("order rejected")
	} else {
		rec.Result = recorder.ResultError
		log.Error().Err(err).Str("cycle", rec.ID).Msg("order dispatch failed")
	}
	s.trySend(notifier.FormatRejection(s.opts.Symbol, sig, err))
}

func (s *Scheduler) recordClose(cycleID string, ticket int64, res *model.OrderResult, reason string) {
	s.Metrics.Order("close", true)
	s.record(s.Recorder.RecordClose(&recorder.CloseRecord{
		CycleID: cycleID,
		Ticket:  ticket,
		Price:   res.Price,
		Volume:  res.Volume,
		Retcode: res.Retcode,
		Reason:  reason,
	}))
	s.trySend(notifier.FormatClose(ticket, res, reason))
}

func (s *Scheduler) finish(rec *recorder.CycleRecord) {
	rec.Duration = time.Since(rec.StartedAt)
	s.Metrics.ObserveCycle(rec.Result, rec.Duration)
	s.record(s.Recorder.RecordCycle(rec))
	log.Info().
		Str("cycle", rec.ID).
		Str("result", rec.Result).
		Str("direction", rec.Direction).
		Float64("bid", rec.Bid).
		Dur("took", rec.Duration).
		Msg("cycle finished")
}

func (s *Scheduler) status(ctx context.Context, since time.Time) (*notifier.Status, error) {
	account, err := s.Broker.Account(ctx)
	if err != nil {
		return nil, fmt.Errorf("account: %w", err)
	}
	positions, err := s.Broker.Positions(ctx, s.opts.Symbol)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	sum, err := s.Recorder.Summary(since)
	if err != nil {
		log.Warn().Err(err).Msg("journal summary unavailable")
	}
	return &notifier.Status{
		Symbol:    s.opts.Symbol,
		Timeframe: s.opts.Timeframe,
		Paused:    s.Paused(),
		Account:   account,
		Positions: positions,
		Since:     since,
		Cycles:    sum.Cycles,
		Signals:   sum.Signals,
		Traded:    sum.Traded,
		Rejected:  sum.Rejected,
		Errors:    sum.Errors,
	}, nil
}

func (s *Scheduler) record(err error) {
	if err != nil {
		log.Error().Err(err).Msg("journal write failed")
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
