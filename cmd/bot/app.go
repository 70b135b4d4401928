package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"ConfluenceTrader/internal/broker"
	"ConfluenceTrader/internal/collector"
	"ConfluenceTrader/internal/config"
	"ConfluenceTrader/internal/executor"
	"ConfluenceTrader/internal/indicator"
	"ConfluenceTrader/internal/metrics"
	"ConfluenceTrader/internal/notifier"
	"ConfluenceTrader/internal/recorder"
	"ConfluenceTrader/internal/risk"
	"ConfluenceTrader/internal/scheduler"
	"ConfluenceTrader/internal/strategy"
)

// app is the wired object graph of one process.
type app struct {
	broker   broker.Broker
	recorder recorder.Recorder
	telegram *notifier.TelegramNotifier
	metrics  *metrics.Metrics
	sched    *scheduler.Scheduler
}

func newBroker(cfg *config.Config) broker.Broker {
	if cfg.Broker.Mode == "paper" {
		pc := broker.PaperConfig{
			Symbol:  cfg.Trading.Symbol,
			Balance: cfg.Broker.Paper.Balance,
			Spread:  cfg.Broker.Paper.Spread,
			Info:    cfg.SymbolInfo(),
		}
		if cfg.Broker.Paper.Source == "yahoo" {
			pc.Source = broker.NewYahooSource(cfg.Proxy)
		}
		return broker.NewPaper(pc)
	}
	return broker.NewHTTPBridge(cfg.Broker.BaseURL, cfg.Broker.Token, cfg.Broker.Login, cfg.Broker.Server, cfg.Proxy)
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	b := newBroker(cfg)
	// Connectivity at startup is fatal.
	if err := b.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to %s broker: %w", b.Name(), err)
	}
	log.Info().Str("broker", b.Name()).Str("symbol", cfg.Trading.Symbol).Msg("broker connected")

	engine, err := indicator.NewEngine(cfg.Engine())
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("indicator engine: %w", err)
	}

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	a := &app{broker: b, recorder: rec, metrics: metrics.New()}

	var notif notifier.Notifier = notifier.Noop{}
	if cfg.Telegram.BotToken != "" {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		notif = a.telegram
	}

	deps := scheduler.Deps{
		Broker:    b,
		Collector: collector.NewCollector(b, cfg.Trading.Symbol, cfg.Timeframe(), engine.MinBars()),
		Engine:    engine,
		Evaluator: strategy.NewEvaluator(cfg.Strategy()),
		Sizer:     risk.NewSizer(cfg.Risk.RiskFraction),
		Dispatcher: executor.NewDispatcher(b, executor.Config{
			Deviation: cfg.Trading.Deviation,
			Magic:     cfg.Trading.Magic,
			Comment:   cfg.Trading.Comment,
		}),
		Notifier: notif,
		Recorder: rec,
		Metrics:  a.metrics,
	}
	a.sched = scheduler.NewScheduler(ctx, deps, scheduler.Options{
		Symbol:         cfg.Trading.Symbol,
		Timeframe:      cfg.Timeframe(),
		PollInterval:   cfg.Schedule.PollInterval,
		StatusCron:     cfg.Schedule.StatusCron,
		MaxPositions:   cfg.Trading.MaxPositions,
		Magic:          cfg.Trading.Magic,
		CloseOnReverse: cfg.Trading.CloseOnReverse,
	})
	return a, nil
}

// Close releases the journal and the broker session.
func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		log.Error().Err(err).Msg("close recorder")
	}
	if err := a.broker.Close(); err != nil {
		log.Error().Err(err).Msg("disconnect broker")
	}
}
