package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"ConfluenceTrader/internal/indicator"
	"ConfluenceTrader/internal/model"
	"ConfluenceTrader/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	Broker     BrokerConfig    `yaml:"broker"`
	Trading    TradingConfig   `yaml:"trading"`
	Indicators IndicatorConfig `yaml:"indicators"`
	Risk       RiskConfig      `yaml:"risk"`
	Schedule   ScheduleConfig  `yaml:"schedule"`
	Telegram   TelegramConfig  `yaml:"telegram"`
	Database   DatabaseConfig  `yaml:"database"`
	Metrics    MetricsConfig   `yaml:"metrics"`
	Log        LogConfig       `yaml:"log"`
	Proxy      string          `yaml:"proxy"`
}

type BrokerConfig struct {
	Mode    string      `yaml:"mode" default:"bridge" validate:"oneof=bridge paper"`
	BaseURL string      `yaml:"base_url" validate:"required_if=Mode bridge"`
	Token   string      `yaml:"token"`
	Login   int64       `yaml:"login"`
	Server  string      `yaml:"server"`
	Paper   PaperConfig `yaml:"paper"`
}

// PaperConfig describes the simulated account and symbol.
type PaperConfig struct {
	Balance    float64 `yaml:"balance" default:"10000" validate:"gt=0"`
	Spread     int     `yaml:"spread" default:"20" validate:"gte=0"`
	Source     string  `yaml:"source" default:"synthetic" validate:"oneof=synthetic yahoo"`
	Digits     int     `yaml:"digits" default:"2" validate:"gte=0,lte=8"`
	Point      float64 `yaml:"point" default:"0.01" validate:"gt=0"`
	VolumeStep float64 `yaml:"volume_step" default:"0.01" validate:"gt=0"`
	VolumeMin  float64 `yaml:"volume_min" default:"0.01" validate:"gt=0"`
	VolumeMax  float64 `yaml:"volume_max" default:"100" validate:"gtefield=VolumeMin"`
	TickValue  float64 `yaml:"tick_value" default:"1" validate:"gt=0"`
}

type TradingConfig struct {
	Symbol         string `yaml:"symbol" default:"XAUUSD" validate:"required"`
	Timeframe      string `yaml:"timeframe" default:"M15" validate:"oneof=M1 M5 M15 M30 H1 H4 D1"`
	Magic          int64  `yaml:"magic" default:"20230623"`
	Deviation      int    `yaml:"deviation" default:"20" validate:"gte=0"`
	Comment        string `yaml:"comment" default:"confluence"`
	MaxPositions   int    `yaml:"max_positions" default:"1" validate:"gte=1"`
	CloseOnReverse bool   `yaml:"close_on_reverse"`
}

type IndicatorConfig struct {
	EMAShort     int     `yaml:"ema_short" default:"20" validate:"gte=1"`
	EMALong      int     `yaml:"ema_long" default:"50" validate:"gtfield=EMAShort"`
	ATRPeriod    int     `yaml:"atr_period" default:"14" validate:"gte=1"`
	FibLookback  int     `yaml:"fib_lookback" default:"100" validate:"gte=2"`
	VPLookback   int     `yaml:"vp_lookback" default:"200" validate:"gte=1"`
	VPBucketSize float64 `yaml:"vp_bucket_size" default:"0.5" validate:"gt=0"`
	WarmupBuffer int     `yaml:"warmup_buffer" default:"50" validate:"gte=0"`
}

type RiskConfig struct {
	RiskFraction        float64 `yaml:"risk_fraction" default:"0.05" validate:"gt=0,lte=1"`
	SLMultiplier        float64 `yaml:"sl_multiplier" default:"1.5" validate:"gt=0"`
	TPMultiplier        float64 `yaml:"tp_multiplier" default:"3.0" validate:"gt=0"`
	ConfluenceATRFactor float64 `yaml:"confluence_atr_factor" default:"0.25" validate:"gt=0"`
	MinStopPoints       float64 `yaml:"min_stop_points" default:"10" validate:"gt=0"`
}

type ScheduleConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" default:"60s" validate:"gte=1s"`
	StatusCron   string        `yaml:"status_cron" default:"0 0 8 * * *"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
}

type DatabaseConfig struct {
	SQLitePath string `yaml:"sqlite_path" default:"data/confluence.db"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr" default:":9464"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
}

// Load applies struct defaults, reads the YAML file if present, then applies
// environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("BRIDGE_URL"); v != "" {
		cfg.Broker.BaseURL = v
	}
	if v := os.Getenv("BRIDGE_TOKEN"); v != "" {
		cfg.Broker.Token = v
	}
	if v := os.Getenv("BRIDGE_LOGIN"); v != "" {
		login, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("BRIDGE_LOGIN: %w", err)
		}
		cfg.Broker.Login = login
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SYMBOL"); v != "" {
		cfg.Trading.Symbol = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			fe := ve[0]
			return fmt.Errorf("invalid config: %s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Timeframe returns the configured bar cadence.
func (c *Config) Timeframe() model.Timeframe { return model.Timeframe(c.Trading.Timeframe) }

// Engine maps the indicator section onto the engine configuration.
func (c *Config) Engine() indicator.Config {
	return indicator.Config{
		EMAShort:     c.Indicators.EMAShort,
		EMALong:      c.Indicators.EMALong,
		ATRPeriod:    c.Indicators.ATRPeriod,
		FibLookback:  c.Indicators.FibLookback,
		VPLookback:   c.Indicators.VPLookback,
		VPBucketSize: c.Indicators.VPBucketSize,
		WarmupBuffer: c.Indicators.WarmupBuffer,
	}
}

// Strategy maps trading and risk settings onto the evaluator configuration.
func (c *Config) Strategy() strategy.Config {
	return strategy.Config{
		MaxPositions:        c.Trading.MaxPositions,
		ConfluenceATRFactor: c.Risk.ConfluenceATRFactor,
		SLMultiplier:        c.Risk.SLMultiplier,
		TPMultiplier:        c.Risk.TPMultiplier,
		MinStopPoints:       c.Risk.MinStopPoints,
	}
}

// SymbolInfo returns the paper broker's symbol constraints.
func (c *Config) SymbolInfo() model.SymbolInfo {
	p := c.Broker.Paper
	return model.SymbolInfo{
		Name:       c.Trading.Symbol,
		Digits:     p.Digits,
		Point:      p.Point,
		VolumeStep: p.VolumeStep,
		VolumeMin:  p.VolumeMin,
		VolumeMax:  p.VolumeMax,
		TickValue:  p.TickValue,
	}
}
