package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ConfluenceTrader/internal/config"
	"ConfluenceTrader/internal/logging"
)

var (
	version = "0.1.0"
	cfgPath string
	paper   bool
	live    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "confluence-trader",
		Short: "Confluence trading bot",
		Long: `confluence-trader polls a broker terminal, computes EMA, ATR, Fibonacci,
pivot and volume profile levels, and trades support/resistance confluence.`,
		SilenceUsage: true,
	}

	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultPath, "Path to the YAML config file")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(onceCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("confluence-trader version %s\n", version)
		},
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the polling loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(paper)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	cmd.Flags().BoolVar(&paper, "paper", false, "Trade against the in-memory paper broker")
	return cmd
}

func onceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single cycle and exit (paper broker unless --live)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(!live)
			if err != nil {
				return err
			}
			return once(cfg)
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "Use the configured broker instead of the paper broker")
	return cmd
}

func loadConfig(forcePaper bool) (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if forcePaper {
		cfg.Broker.Mode = "paper"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cfg *config.Config) error {
	log.Info().Str("version", version).Msg("ConfluenceTrader starting")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.sched.RegisterAll(); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}

	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metrics.Handler())
		srv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics endpoint listening")
	}

	a.sched.Start()

	if a.telegram != nil {
		go a.telegram.StartPolling(ctx, a.sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	// First cycle right away instead of waiting a full interval.
	go a.sched.RunCycle(ctx)

	log.Info().Msg("ConfluenceTrader is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()
	a.sched.Stop()
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		srv.Shutdown(shutdownCtx)
	}
	log.Info().Msg("ConfluenceTrader stopped")
	return nil
}

func once(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	rec := a.sched.RunCycle(ctx)
	fmt.Printf("cycle %s: %s %s %s\n", rec.ID, rec.Result, rec.Direction, rec.Reason)
	if rec.Error != "" {
		return errors.New(rec.Error)
	}
	return nil
}
