package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantpilot/quantpilot/internal/api"
	"github.com/quantpilot/quantpilot/internal/broker"
	"github.com/quantpilot/quantpilot/internal/config"
	"github.com/quantpilot/quantpilot/internal/engine"
	"github.com/quantpilot/quantpilot/internal/logger"
	"github.com/quantpilot/quantpilot/internal/metrics"
	"github.com/quantpilot/quantpilot/internal/momentum"
	"github.com/quantpilot/quantpilot/internal/scheduler"
	"github.com/quantpilot/quantpilot/internal/session"
	tradesignal "github.com/quantpilot/quantpilot/internal/signal"
	"github.com/quantpilot/quantpilot/internal/stats"
	"github.com/quantpilot/quantpilot/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the QuantPilot server and scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	return config.Defaults(), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	log := logger.Must(cfg.Log)
	defer log.Sync()

	log.Info("starting QuantPilot",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Type),
	)

	db, err := storage.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer db.Close()

	brk := broker.New(cfg.Broker, log)
	feed := momentum.NewClient(cfg.Momentum)
	gen := tradesignal.NewDefault()
	reg := metrics.NewRegistry()

	sess := session.NewStore(db, cfg.Trading, log)
	eng := engine.New(cfg.Trading, brk, feed, db, sess, gen, reg, log)
	agg := stats.New(cfg.Trading, brk, db, sess, log)
	sched := scheduler.New(cfg.Trading, eng, sess, brk, log)
	server := api.NewServer(*cfg, brk, eng, sess, agg, reg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Trading.AutoStart {
		if cfg.Broker.Configured() {
			go sched.Bootstrap(ctx)
		} else {
			log.Warn("brokerage not configured, skipping auto-start")
		}
	}
	sched.Start(ctx)

	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down QuantPilot")
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
