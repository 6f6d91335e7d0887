package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantpilot/quantpilot/internal/broker"
	"github.com/quantpilot/quantpilot/internal/engine"
	"github.com/quantpilot/quantpilot/internal/logger"
	"github.com/quantpilot/quantpilot/internal/momentum"
	"github.com/quantpilot/quantpilot/internal/session"
	"github.com/quantpilot/quantpilot/internal/signal"
	"github.com/quantpilot/quantpilot/internal/storage"
)

var singleStrategy bool

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run one trading cycle and exit",
	Long: `Starts a throwaway session with the live account balance, runs one
trading cycle (or a single randomly chosen strategy with --single), and
prints the result. Useful for testing strategies outside the scheduler.`,
	RunE: runCycle,
}

func init() {
	cycleCmd.Flags().BoolVar(&singleStrategy, "single", false, "run one randomly chosen strategy only")
	rootCmd.AddCommand(cycleCmd)
}

func runCycle(cmd *cobra.Command, args []string) error {
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

	db, err := storage.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer db.Close()

	brk := broker.New(cfg.Broker, log)
	feed := momentum.NewClient(cfg.Momentum)
	gen := signal.NewDefault()

	sess := session.NewStore(db, cfg.Trading, log)
	eng := engine.New(cfg.Trading, brk, feed, db, sess, gen, nil, log)

	ctx := context.Background()
	balance, err := brk.GetAccountBalance(ctx)
	if err != nil {
		return fmt.Errorf("fetching account balance: %w", err)
	}
	sess.Start(balance.Equity)

	var result engine.Result
	if singleStrategy {
		result, err = eng.ExecuteSingle(ctx)
	} else {
		result, err = eng.ExecuteCycle(ctx)
	}
	if err != nil {
		return fmt.Errorf("executing cycle: %w", err)
	}

	log.Info("cycle finished",
		zap.Int("trades_executed", result.TradesExecuted),
		zap.Strings("errors", result.Errors))
	fmt.Printf("trades executed: %d\n", result.TradesExecuted)
	for _, msg := range result.Errors {
		fmt.Printf("error: %s\n", msg)
	}
	return nil
}
