package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "quantpilot",
	Short: "QuantPilot - unattended paper-trading orchestration engine",
	Long: `QuantPilot runs scheduled trading cycles against a paper-trading
brokerage: it selects active strategies, synthesizes signals, places
bracketed orders, and serves an auditable session to a polling dashboard.`,
}

func init() {
	cobra.OnInitialize(func() {
		// .env is optional; real deployments set the environment directly
		_ = godotenv.Load()
	})
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
