package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	logLevel string
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "quantumlab",
	Short: "Noisy quantum measurement simulation and optimization",
	Long: `QuantumLab simulates noisy measurements on small entangled qubit
registers and tunes preparation angles with zeroth-order optimizers,
keeping a full append-only record of every trial.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Optional .env file for local overrides; absence is fine
		godotenv.Load()

		if logLevel == "" {
			logLevel = os.Getenv("QUANTUMLAB_LOG_LEVEL")
		}

		// Setup logger
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stderr, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}
