package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	flagPort     int
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "boardgame-connector",
	Short: "Boardgame play statistics server",
	Long: `boardgame-connector serves play statistics for a BoardGameGeek user.
It fetches logged plays from the public BGG XML API, caches the responses,
and renders the aggregated statistics as HTML.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(flagPort)
	},
}

func init() {
	rootCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "port to listen on (default 8080, or PORT env)")
	rootCmd.Flags().StringVar(&flagLogLevel, "loglevel", "info", "log level (debug, info, warn, error)")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		initLogger(flagLogLevel)
	}
}

func initLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
