package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lernzeit/templatebank/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "templatebank",
	Short: "Curriculum-aligned question template bank",
	Long:  "Templatebank generates, validates and maintains parametrized math questions for grade-school learners.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides LERNZEIT_DB env var)")

	rootCmd.AddCommand(maintainCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest
// priority), then LERNZEIT_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

// newLogger builds the process logger. Level comes from
// LERNZEIT_LOG_LEVEL (debug, info, warn, error); default is info.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LERNZEIT_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
