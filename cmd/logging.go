package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// setupLogging installs a charmbracelet/log handler as the slog default.
func setupLogging() *slog.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
