// ABOUTME: Shared command setup: .env, configuration, logging and runtime wiring
// ABOUTME: Every command that touches indexes or models goes through openRuntime
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/storybrief/internal/app"
	"github.com/harper/storybrief/internal/config"
	"github.com/harper/storybrief/internal/logging"
)

// loadConfig reads .env, then the TOML file and environment
func loadConfig() (*config.Config, error) {
	// Load .env file if it exists (for API keys)
	_ = godotenv.Load()

	if configPath != "" {
		return config.LoadFile(configPath, true)
	}
	return config.Load()
}

// newLogger builds the process logger from flags and config and installs it as default
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	level := cfg.LogLevel
	switch {
	case verbose:
		level = "debug"
	case quiet:
		level = "error"
	}

	logger := logging.New(logging.Options{
		Level:  level,
		Format: cfg.LogFormat,
		Writer: cmd.ErrOrStderr(),
		Color:  isTerminal(cmd.ErrOrStderr()),
	})
	logging.SetDefault(logger)
	slog.SetDefault(logger)
	return logger
}

// openRuntime loads configuration and wires every component
func openRuntime(ctx context.Context, cmd *cobra.Command, opts ...app.Option) (*app.Runtime, context.Context, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, ctx, err
	}
	logger := newLogger(cmd, cfg)
	ctx = logging.With(ctx, logger)

	rt, err := app.New(ctx, cfg, logger, opts...)
	if err != nil {
		return nil, ctx, err
	}
	return rt, ctx, nil
}

func isTerminal(w interface{}) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
