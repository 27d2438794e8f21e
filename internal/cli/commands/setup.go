// Package commands contains the flowmon CLI subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowmon-io/flowmon/internal/config"
	"github.com/flowmon-io/flowmon/internal/loader"
	"github.com/flowmon-io/flowmon/internal/source"
)

// Context keys for dependencies injected by the root command.
type (
	configKey struct{}
	loggerKey struct{}
)

// WithConfig stores the loaded configuration in the context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithLogger stores the logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Selector *source.Selector
	Loader   *loader.Loader
}

// NewCommandContext wires the selector and loader from the configuration
// carried on the cobra context.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, _ := cmd.Context().Value(configKey{}).(*config.Config)
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	logger, _ := cmd.Context().Value(loggerKey{}).(*slog.Logger)
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	sel := source.New(cfg, logger)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Selector: sel,
		Loader:   loader.New(cfg, sel, logger),
	}, nil
}

// reportDay resolves the date a command operates on: the --day flag or
// config value when set, otherwise today.
func (c *CommandContext) reportDay() (time.Time, error) {
	if c.Cfg.Day == "" {
		return time.Now().UTC(), nil
	}
	day, err := time.Parse("2006-01-02", c.Cfg.Day)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q (want YYYY-MM-DD)", c.Cfg.Day)
	}
	return day, nil
}
