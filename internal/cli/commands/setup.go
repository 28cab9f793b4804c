package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/leapimport/internal/cli/config"
	"github.com/leapstack-labs/leapimport/internal/cli/output"
	"github.com/leapstack-labs/leapimport/internal/engine"
	"github.com/leapstack-labs/leapimport/internal/reconcile"
	"github.com/leapstack-labs/leapimport/internal/schema"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Schema   *schema.Schema
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with schema, engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command, extra ...reconcile.Option) (*CommandContext, func(), error) {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := cmdCtx.loadSchema(); err != nil {
		return nil, nil, err
	}

	eng, err := createEngine(cmdCtx.Cfg, cmdCtx.Schema, cmdCtx.Logger, extra...)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Engine = eng

	cleanup := func() {
		_ = eng.Close()
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't need the state store or an import target.
func NewCommandContextWithoutEngine(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	logger := config.GetLogger(cmd.Context())

	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}, nil
}

func (c *CommandContext) loadSchema() error {
	if err := c.Cfg.ValidateSchemaFile(); err != nil {
		return err
	}
	sch, err := schema.Load(c.Cfg.SchemaPath)
	if err != nil {
		return err
	}
	c.Logger.Debug("schema loaded", "schema", sch.Name, "fields", len(sch.Fields), "path", c.Cfg.SchemaPath)
	c.Schema = sch
	return nil
}

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise loads defaults,
// the nearest config file and LEAPIMPORT_ environment variables.
func getConfig() (*config.Config, error) {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", nil)
}

func createEngine(cfg *config.Config, sch *schema.Schema, logger *slog.Logger, extra ...reconcile.Option) (*engine.Engine, error) {
	var target config.TargetConfig
	if cfg.Target != nil {
		target = *cfg.Target
	}

	opts := append(cfg.ReconcileOptions(), extra...)
	eng, err := engine.New(engine.Config{
		Schema:         sch,
		StatePath:      cfg.StatePath,
		Target:         target,
		PreviewRows:    cfg.PreviewRows,
		SessionOptions: opts,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return eng, nil
}

// requireFile checks that path exists and is a decodable upload.
func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", path)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
