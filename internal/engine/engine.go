// Package engine ties a schema, the state store and an import target
// together. Commands, the terminal review and the web UI all start, resume,
// persist and complete reconciliation sessions through an Engine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/leapstack-labs/leapimport/internal/importer"
	"github.com/leapstack-labs/leapimport/internal/reconcile"
	"github.com/leapstack-labs/leapimport/internal/schema"
	"github.com/leapstack-labs/leapimport/internal/source"
	"github.com/leapstack-labs/leapimport/internal/state"
)

// Engine orchestrates reconciliation sessions for one schema.
type Engine struct {
	// Import sink (lazy initialized)
	sink       importer.Sink
	sinkConfig importer.Config
	sinkMu     sync.Mutex

	// Structured logger
	logger *slog.Logger

	schema      *schema.Schema
	store       *state.SQLiteStore
	previewRows int
	options     []reconcile.Option
}

// Config holds engine configuration.
type Config struct {
	// Schema lists the target fields uploads are reconciled against
	Schema *schema.Schema
	// StatePath is the path to the SQLite state database
	StatePath string
	// Target configures the import sink. An empty Table falls back to the
	// schema's table, then its name.
	Target importer.Config
	// PreviewRows bounds the sample values kept per column
	PreviewRows int
	// SessionOptions are applied to every session the engine creates
	SessionOptions []reconcile.Option
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine. The import target is only connected on the first
// import.
func New(cfg Config) (*Engine, error) {
	if cfg.Schema == nil {
		return nil, fmt.Errorf("schema is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("initializing engine", "schema", cfg.Schema.Name, "state_path", cfg.StatePath)

	if err := ensureParentDir(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}

	target := cfg.Target
	if target.Table == "" {
		target.Table = cfg.Schema.Table
	}
	if target.Table == "" {
		target.Table = cfg.Schema.Name
	}

	return &Engine{
		sinkConfig:  target,
		logger:      logger,
		schema:      cfg.Schema,
		store:       store,
		previewRows: cfg.PreviewRows,
		options:     cfg.SessionOptions,
	}, nil
}

func ensureParentDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o750)
}

// ensureSink lazily connects the import target.
func (e *Engine) ensureSink(ctx context.Context) (importer.Sink, error) {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()

	if e.sink != nil {
		return e.sink, nil
	}

	e.logger.Debug("connecting import target", "type", e.sinkConfig.Type, "table", e.sinkConfig.Table)

	if e.sinkConfig.Type == "sqlite" {
		if err := ensureParentDir(e.sinkConfig.DSN); err != nil {
			return nil, fmt.Errorf("failed to create target directory: %w", err)
		}
	}

	sink, err := importer.Open(ctx, e.sinkConfig, e.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open import target: %w", err)
	}
	e.sink = sink
	return sink, nil
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	e.sinkMu.Lock()
	if e.sink != nil {
		if err := e.sink.Close(); err != nil {
			errs = append(errs, err)
		}
		e.sink = nil
	}
	e.sinkMu.Unlock()
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// --- Getters (public accessors) ---

// Schema returns the engine's schema.
func (e *Engine) Schema() *schema.Schema { return e.schema }

// Store returns the state store.
func (e *Engine) Store() *state.SQLiteStore { return e.store }

// Target returns the resolved import target configuration.
func (e *Engine) Target() importer.Config { return e.sinkConfig }

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// SourceOptions returns the decode options implied by the engine config.
func (e *Engine) SourceOptions() source.Options {
	return source.Options{PreviewRows: e.previewRows}
}
