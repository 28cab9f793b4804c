// Package importer provides reconcile.Importer implementations that write a
// reconciled table into a database. Sinks are registered by target type:
//
//	sink, err := importer.Open(ctx, importer.Config{Type: "sqlite", DSN: "out.db", Table: "contacts"}, logger)
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/leapimport/internal/reconcile"
)

// Config selects and configures an import target.
type Config struct {
	// Type is the registered sink name ("sqlite", "postgres")
	Type string `koanf:"type"`

	// DSN is the driver connection string. For sqlite it is a file path.
	DSN string `koanf:"dsn"`

	// Host, Port, Database, User and Password build a postgres DSN when DSN
	// is empty.
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Schema qualifies Table on targets that support schemas
	Schema string `koanf:"schema"`

	// Table receives the imported rows
	Table string `koanf:"table"`

	// Options holds driver-specific settings such as sslmode
	Options map[string]string `koanf:"options"`
}

// Sink is an Importer backed by an open connection.
type Sink interface {
	reconcile.Importer
	Name() string
	Close() error
}

// Opener connects a sink for cfg.
type Opener func(ctx context.Context, cfg Config, logger *slog.Logger) (Sink, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Opener)
)

// Register adds a sink opener to the registry.
func Register(name string, open Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = open
}

// Get retrieves an opener by name.
func Get(name string) (Opener, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	o, ok := registry[name]
	return o, ok
}

// List returns all registered sink names (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a sink type is registered.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// UnknownSinkError is returned when an unknown target type is requested.
type UnknownSinkError struct {
	Type      string
	Available []string
}

func (e *UnknownSinkError) Error() string {
	return fmt.Sprintf("unknown target type %q\nAvailable targets: %v\nHint: Check your target.type in leapimport.yaml", e.Type, e.Available)
}

// Open connects the sink named by cfg.Type.
// The logger is passed to the sink (nil uses discard logger).
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Sink, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("target type not specified")
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("target table not specified")
	}

	open, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownSinkError{Type: cfg.Type, Available: List()}
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return open(ctx, cfg, logger)
}
