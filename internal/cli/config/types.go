// Package config provides configuration management for the LeapImport CLI.
package config

import (
	"time"

	"github.com/leapstack-labs/leapimport/internal/importer"
	"github.com/leapstack-labs/leapimport/internal/reconcile"
)

// TargetConfig is an alias for the importer target configuration.
type TargetConfig = importer.Config

// MatchConfig controls the bootstrap auto-match.
type MatchConfig struct {
	Fuzzy         bool    `koanf:"fuzzy"`
	MinSimilarity float64 `koanf:"min_similarity"`
	MinGap        float64 `koanf:"min_gap"`
}

// ViewportConfig controls the review surface geometry and timers.
type ViewportConfig struct {
	// ColumnWidth is the width of one column card in pixels
	ColumnWidth int `koanf:"column_width"`
	DebounceMS  int `koanf:"debounce_ms"`
	SettleMS    int `koanf:"settle_ms"`
}

// UIConfig holds configuration for the UI server.
type UIConfig struct {
	Port     int  `koanf:"port"`
	AutoOpen bool `koanf:"auto_open"`
	Watch    bool `koanf:"watch"`
	// Inbox is a directory watched for new uploads
	Inbox string `koanf:"inbox"`
	// SessionSecret signs the browser cookie; a random one is used when empty
	SessionSecret string `koanf:"session_secret"`
}

// DefaultUIConfig returns a UIConfig with default values.
func DefaultUIConfig() *UIConfig {
	return &UIConfig{
		Port:     DefaultUIPort,
		AutoOpen: true,
		Watch:    true,
	}
}

// GetUIConfig returns the UI config with defaults applied for any unset values.
func (c *Config) GetUIConfig() *UIConfig {
	if c.UI == nil {
		return DefaultUIConfig()
	}
	ui := c.UI
	if ui.Port == 0 {
		ui.Port = DefaultUIPort
	}
	return ui
}

// Config holds all CLI configuration options.
type Config struct {
	ProjectRoot  string         `koanf:"-"`
	SchemaPath   string         `koanf:"schema"`
	StatePath    string         `koanf:"state_path"`
	PreviewRows  int            `koanf:"preview_rows"`
	Verbose      bool           `koanf:"verbose"`
	OutputFormat string         `koanf:"output"`
	Match        MatchConfig    `koanf:"match"`
	Viewport     ViewportConfig `koanf:"viewport"`
	Target       *TargetConfig  `koanf:"target"`
	UI           *UIConfig      `koanf:"ui"`
}

// ReconcileOptions returns the session options the configuration implies.
func (c *Config) ReconcileOptions() []reconcile.Option {
	opts := []reconcile.Option{
		reconcile.WithMatchConfig(reconcile.MatchConfig{
			Fuzzy:         c.Match.Fuzzy,
			MinSimilarity: c.Match.MinSimilarity,
			MinGap:        c.Match.MinGap,
		}),
	}
	if c.Viewport.DebounceMS > 0 {
		opts = append(opts, reconcile.WithScrollDebounce(time.Duration(c.Viewport.DebounceMS)*time.Millisecond))
	}
	if c.Viewport.SettleMS > 0 {
		opts = append(opts, reconcile.WithSettleDelay(time.Duration(c.Viewport.SettleMS)*time.Millisecond))
	}
	return opts
}

// Default configuration values.
const (
	DefaultSchemaFile  = "schema.yaml"
	DefaultStateFile   = ".leapimport/state.db"
	DefaultTargetType  = "sqlite"
	DefaultTargetDSN   = ".leapimport/imports.db"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultColumnWidth = 240
	DefaultUIPort      = 8766
)
