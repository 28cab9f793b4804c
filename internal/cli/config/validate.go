package config

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/leapimport/internal/importer"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.PreviewRows < 0 {
		return fmt.Errorf("preview_rows must not be negative")
	}
	if c.Match.MinSimilarity < 0 || c.Match.MinSimilarity > 1 {
		return fmt.Errorf("match.min_similarity must be between 0 and 1, got %v", c.Match.MinSimilarity)
	}
	if c.Match.MinGap < 0 || c.Match.MinGap > 1 {
		return fmt.Errorf("match.min_gap must be between 0 and 1, got %v", c.Match.MinGap)
	}
	if c.Viewport.ColumnWidth <= 0 {
		return fmt.Errorf("viewport.column_width must be positive")
	}
	if c.Target != nil && c.Target.Type != "" && !importer.IsRegistered(c.Target.Type) {
		return &importer.UnknownSinkError{Type: c.Target.Type, Available: importer.List()}
	}
	return nil
}

// ValidateSchemaFile checks that the schema file exists.
func (c *Config) ValidateSchemaFile() error {
	if _, err := os.Stat(c.SchemaPath); os.IsNotExist(err) {
		return fmt.Errorf("schema file does not exist: %s\nHint: Create it or use --schema to specify a different path", c.SchemaPath)
	}
	return nil
}
