// Package schema loads target schemas from YAML files.
//
// A schema file lists the destination fields an upload is reconciled
// against:
//
//	name: contacts
//	table: contacts
//	fields:
//	  - id: email
//	    name: Email
//	    description: Primary email address
//	    required: true
//	    aliases: [e-mail, email address]
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/leapstack-labs/leapimport/internal/reconcile"
	"gopkg.in/yaml.v3"
)

// Schema is a named, ordered set of target fields.
type Schema struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Table is the default destination table for imports
	Table  string                  `yaml:"table"`
	Fields []reconcile.TargetField `yaml:"fields"`
}

// ParseError reports a schema file that could not be decoded or validated.
type ParseError struct {
	Path    string
	Message string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return "schema: " + e.Message
	}
	return fmt.Sprintf("schema %s: %s", e.Path, e.Message)
}

// fieldIDPattern restricts IDs to identifiers safe to use as column names.
var fieldIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Load reads and validates the schema at path.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}

	s, err := Parse(bytes.NewReader(data))
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return s, nil
}

// Parse decodes a schema document. Unknown keys are rejected.
func Parse(r io.Reader) (*Schema, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Schema
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Message: "empty document"}
		}
		return nil, &ParseError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that the schema has fields and that every field ID is a
// unique lowercase identifier.
func (s *Schema) Validate() error {
	if len(s.Fields) == 0 {
		return &ParseError{Message: "no fields defined"}
	}

	seen := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		if f.ID == "" {
			return &ParseError{Message: fmt.Sprintf("field %d has no id", i)}
		}
		if !fieldIDPattern.MatchString(f.ID) {
			return &ParseError{Message: fmt.Sprintf("field id %q must match %s", f.ID, fieldIDPattern)}
		}
		if seen[f.ID] {
			return &ParseError{Message: fmt.Sprintf("duplicate field id %q", f.ID)}
		}
		seen[f.ID] = true
	}
	return nil
}

// Required returns the required fields in order.
func (s *Schema) Required() []reconcile.TargetField {
	var out []reconcile.TargetField
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}
