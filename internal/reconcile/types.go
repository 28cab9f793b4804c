// Package reconcile implements the column reconciliation engine used by
// tabular imports. A Session owns the mapping from source columns to target
// fields, the ignore set, duplicate-assignment conflicts, the completeness
// gate that guards the import hand-off, and the viewport navigator that
// tracks unmatched columns scrolled out of view.
//
// A Session is not safe for concurrent use. Callers serialize access.
package reconcile

// DefaultPreviewLimit is the number of sample values kept per column.
const DefaultPreviewLimit = 4

// TargetField is one destination field of the target schema.
type TargetField struct {
	// ID is the stable identifier handed to the importer
	ID string `json:"id" yaml:"id"`
	// DisplayName is the label shown to the user
	DisplayName string `json:"display_name" yaml:"name"`
	// Description explains what the field holds
	Description string `json:"description,omitempty" yaml:"description"`
	// Required fields must be matched by a non-ignored column before proceed
	Required bool `json:"required" yaml:"required"`
	// Aliases are alternate header spellings accepted as exact matches
	Aliases []string `json:"aliases,omitempty" yaml:"aliases"`
}

// Label returns the display name, falling back to the ID.
func (f TargetField) Label() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return f.ID
}

// SourceTable is a decoded upload: ordered headers plus a bounded preview.
type SourceTable struct {
	FileName string              `json:"file_name"`
	Columns  []string            `json:"columns"`
	Preview  map[string][]string `json:"preview"`
	// Rows is the full row-major body. The engine passes it through to the
	// importer untouched.
	Rows [][]string `json:"rows,omitempty"`
}

// PreviewOf returns the sample values for header.
func (t SourceTable) PreviewOf(header string) []string {
	return append([]string(nil), t.Preview[header]...)
}

// Phase is the lifecycle phase of a session.
type Phase string

const (
	// PhaseReviewing is the phase from bootstrap until a successful hand-off.
	PhaseReviewing Phase = "reviewing"
	// PhaseCompleted means the mapping was handed to the importer.
	PhaseCompleted Phase = "completed"
)

// Summary is a count of column states, used for status lines.
type Summary struct {
	Columns         int `json:"columns"`
	Matched         int `json:"matched"`
	Unmatched       int `json:"unmatched"`
	Ignored         int `json:"ignored"`
	MissingRequired int `json:"missing_required"`
}
