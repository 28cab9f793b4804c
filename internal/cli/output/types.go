package output

import "time"

// ColumnMatch is one source column in a match report.
type ColumnMatch struct {
	Index   int      `json:"index"`
	Header  string   `json:"header"`
	Field   string   `json:"field,omitempty"`
	Label   string   `json:"label,omitempty"`
	Ignored bool     `json:"ignored,omitempty"`
	Preview []string `json:"preview"`
}

// FieldRef identifies a target field.
type FieldRef struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// MatchSummary counts column states.
type MatchSummary struct {
	Columns         int `json:"columns"`
	Matched         int `json:"matched"`
	Unmatched       int `json:"unmatched"`
	Ignored         int `json:"ignored"`
	MissingRequired int `json:"missing_required"`
}

// MatchOutput is the JSON output of the match command.
type MatchOutput struct {
	File      string        `json:"file"`
	Schema    string        `json:"schema"`
	SessionID string        `json:"session_id,omitempty"`
	Encoding  string        `json:"encoding"`
	Delimiter string        `json:"delimiter"`
	Rows      int           `json:"rows"`
	Columns   []ColumnMatch `json:"columns"`
	Missing   []FieldRef    `json:"missing_required"`
	Warnings  []string      `json:"warnings,omitempty"`
	Summary   MatchSummary  `json:"summary"`
}

// SessionInfo describes a persisted session.
type SessionInfo struct {
	ID        string        `json:"id"`
	FileName  string        `json:"file_name"`
	Schema    string        `json:"schema"`
	Phase     string        `json:"phase"`
	Mode      string        `json:"mode,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Summary   *MatchSummary `json:"summary,omitempty"`
}

// ImportInfo describes a completed import.
type ImportInfo struct {
	ID          string            `json:"id"`
	SessionID   string            `json:"session_id,omitempty"`
	FileName    string            `json:"file_name"`
	TargetType  string            `json:"target_type"`
	TargetTable string            `json:"target_table"`
	RowCount    int               `json:"row_count"`
	Mapping     map[string]string `json:"mapping"`
	ImportedAt  time.Time         `json:"imported_at"`
}

// SessionDetail is the JSON output of sessions show.
type SessionDetail struct {
	SessionInfo
	Columns []ColumnMatch `json:"columns"`
	Missing []FieldRef    `json:"missing_required"`
	Imports []ImportInfo  `json:"imports,omitempty"`
}

// SchemaOutput is the JSON output of schema show.
type SchemaOutput struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Table       string        `json:"table,omitempty"`
	Path        string        `json:"path"`
	Fields      []SchemaField `json:"fields"`
}

// SchemaField is one field in SchemaOutput.
type SchemaField struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Required    bool     `json:"required"`
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
}

// VersionOutput is the JSON output of the version command.
type VersionOutput struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}
