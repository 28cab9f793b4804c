// Package state persists reconciliation sessions and import history in a
// local SQLite database.
package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapimport/internal/reconcile"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// SessionRecord is a persisted session snapshot.
type SessionRecord struct {
	ID         string
	FileName   string
	SchemaName string
	Phase      reconcile.Phase
	Snapshot   reconcile.Snapshot
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ImportRecord is one completed hand-off to an import target.
type ImportRecord struct {
	ID          string
	SessionID   string
	FileName    string
	TargetType  string
	TargetTable string
	RowCount    int
	Mapping     map[string]string
	ImportedAt  time.Time
}

// SQLiteStore stores sessions and imports in SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite state store instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path passed to Open.
func (s *SQLiteStore) Path() string { return s.path }

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// NewSessionID returns an identifier for a new session.
func NewSessionID() string {
	return generateID()
}

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// --- Session operations ---

// SaveSession inserts or updates a session. A record without an ID gets a
// new one, which is also written into the snapshot.
func (s *SQLiteStore) SaveSession(rec *SessionRecord) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if rec.ID == "" {
		rec.ID = generateID()
	}
	rec.Snapshot.ID = rec.ID
	if rec.FileName == "" {
		rec.FileName = rec.Snapshot.Table.FileName
	}
	rec.Phase = rec.Snapshot.Phase

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	snap, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (id, file_name, schema_name, phase, snapshot, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_name = excluded.file_name,
			schema_name = excluded.schema_name,
			phase = excluded.phase,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at`,
		rec.ID, rec.FileName, rec.SchemaName, string(rec.Phase), string(snap),
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(id string) (*SessionRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(`
		SELECT id, file_name, schema_name, phase, snapshot, created_at, updated_at
		FROM sessions WHERE id = ?`, id)

	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return rec, nil
}

// ListSessions returns sessions, most recently updated first. An empty phase
// lists every session.
func (s *SQLiteStore) ListSessions(phase reconcile.Phase) ([]*SessionRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(`
		SELECT id, file_name, schema_name, phase, snapshot, created_at, updated_at
		FROM sessions
		WHERE ? = '' OR phase = ?
		ORDER BY updated_at DESC, id`, string(phase), string(phase))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteSession removes a session. Imports keep their history with the
// session reference cleared.
func (s *SQLiteStore) DeleteSession(id string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*SessionRecord, error) {
	var (
		rec                  SessionRecord
		phase, snap          string
		createdAt, updatedAt string
	)
	if err := row.Scan(&rec.ID, &rec.FileName, &rec.SchemaName, &phase, &snap, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	rec.Phase = reconcile.Phase(phase)
	if err := json.Unmarshal([]byte(snap), &rec.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", rec.ID, err)
	}

	var err error
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// --- Import operations ---

// RecordImport stores a completed import.
func (s *SQLiteStore) RecordImport(rec *ImportRecord) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if rec.ID == "" {
		rec.ID = generateID()
	}
	if rec.ImportedAt.IsZero() {
		rec.ImportedAt = time.Now().UTC()
	}

	mapping, err := json.Marshal(rec.Mapping)
	if err != nil {
		return fmt.Errorf("failed to encode mapping: %w", err)
	}

	var sessionID sql.NullString
	if rec.SessionID != "" {
		sessionID = sql.NullString{String: rec.SessionID, Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT INTO imports (id, session_id, file_name, target_type, target_table, row_count, mapping, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, sessionID, rec.FileName, rec.TargetType, rec.TargetTable, rec.RowCount,
		string(mapping), formatTime(rec.ImportedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record import: %w", err)
	}
	return nil
}

// ListImports returns imports, newest first. An empty sessionID lists all.
func (s *SQLiteStore) ListImports(sessionID string) ([]*ImportRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(`
		SELECT id, session_id, file_name, target_type, target_table, row_count, mapping, imported_at
		FROM imports
		WHERE ? = '' OR session_id = ?
		ORDER BY imported_at DESC, id`, sessionID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list imports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*ImportRecord
	for rows.Next() {
		var (
			rec        ImportRecord
			sid        sql.NullString
			mapping    string
			importedAt string
		)
		if err := rows.Scan(&rec.ID, &sid, &rec.FileName, &rec.TargetType, &rec.TargetTable,
			&rec.RowCount, &mapping, &importedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}
		if sid.Valid {
			rec.SessionID = sid.String
		}
		if err := json.Unmarshal([]byte(mapping), &rec.Mapping); err != nil {
			return nil, fmt.Errorf("failed to decode mapping %s: %w", rec.ID, err)
		}
		if rec.ImportedAt, err = parseTime(importedAt); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
