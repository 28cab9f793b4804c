package importer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapimport/internal/reconcile"
)

// Lineage columns added to every target table.
const (
	SourceFileColumn = "_source_file"
	SourceRowColumn  = "_source_row"
)

// Dialect captures the SQL differences between targets.
type Dialect struct {
	Name string
	// Placeholder returns the bind parameter for the 1-based position n.
	Placeholder func(n int) string
}

// QuoteIdent quotes an identifier with double quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QualifiedName quotes schema and table, omitting an empty schema.
func QualifiedName(schema, table string) string {
	if schema == "" {
		return QuoteIdent(table)
	}
	return QuoteIdent(schema) + "." + QuoteIdent(table)
}

// SQLSink writes reconciled rows into one table over database/sql. The
// table is created with one TEXT column per mapped field if it does not
// exist. All rows of an import are written in one transaction.
type SQLSink struct {
	db      *sql.DB
	dialect Dialect
	table   string
	logger  *slog.Logger
}

// NewSQLSink wraps an open database. table must already be quoted.
func NewSQLSink(db *sql.DB, dialect Dialect, table string, logger *slog.Logger) *SQLSink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLSink{db: db, dialect: dialect, table: table, logger: logger}
}

// Name returns the dialect name.
func (s *SQLSink) Name() string { return s.dialect.Name }

// Close closes the database connection.
func (s *SQLSink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// targetColumn pairs a destination column with its source position.
type targetColumn struct {
	name   string
	source int
}

// plan orders the mapped fields by schema order and resolves each to the
// index of its source column.
func plan(h reconcile.Handoff) ([]targetColumn, error) {
	colIdx := make(map[string]int, len(h.Table.Columns))
	for i, c := range h.Table.Columns {
		colIdx[c] = i
	}

	byField := make(map[string]string, len(h.Mapping))
	for header, id := range h.Mapping {
		byField[id] = header
	}

	var cols []targetColumn
	for _, f := range h.Fields {
		header, ok := byField[f.ID]
		if !ok {
			continue
		}
		i, ok := colIdx[header]
		if !ok {
			return nil, fmt.Errorf("mapped column %q is not in %s", header, h.Table.FileName)
		}
		cols = append(cols, targetColumn{name: f.ID, source: i})
	}

	if len(cols) == 0 {
		return nil, fmt.Errorf("no mapped columns to import")
	}
	return cols, nil
}

func (s *SQLSink) createTableSQL(cols []targetColumn) string {
	defs := make([]string, 0, len(cols)+2)
	for _, c := range cols {
		defs = append(defs, QuoteIdent(c.name)+" TEXT")
	}
	defs = append(defs, QuoteIdent(SourceFileColumn)+" TEXT", QuoteIdent(SourceRowColumn)+" INTEGER")
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.table, strings.Join(defs, ", "))
}

func (s *SQLSink) insertSQL(cols []targetColumn) string {
	names := make([]string, 0, len(cols)+2)
	params := make([]string, 0, len(cols)+2)
	for i, c := range cols {
		names = append(names, QuoteIdent(c.name))
		params = append(params, s.dialect.Placeholder(i+1))
	}
	names = append(names, QuoteIdent(SourceFileColumn), QuoteIdent(SourceRowColumn))
	params = append(params, s.dialect.Placeholder(len(cols)+1), s.dialect.Placeholder(len(cols)+2))
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.table, strings.Join(names, ", "), strings.Join(params, ", "))
}

// Import implements reconcile.Importer.
func (s *SQLSink) Import(ctx context.Context, h reconcile.Handoff) error {
	cols, err := plan(h)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, s.createTableSQL(cols)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.insertSQL(cols))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, len(cols)+2)
	for n, row := range h.Table.Rows {
		for i, c := range cols {
			if c.source < len(row) {
				args[i] = row[c.source]
			} else {
				args[i] = ""
			}
		}
		args[len(cols)] = h.Table.FileName
		args[len(cols)+1] = n + 1

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", n+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}

	s.logger.Info("rows imported",
		slog.String("target", s.dialect.Name),
		slog.String("table", s.table),
		slog.Int("rows", len(h.Table.Rows)),
		slog.Int("columns", len(cols)))
	return nil
}
