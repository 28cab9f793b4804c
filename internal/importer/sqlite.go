package importer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// SQLiteDialect uses ? placeholders.
var SQLiteDialect = Dialect{
	Name:        "sqlite",
	Placeholder: func(int) string { return "?" },
}

func init() {
	Register("sqlite", openSQLite)
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (Sink, error) {
	path := cfg.DSN
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		return nil, fmt.Errorf("sqlite target requires a dsn (database file path)")
	}

	logger.Debug("opening sqlite target", slog.String("path", path))

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite target: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite target: %w", err)
	}

	return NewSQLSink(db, SQLiteDialect, QuoteIdent(cfg.Table), logger), nil
}
