package importer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresDialect uses $n placeholders.
var PostgresDialect = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
}

func init() {
	Register("postgres", openPostgres)
}

// BuildPostgresDSN constructs a key=value connection string from cfg. An
// explicit cfg.DSN is returned unchanged.
func BuildPostgresDSN(cfg Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, cfg.Database, sslmode)
	if cfg.User != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.User)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	return dsn
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (Sink, error) {
	logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", BuildPostgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return NewSQLSink(db, PostgresDialect, QualifiedName(cfg.Schema, cfg.Table), logger), nil
}
