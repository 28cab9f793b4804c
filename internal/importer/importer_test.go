package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"postgres", "sqlite"}, List())
	assert.True(t, IsRegistered("sqlite"))
	assert.False(t, IsRegistered("duckdb"))
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		cfg    Config
		errMsg string
	}{
		{"no type", Config{Table: "t"}, "target type not specified"},
		{"no table", Config{Type: "sqlite"}, "target table not specified"},
		{"unknown", Config{Type: "oracle", Table: "t"}, `unknown target type "oracle"`},
		{"sqlite without dsn", Config{Type: "sqlite", Table: "t"}, "requires a dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(ctx, tt.cfg, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	_, err := Open(ctx, Config{Type: "oracle", Table: "t"}, nil)
	var unknown *UnknownSinkError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, List(), unknown.Available)
}

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected string
	}{
		{
			name:     "explicit dsn",
			config:   Config{DSN: "postgres://u:p@db/app", Host: "ignored"},
			expected: "postgres://u:p@db/app",
		},
		{
			name: "basic connection",
			config: Config{
				Host:     "localhost",
				Port:     5432,
				Database: "testdb",
				User:     "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=testdb sslmode=disable user=user password=pass",
		},
		{
			name: "with custom sslmode",
			config: Config{
				Host:     "prod.example.com",
				Database: "proddb",
				User:     "admin",
				Options:  map[string]string{"sslmode": "require"},
			},
			expected: "host=prod.example.com port=5432 dbname=proddb sslmode=require user=admin",
		},
		{
			name:     "defaults",
			config:   Config{Database: "mydb"},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildPostgresDSN(tt.config))
		})
	}
}
