//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// schema holds every table the stores expect. Applied once per container.
const schema = `
CREATE TABLE IF NOT EXISTS rule_sets (
    id           UUID PRIMARY KEY,
    country_code TEXT NOT NULL,
    visa_type    TEXT NOT NULL,
    version      INT  NOT NULL,
    is_approved  BOOLEAN NOT NULL DEFAULT FALSE,
    documents    JSONB NOT NULL,
    financial_requirements  TEXT NOT NULL DEFAULT '',
    additional_requirements TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL,
    UNIQUE (country_code, visa_type, version)
);
CREATE UNIQUE INDEX IF NOT EXISTS rule_sets_one_approved
    ON rule_sets (country_code, visa_type) WHERE is_approved;

CREATE TABLE IF NOT EXISTS document_checklists (
    application_id        TEXT PRIMARY KEY,
    status                TEXT NOT NULL,
    items                 JSONB NOT NULL DEFAULT '[]',
    rule_set_version_used INT NOT NULL DEFAULT 0,
    generated_at          TIMESTAMPTZ NOT NULL,
    ai_generated          BOOLEAN NOT NULL DEFAULT FALSE,
    error_message         TEXT NOT NULL DEFAULT ''
);
`

// PostgresContainer wraps a throwaway PostgreSQL instance with both database
// handles the stores use.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
	Pool      *pgxpool.Pool
}

// NewPostgresContainer starts a PostgreSQL container, applies the schema and
// connects. The container is terminated when the test finishes.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("visadesk"),
		tcpostgres.WithUsername("visadesk"),
		tcpostgres.WithPassword("visadesk"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping postgres: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
		Pool:      pool,
	}
}

// TruncateTables empties the given tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	query := fmt.Sprintf("TRUNCATE TABLE %s", strings.Join(tables, ", "))
	if _, err := p.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
