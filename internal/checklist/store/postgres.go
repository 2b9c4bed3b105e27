package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"visadesk/internal/checklist"
	"visadesk/pkg/platform/sentinel"
)

// Postgres persists checklists in PostgreSQL via pgx. Items are stored as
// JSONB; the schema is one row per application:
//
//	CREATE TABLE document_checklists (
//	    application_id        TEXT PRIMARY KEY,
//	    status                TEXT NOT NULL,
//	    items                 JSONB NOT NULL DEFAULT '[]',
//	    rule_set_version_used INT NOT NULL DEFAULT 0,
//	    generated_at          TIMESTAMPTZ NOT NULL,
//	    ai_generated          BOOLEAN NOT NULL DEFAULT FALSE,
//	    error_message         TEXT NOT NULL DEFAULT ''
//	);
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a pgx-backed checklist store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Get(ctx context.Context, applicationID string) (*checklist.DocumentChecklist, error) {
	query := `
		SELECT application_id, status, items, rule_set_version_used, generated_at, ai_generated, error_message
		FROM document_checklists
		WHERE application_id = $1
	`
	var record checklist.DocumentChecklist
	var status string
	var items []byte
	err := s.pool.QueryRow(ctx, query, applicationID).Scan(
		&record.ApplicationID,
		&status,
		&items,
		&record.RuleSetVersionUsed,
		&record.GeneratedAt,
		&record.AIGenerated,
		&record.ErrorMessage,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("checklist for %s: %w", applicationID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get checklist: %w", err)
	}

	record.Status = checklist.Status(status)
	if err := json.Unmarshal(items, &record.Items); err != nil {
		return nil, fmt.Errorf("unmarshal checklist items: %w", err)
	}
	return &record, nil
}

func (s *Postgres) Put(ctx context.Context, record *checklist.DocumentChecklist) error {
	if record == nil || record.ApplicationID == "" {
		return fmt.Errorf("checklist record with application id is required")
	}

	items, err := json.Marshal(record.Items)
	if err != nil {
		return fmt.Errorf("marshal checklist items: %w", err)
	}

	query := `
		INSERT INTO document_checklists (application_id, status, items, rule_set_version_used, generated_at, ai_generated, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (application_id) DO UPDATE SET
			status = EXCLUDED.status,
			items = EXCLUDED.items,
			rule_set_version_used = EXCLUDED.rule_set_version_used,
			generated_at = EXCLUDED.generated_at,
			ai_generated = EXCLUDED.ai_generated,
			error_message = EXCLUDED.error_message
	`
	_, err = s.pool.Exec(ctx, query,
		record.ApplicationID,
		string(record.Status),
		items,
		record.RuleSetVersionUsed,
		record.GeneratedAt,
		record.AIGenerated,
		record.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("put checklist: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, record *checklist.DocumentChecklist) error {
	if record == nil || record.ApplicationID == "" {
		return fmt.Errorf("checklist record with application id is required")
	}

	items, err := json.Marshal(record.Items)
	if err != nil {
		return fmt.Errorf("marshal checklist items: %w", err)
	}

	query := `
		UPDATE document_checklists SET
			status = $2,
			items = $3,
			rule_set_version_used = $4,
			generated_at = $5,
			ai_generated = $6,
			error_message = $7
		WHERE application_id = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		record.ApplicationID,
		string(record.Status),
		items,
		record.RuleSetVersionUsed,
		record.GeneratedAt,
		record.AIGenerated,
		record.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("update checklist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("checklist for %s: %w", record.ApplicationID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, applicationID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM document_checklists WHERE application_id = $1`, applicationID)
	if err != nil {
		return fmt.Errorf("delete checklist: %w", err)
	}
	return nil
}
