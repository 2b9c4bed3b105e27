package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"visadesk/internal/rules"
	"visadesk/pkg/platform/sentinel"
)

// Postgres persists rule sets in PostgreSQL. Documents are stored as JSONB;
// the approved flag carries a partial unique index per (country, visa type):
//
//	CREATE TABLE rule_sets (
//	    id           UUID PRIMARY KEY,
//	    country_code TEXT NOT NULL,
//	    visa_type    TEXT NOT NULL,
//	    version      INT  NOT NULL,
//	    is_approved  BOOLEAN NOT NULL DEFAULT FALSE,
//	    documents    JSONB NOT NULL,
//	    financial_requirements  TEXT NOT NULL DEFAULT '',
//	    additional_requirements TEXT NOT NULL DEFAULT '',
//	    created_at   TIMESTAMPTZ NOT NULL,
//	    UNIQUE (country_code, visa_type, version)
//	);
//	CREATE UNIQUE INDEX rule_sets_one_approved
//	    ON rule_sets (country_code, visa_type) WHERE is_approved;
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed rule store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, ruleSet *rules.RuleSet) error {
	if ruleSet == nil {
		return fmt.Errorf("rule set is required")
	}

	documents, err := json.Marshal(ruleSet.Documents)
	if err != nil {
		return fmt.Errorf("marshal rule documents: %w", err)
	}

	query := `
		INSERT INTO rule_sets (id, country_code, visa_type, version, is_approved, documents, financial_requirements, additional_requirements, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		ruleSet.ID,
		ruleSet.CountryCode,
		ruleSet.VisaType,
		ruleSet.Version,
		documents,
		ruleSet.FinancialRequirements,
		ruleSet.AdditionalRequirements,
		ruleSet.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create rule set: %w", err)
	}
	return nil
}

func (s *Postgres) GetByID(ctx context.Context, id uuid.UUID) (*rules.RuleSet, error) {
	query := `
		SELECT id, country_code, visa_type, version, is_approved, documents, financial_requirements, additional_requirements, created_at
		FROM rule_sets
		WHERE id = $1
	`
	ruleSet, err := scanRuleSet(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("rule set %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get rule set: %w", err)
	}
	return ruleSet, nil
}

func (s *Postgres) GetApproved(ctx context.Context, countryCode, visaType string) (*rules.RuleSet, error) {
	query := `
		SELECT id, country_code, visa_type, version, is_approved, documents, financial_requirements, additional_requirements, created_at
		FROM rule_sets
		WHERE country_code = $1 AND visa_type = $2 AND is_approved
	`
	ruleSet, err := scanRuleSet(s.db.QueryRowContext(ctx, query, countryCode, visaType))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get approved rule set: %w", err)
	}
	return ruleSet, nil
}

// Approve runs the unapprove-then-approve pair inside one serializable
// transaction so two versions are never simultaneously approved.
func (s *Postgres) Approve(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin approve: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var countryCode, visaType string
	err = tx.QueryRowContext(ctx,
		`SELECT country_code, visa_type FROM rule_sets WHERE id = $1 FOR UPDATE`, id,
	).Scan(&countryCode, &visaType)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("rule set %s: %w", id, sentinel.ErrNotFound)
		}
		return fmt.Errorf("lookup rule set for approval: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE rule_sets SET is_approved = FALSE WHERE country_code = $1 AND visa_type = $2 AND is_approved`,
		countryCode, visaType,
	); err != nil {
		return fmt.Errorf("unapprove siblings: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE rule_sets SET is_approved = TRUE WHERE id = $1`, id,
	); err != nil {
		return fmt.Errorf("approve rule set: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approve: %w", err)
	}
	return nil
}

func (s *Postgres) ListVersions(ctx context.Context, countryCode, visaType string) ([]*rules.RuleSet, error) {
	query := `
		SELECT id, country_code, visa_type, version, is_approved, documents, financial_requirements, additional_requirements, created_at
		FROM rule_sets
		WHERE country_code = $1 AND visa_type = $2
		ORDER BY version DESC
	`
	rows, err := s.db.QueryContext(ctx, query, countryCode, visaType)
	if err != nil {
		return nil, fmt.Errorf("list rule set versions: %w", err)
	}
	defer rows.Close()

	var versions []*rules.RuleSet
	for rows.Next() {
		ruleSet, err := scanRuleSet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule set: %w", err)
		}
		versions = append(versions, ruleSet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule sets: %w", err)
	}
	return versions, nil
}

type ruleSetRow interface {
	Scan(dest ...any) error
}

func scanRuleSet(row ruleSetRow) (*rules.RuleSet, error) {
	var ruleSet rules.RuleSet
	var documents []byte
	if err := row.Scan(
		&ruleSet.ID,
		&ruleSet.CountryCode,
		&ruleSet.VisaType,
		&ruleSet.Version,
		&ruleSet.IsApproved,
		&documents,
		&ruleSet.FinancialRequirements,
		&ruleSet.AdditionalRequirements,
		&ruleSet.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(documents, &ruleSet.Documents); err != nil {
		return nil, fmt.Errorf("unmarshal rule documents: %w", err)
	}
	return &ruleSet, nil
}
