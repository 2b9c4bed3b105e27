// Package service holds rule corpus management: version creation and the
// approval workflow that controls which rule set drives generation.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"visadesk/internal/rules"
	"visadesk/internal/rules/store"
	dErrors "visadesk/pkg/domain-errors"
	audit "visadesk/pkg/platform/audit"
	"visadesk/pkg/platform/sentinel"
	"visadesk/pkg/requestcontext"
)

// Service manages rule set versions. Versions are immutable once created;
// only approval state changes.
type Service struct {
	store  store.Store
	audit  audit.Publisher
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the rule set service.
func NewService(s store.Store, publisher audit.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = audit.NopPublisher{}
	}
	return &Service{
		store:  s,
		audit:  publisher,
		logger: logger,
		now:    time.Now,
	}
}

// CreateInput is the payload for a new rule set version.
type CreateInput struct {
	CountryCode            string               `json:"countryCode"`
	VisaType               string               `json:"visaType"`
	Documents              []rules.RuleDocument `json:"documents"`
	FinancialRequirements  string               `json:"financialRequirements"`
	AdditionalRequirements string               `json:"additionalRequirements"`
}

// Create persists a new unapproved version with the next version number for
// its pair. Creation never affects which version is approved.
func (s *Service) Create(ctx context.Context, input CreateInput) (*rules.RuleSet, error) {
	countryCode := strings.ToUpper(strings.TrimSpace(input.CountryCode))
	visaType := strings.ToLower(strings.TrimSpace(input.VisaType))

	if countryCode == "" || visaType == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "countryCode and visaType are required")
	}
	if len(input.Documents) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "at least one document is required")
	}
	for _, doc := range input.Documents {
		if strings.TrimSpace(doc.DocumentID) == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "every document needs a documentId")
		}
		if doc.IsConditional && strings.TrimSpace(doc.ConditionPredicate) == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "conditional document "+doc.DocumentID+" needs a conditionPredicate")
		}
		if !doc.Category.IsValid() {
			return nil, dErrors.New(dErrors.CodeBadRequest, "document "+doc.DocumentID+" has an unknown category")
		}
	}

	existing, err := s.store.ListVersions(ctx, countryCode, visaType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list rule set versions")
	}
	version := 1
	for _, rs := range existing {
		if rs.Version >= version {
			version = rs.Version + 1
		}
	}

	ruleSet := &rules.RuleSet{
		ID:                     uuid.New(),
		CountryCode:            countryCode,
		VisaType:               visaType,
		Version:                version,
		Documents:              input.Documents,
		FinancialRequirements:  input.FinancialRequirements,
		AdditionalRequirements: input.AdditionalRequirements,
		CreatedAt:              s.now(),
	}
	if err := s.store.Create(ctx, ruleSet); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "version already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create rule set")
	}

	s.audit.Publish(ctx, audit.Event{
		Category:    audit.CategoryCompliance,
		Action:      audit.EventRuleSetCreated,
		UserID:      requestcontext.UserID(ctx),
		RequestID:   requestcontext.RequestID(ctx),
		CountryCode: countryCode,
		VisaType:    visaType,
		RuleSetID:   ruleSet.ID.String(),
	})

	return ruleSet, nil
}

// Approve atomically makes the target the single approved version for its
// pair. Checklists generated against the previously approved version become
// stale and regenerate on next read.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*rules.RuleSet, error) {
	if err := s.store.Approve(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "rule set not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "approve rule set")
	}

	ruleSet, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load approved rule set")
	}

	s.audit.Publish(ctx, audit.Event{
		Category:    audit.CategoryCompliance,
		Action:      audit.EventRuleSetApproved,
		UserID:      requestcontext.UserID(ctx),
		RequestID:   requestcontext.RequestID(ctx),
		CountryCode: ruleSet.CountryCode,
		VisaType:    ruleSet.VisaType,
		RuleSetID:   ruleSet.ID.String(),
	})

	return ruleSet, nil
}

// ListVersions returns all versions for a pair, newest first.
func (s *Service) ListVersions(ctx context.Context, countryCode, visaType string) ([]*rules.RuleSet, error) {
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	visaType = strings.ToLower(strings.TrimSpace(visaType))
	if countryCode == "" || visaType == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "country and visaType query parameters are required")
	}

	versions, err := s.store.ListVersions(ctx, countryCode, visaType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list rule set versions")
	}
	return versions, nil
}
