// Package rules holds the versioned, approvable rule corpus and the pure base
// checklist resolver that evaluates it against an applicant profile.
package rules

import (
	"time"

	"github.com/google/uuid"

	"visadesk/internal/checklist"
)

// RuleDocument is one document requirement inside a rule set.
type RuleDocument struct {
	DocumentID         string                  `json:"documentId"`
	Category           checklist.Category      `json:"category"`
	IsCoreRequired     bool                    `json:"isCoreRequired"`
	IsConditional      bool                    `json:"isConditional"`
	ConditionPredicate string                  `json:"conditionPredicate,omitempty"`
	Name               checklist.LocalizedText `json:"name"`
	Description        checklist.LocalizedText `json:"description"`
	WhereToObtain      checklist.LocalizedText `json:"whereToObtain"`
	Priority           int                     `json:"priority"`
}

// RuleSet is the authoritative document-requirement definition for one
// (country, visa type) pair at one version. Versions are immutable once
// created; only the approved flag ever changes, and at most one version per
// pair carries it.
type RuleSet struct {
	ID                     uuid.UUID      `json:"id"`
	CountryCode            string         `json:"countryCode"`
	VisaType               string         `json:"visaType"`
	Version                int            `json:"version"`
	IsApproved             bool           `json:"isApproved"`
	Documents              []RuleDocument `json:"documents"`
	FinancialRequirements  string         `json:"financialRequirements,omitempty"`
	AdditionalRequirements string         `json:"additionalRequirements,omitempty"`
	CreatedAt              time.Time      `json:"createdAt"`
}

// Item converts a rule document into a checklist item carrying the rule's
// localized strings.
func (d RuleDocument) Item() checklist.Item {
	item := checklist.Item{
		DocumentID:     d.DocumentID,
		Name:           d.Name,
		Description:    d.Description,
		Category:       d.Category,
		IsCoreRequired: d.IsCoreRequired,
		IsConditional:  d.IsConditional,
		WhereToObtain:  d.WhereToObtain,
		Priority:       d.Priority,
	}
	if d.IsConditional {
		item.ConditionDescription = d.ConditionPredicate
	}
	return item
}
