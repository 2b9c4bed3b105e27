// Package checklist defines the document checklist domain model shared by the
// base resolver, the enrichment pipeline, and the generation coordinator.
package checklist

import (
	"strings"
	"time"
)

// Category ranks how strongly a document is needed.
type Category string

const (
	CategoryRequired          Category = "required"
	CategoryHighlyRecommended Category = "highly_recommended"
	CategoryOptional          Category = "optional"
)

// IsValid reports whether the category is one of the known values.
func (c Category) IsValid() bool {
	switch c {
	case CategoryRequired, CategoryHighlyRecommended, CategoryOptional:
		return true
	}
	return false
}

// LocalizedText holds the three pre-supplied locale strings per item. The
// engine stores them verbatim; it performs no translation of its own.
type LocalizedText struct {
	EN string `json:"en"`
	RU string `json:"ru"`
	UZ string `json:"uz"`
}

// Backfill fills empty locales from the primary (EN) value.
func (t *LocalizedText) Backfill() {
	if t.RU == "" {
		t.RU = t.EN
	}
	if t.UZ == "" {
		t.UZ = t.EN
	}
}

// Empty reports whether no locale carries text.
func (t LocalizedText) Empty() bool {
	return t.EN == "" && t.RU == "" && t.UZ == ""
}

// Item is a single checklist entry. DocumentID is unique within a checklist,
// matched case-insensitively throughout the pipeline.
type Item struct {
	DocumentID           string        `json:"documentId"`
	Name                 LocalizedText `json:"name"`
	Description          LocalizedText `json:"description"`
	Category             Category      `json:"category"`
	IsCoreRequired       bool          `json:"isCoreRequired"`
	IsConditional        bool          `json:"isConditional"`
	ConditionDescription string        `json:"conditionDescription,omitempty"`
	WhereToObtain        LocalizedText `json:"whereToObtain"`
	Priority             int           `json:"priority"`
}

// Status is the checklist lifecycle state.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// DocumentChecklist is the persisted record per application. Only the
// generation coordinator mutates it; everything else is read-only.
type DocumentChecklist struct {
	ApplicationID      string    `json:"applicationId"`
	Status             Status    `json:"status"`
	Items              []Item    `json:"items,omitempty"`
	RuleSetVersionUsed int       `json:"ruleSetVersionUsed"`
	GeneratedAt        time.Time `json:"generatedAt"`
	AIGenerated        bool      `json:"aiGenerated"`
	ErrorMessage       string    `json:"errorMessage,omitempty"`
}

// NormalizeID canonicalizes a document id for case-insensitive matching.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// IndexByID builds a lookup of items keyed by normalized document id. On
// duplicates the first occurrence wins.
func IndexByID(items []Item) map[string]Item {
	index := make(map[string]Item, len(items))
	for _, item := range items {
		key := NormalizeID(item.DocumentID)
		if _, exists := index[key]; !exists {
			index[key] = item
		}
	}
	return index
}
