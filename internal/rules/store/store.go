// Package store persists rule sets. Stores are pure I/O; approval semantics
// (one approved version per pair) are enforced here because they are a
// storage-level uniqueness constraint, not business logic.
package store

import (
	"context"

	"github.com/google/uuid"

	"visadesk/internal/rules"
)

// Store is the rule set persistence contract.
type Store interface {
	// Create persists a new immutable version for its (country, visaType)
	// pair. The version number must be unique for the pair.
	Create(ctx context.Context, ruleSet *rules.RuleSet) error

	// GetByID fetches one version. Returns sentinel.ErrNotFound when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*rules.RuleSet, error)

	// GetApproved returns the approved rule set for the pair, or (nil, nil)
	// when no version is approved. Absence is a normal outcome signaling
	// generic-mode fallback, not an error.
	GetApproved(ctx context.Context, countryCode, visaType string) (*rules.RuleSet, error)

	// Approve marks the target version approved and clears the flag on every
	// sibling version for the same pair in a single atomic step, so two
	// versions are never simultaneously approved.
	Approve(ctx context.Context, id uuid.UUID) error

	// ListVersions returns all versions for the pair, newest first.
	ListVersions(ctx context.Context, countryCode, visaType string) ([]*rules.RuleSet, error)
}
