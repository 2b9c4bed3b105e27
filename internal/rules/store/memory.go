package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"visadesk/internal/rules"
	"visadesk/pkg/platform/sentinel"
)

// InMemory keeps rule sets in a map. Suitable for unit tests and single-node
// development; production uses the Postgres store.
type InMemory struct {
	mu       sync.RWMutex
	ruleSets map[uuid.UUID]*rules.RuleSet
}

func NewInMemory() *InMemory {
	return &InMemory{
		ruleSets: make(map[uuid.UUID]*rules.RuleSet),
	}
}

func (s *InMemory) Create(ctx context.Context, ruleSet *rules.RuleSet) error {
	if ruleSet == nil {
		return fmt.Errorf("rule set is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.ruleSets {
		if existing.CountryCode == ruleSet.CountryCode &&
			existing.VisaType == ruleSet.VisaType &&
			existing.Version == ruleSet.Version {
			return fmt.Errorf("version %d for %s/%s: %w",
				ruleSet.Version, ruleSet.CountryCode, ruleSet.VisaType, sentinel.ErrConflict)
		}
	}

	stored := cloneRuleSet(ruleSet)
	s.ruleSets[stored.ID] = stored
	return nil
}

func (s *InMemory) GetByID(ctx context.Context, id uuid.UUID) (*rules.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ruleSet, ok := s.ruleSets[id]
	if !ok {
		return nil, fmt.Errorf("rule set %s: %w", id, sentinel.ErrNotFound)
	}
	return cloneRuleSet(ruleSet), nil
}

func (s *InMemory) GetApproved(ctx context.Context, countryCode, visaType string) (*rules.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ruleSet := range s.ruleSets {
		if ruleSet.IsApproved && ruleSet.CountryCode == countryCode && ruleSet.VisaType == visaType {
			return cloneRuleSet(ruleSet), nil
		}
	}
	return nil, nil
}

// Approve performs the unapprove-then-approve swap under one mutex hold so
// readers never observe two approved versions.
func (s *InMemory) Approve(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.ruleSets[id]
	if !ok {
		return fmt.Errorf("rule set %s: %w", id, sentinel.ErrNotFound)
	}

	for _, sibling := range s.ruleSets {
		if sibling.CountryCode == target.CountryCode && sibling.VisaType == target.VisaType {
			sibling.IsApproved = false
		}
	}
	target.IsApproved = true
	return nil
}

func (s *InMemory) ListVersions(ctx context.Context, countryCode, visaType string) ([]*rules.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var versions []*rules.RuleSet
	for _, ruleSet := range s.ruleSets {
		if ruleSet.CountryCode == countryCode && ruleSet.VisaType == visaType {
			versions = append(versions, cloneRuleSet(ruleSet))
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version > versions[j].Version
	})
	return versions, nil
}

// cloneRuleSet guards the store's copies against caller mutation; versions
// are immutable once created.
func cloneRuleSet(in *rules.RuleSet) *rules.RuleSet {
	out := *in
	out.Documents = make([]rules.RuleDocument, len(in.Documents))
	copy(out.Documents, in.Documents)
	return &out
}
