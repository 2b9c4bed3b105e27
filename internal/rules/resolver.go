package rules

import (
	"sort"

	"visadesk/internal/checklist"
	"visadesk/internal/profile"
)

// ResolveBase evaluates the rule set against the profile and returns the
// deterministic floor of items the rest of the pipeline must never shrink.
// This is pure domain logic - no I/O, no side effects.
//
// Inclusion rules:
//  1. every core-required entry is included unconditionally;
//  2. every conditional entry whose predicate matches the profile is included;
//  3. when a document id appears both as a generic entry and as a matching
//     conditional entry, the conditional (more specific) entry wins.
func ResolveBase(ruleSet *RuleSet, p profile.ApplicantProfile) []checklist.Item {
	if ruleSet == nil {
		return nil
	}

	selected := make(map[string]checklist.Item)
	conditional := make(map[string]bool)

	for _, doc := range ruleSet.Documents {
		key := checklist.NormalizeID(doc.DocumentID)

		switch {
		case doc.IsConditional:
			if !EvaluatePredicate(doc.ConditionPredicate, p) {
				continue
			}
			// A matching conditional entry replaces any generic one.
			selected[key] = doc.Item()
			conditional[key] = true
		case doc.IsCoreRequired:
			if conditional[key] {
				continue
			}
			selected[key] = doc.Item()
		}
	}

	items := make([]checklist.Item, 0, len(selected))
	for _, item := range selected {
		items = append(items, item)
	}

	// Stable output order: priority first, then id. Determinism is part of the
	// resolver's contract.
	sort.Slice(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority < items[j].Priority
		}
		return items[i].DocumentID < items[j].DocumentID
	})

	return items
}

// CoreDocumentIDs returns the normalized ids of core-required documents in the
// rule set. The validator uses this as the preservation floor.
func CoreDocumentIDs(ruleSet *RuleSet) []string {
	if ruleSet == nil {
		return nil
	}
	ids := make([]string, 0, len(ruleSet.Documents))
	seen := make(map[string]bool)
	for _, doc := range ruleSet.Documents {
		if !doc.IsCoreRequired {
			continue
		}
		key := checklist.NormalizeID(doc.DocumentID)
		if !seen[key] {
			seen[key] = true
			ids = append(ids, key)
		}
	}
	sort.Strings(ids)
	return ids
}
