package rules

import (
	"strings"

	"visadesk/internal/profile"
)

// Condition predicates are boolean expressions over profile fields, e.g.
//
//	employment.currentStatus in {self_employed, entrepreneur}
//	travel.durationBucket == long && financial.isSponsored != true
//
// Supported operators: ==, !=, in {a, b, ...}. Clauses join with &&. A
// malformed clause or unknown field path evaluates false: a rule that cannot
// be understood must never add a document.

// EvaluatePredicate reports whether the predicate matches the profile.
// An empty predicate matches nothing; unconditional inclusion is expressed
// through IsCoreRequired instead.
func EvaluatePredicate(predicate string, p profile.ApplicantProfile) bool {
	predicate = strings.TrimSpace(predicate)
	if predicate == "" {
		return false
	}
	for _, clause := range strings.Split(predicate, "&&") {
		if !evaluateClause(strings.TrimSpace(clause), p) {
			return false
		}
	}
	return true
}

func evaluateClause(clause string, p profile.ApplicantProfile) bool {
	if clause == "" {
		return false
	}

	if path, set, ok := splitOperator(clause, " in "); ok {
		value, found := p.Field(path)
		if !found {
			return false
		}
		for _, candidate := range parseSet(set) {
			if strings.EqualFold(value, candidate) {
				return true
			}
		}
		return false
	}

	if path, want, ok := splitOperator(clause, "!="); ok {
		value, found := p.Field(path)
		if !found {
			return false
		}
		return !strings.EqualFold(value, want)
	}

	if path, want, ok := splitOperator(clause, "=="); ok {
		value, found := p.Field(path)
		if !found {
			return false
		}
		return strings.EqualFold(value, want)
	}

	return false
}

func splitOperator(clause, op string) (left, right string, ok bool) {
	idx := strings.Index(clause, op)
	if idx < 0 {
		return "", "", false
	}
	left = strings.TrimSpace(clause[:idx])
	right = strings.TrimSpace(clause[idx+len(op):])
	if left == "" || right == "" {
		return "", "", false
	}
	return left, right, true
}

// parseSet reads "{a, b, c}" (braces optional) into its members.
func parseSet(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "}")
	s = strings.TrimSuffix(s, "]")

	parts := strings.Split(s, ",")
	members := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			members = append(members, trimmed)
		}
	}
	return members
}
