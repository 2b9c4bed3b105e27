package service

import (
	"visadesk/internal/checklist"
	"visadesk/internal/enrichment"
	"visadesk/internal/profile"
	"visadesk/internal/rules"
)

// strategy captures the per-generation mode: rules-backed when an approved
// rule set exists for the destination pair, generic otherwise. It is chosen
// per call, never held as process state, so a rule set approved mid-flight
// takes effect on the next generation without a restart.
type strategy struct {
	base    []checklist.Item
	version int
	notes   string

	// enforceCore is set only in rules-backed mode; the generic fallback
	// skeleton carries no preservation floor.
	enforceCore bool
}

func newStrategy(approved *rules.RuleSet, prof profile.ApplicantProfile) strategy {
	if approved == nil {
		return strategy{
			base:  checklist.FallbackBase(prof.Meta.VisaType),
			notes: enrichment.BuildKnowledgeNotes(prof.Meta.CountryCode, prof.Meta.VisaType),
		}
	}
	return strategy{
		base:    rules.ResolveBase(approved, prof),
		version: approved.Version,
		notes: enrichment.BuildKnowledgeNotes(
			prof.Meta.CountryCode,
			prof.Meta.VisaType,
			approved.FinancialRequirements,
			approved.AdditionalRequirements,
		),
		enforceCore: true,
	}
}
