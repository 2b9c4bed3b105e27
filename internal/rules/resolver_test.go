package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visadesk/internal/checklist"
	"visadesk/internal/profile"
)

func localized(s string) checklist.LocalizedText {
	return checklist.LocalizedText{EN: s, RU: s, UZ: s}
}

func coreDoc(id string, priority int) RuleDocument {
	return RuleDocument{
		DocumentID:     id,
		Category:       checklist.CategoryRequired,
		IsCoreRequired: true,
		Name:           localized(id),
		Description:    localized(id + " description"),
		Priority:       priority,
	}
}

func conditionalDoc(id, predicate string, priority int) RuleDocument {
	return RuleDocument{
		DocumentID:         id,
		Category:           checklist.CategoryRequired,
		IsConditional:      true,
		ConditionPredicate: predicate,
		Name:               localized(id),
		Description:        localized(id + " description"),
		Priority:           priority,
	}
}

func resolverProfile() profile.ApplicantProfile {
	return profile.ApplicantProfile{
		Travel:     profile.Travel{DurationBucket: profile.DurationLong, TravelsAlone: true},
		Employment: profile.Employment{CurrentStatus: profile.EmploymentSelfEmployed},
		FamilyAndTies: profile.FamilyAndTies{
			MaritalStatus: profile.MaritalMarried,
		},
		Meta: profile.Meta{CountryCode: "DE", VisaType: "tourist"},
	}
}

func TestResolveBaseIncludesCoreAndMatchingConditionals(t *testing.T) {
	ruleSet := &RuleSet{
		CountryCode: "DE",
		VisaType:    "tourist",
		Version:     1,
		Documents: []RuleDocument{
			coreDoc("passport", 1),
			coreDoc("travel_insurance", 2),
			conditionalDoc("business_registration", "employment.currentStatus in {self_employed, entrepreneur}", 5),
			conditionalDoc("marriage_certificate", "familyAndTies.maritalStatus == married && travel.travelsAlone == true", 6),
			conditionalDoc("employer_letter", "employment.currentStatus == employed", 4),
		},
	}

	base := ResolveBase(ruleSet, resolverProfile())

	ids := make([]string, 0, len(base))
	for _, item := range base {
		ids = append(ids, item.DocumentID)
	}
	assert.Equal(t, []string{"passport", "travel_insurance", "business_registration", "marriage_certificate"}, ids)
}

func TestResolveBaseConditionalOverridesGenericEntry(t *testing.T) {
	generic := coreDoc("bank_statement", 3)
	specific := conditionalDoc("bank_statement", "travel.durationBucket in {medium, long}", 3)
	specific.Category = checklist.CategoryHighlyRecommended
	specific.Description = localized("six month extended statement")

	for name, docs := range map[string][]RuleDocument{
		"conditional first": {specific, generic},
		"generic first":     {generic, specific},
	} {
		t.Run(name, func(t *testing.T) {
			base := ResolveBase(&RuleSet{Documents: docs}, resolverProfile())
			require.Len(t, base, 1)
			assert.Equal(t, "six month extended statement", base[0].Description.EN)
			assert.True(t, base[0].IsConditional)
		})
	}
}

func TestResolveBaseIsDeterministic(t *testing.T) {
	ruleSet := &RuleSet{
		Documents: []RuleDocument{
			coreDoc("b_doc", 2),
			coreDoc("a_doc", 2),
			coreDoc("passport", 1),
		},
	}

	first := ResolveBase(ruleSet, resolverProfile())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ResolveBase(ruleSet, resolverProfile()))
	}

	// Equal priorities tie-break on document id.
	require.Len(t, first, 3)
	assert.Equal(t, "passport", first[0].DocumentID)
	assert.Equal(t, "a_doc", first[1].DocumentID)
	assert.Equal(t, "b_doc", first[2].DocumentID)
}

func TestResolveBaseNilRuleSet(t *testing.T) {
	assert.Nil(t, ResolveBase(nil, resolverProfile()))
}

func TestResolveBaseMalformedPredicateExcludesDocument(t *testing.T) {
	ruleSet := &RuleSet{
		Documents: []RuleDocument{
			coreDoc("passport", 1),
			conditionalDoc("mystery_doc", "this is not a predicate", 2),
		},
	}

	base := ResolveBase(ruleSet, resolverProfile())
	require.Len(t, base, 1)
	assert.Equal(t, "passport", base[0].DocumentID)
}

func TestCoreDocumentIDs(t *testing.T) {
	ruleSet := &RuleSet{
		Documents: []RuleDocument{
			coreDoc("Travel_Insurance", 2),
			coreDoc("passport", 1),
			conditionalDoc("marriage_certificate", "familyAndTies.maritalStatus == married", 5),
		},
	}

	assert.Equal(t, []string{"passport", "travel_insurance"}, CoreDocumentIDs(ruleSet))
	assert.Nil(t, CoreDocumentIDs(nil))
}
