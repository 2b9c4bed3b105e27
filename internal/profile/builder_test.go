package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(b bool) *bool { return &b }

func TestBuildDefaultsForEmptyQuestionnaire(t *testing.T) {
	p := Build(RawQuestionnaire{})

	assert.Equal(t, PurposeTourism, p.Travel.Purpose)
	assert.Equal(t, DurationShort, p.Travel.DurationBucket)
	assert.False(t, p.Travel.PreviousTravel)
	assert.True(t, p.Travel.TravelsAlone)
	assert.Equal(t, EmploymentUnemployed, p.Employment.CurrentStatus)
	assert.False(t, p.Employment.HasStableIncome)
	assert.Equal(t, FinancialLimited, p.Financial.Situation)
	assert.False(t, p.Financial.IsSponsored)
	assert.Equal(t, MaritalSingle, p.FamilyAndTies.MaritalStatus)
	assert.False(t, p.FamilyAndTies.HasStrongTies)
	assert.Equal(t, LanguageNone, p.Language.Proficiency)
}

func TestBuildDurationBuckets(t *testing.T) {
	tests := []struct {
		days int
		want DurationBucket
	}{
		{-5, DurationShort},
		{0, DurationShort},
		{1, DurationShort},
		{30, DurationShort},
		{31, DurationMedium},
		{90, DurationMedium},
		{91, DurationLong},
		{365, DurationLong},
	}
	for _, tt := range tests {
		p := Build(RawQuestionnaire{StayDurationDays: tt.days})
		assert.Equal(t, tt.want, p.Travel.DurationBucket, "days=%d", tt.days)
	}
}

func TestBuildStableIncome(t *testing.T) {
	// Explicit answer wins over the income threshold.
	p := Build(RawQuestionnaire{MonthlyIncome: 2000, HasStableJob: ptr(false)})
	assert.False(t, p.Employment.HasStableIncome)
	assert.Equal(t, FinancialLimited, p.Financial.Situation)

	// Without an explicit answer the threshold decides.
	p = Build(RawQuestionnaire{MonthlyIncome: 600})
	assert.True(t, p.Employment.HasStableIncome)
	assert.Equal(t, FinancialStable, p.Financial.Situation)

	p = Build(RawQuestionnaire{MonthlyIncome: 100})
	assert.False(t, p.Employment.HasStableIncome)
}

func TestBuildUnknownEnumsFallBackConservatively(t *testing.T) {
	p := Build(RawQuestionnaire{
		TravelPurpose:    "conquest",
		EmploymentStatus: "astronaut",
		MaritalStatus:    "complicated",
		LanguageLevel:    "telepathic",
	})

	assert.Equal(t, PurposeTourism, p.Travel.Purpose)
	assert.Equal(t, EmploymentUnemployed, p.Employment.CurrentStatus)
	assert.Equal(t, MaritalSingle, p.FamilyAndTies.MaritalStatus)
	assert.Equal(t, LanguageNone, p.Language.Proficiency)
}

func TestBuildStrongTies(t *testing.T) {
	p := Build(RawQuestionnaire{OwnsProperty: ptr(true)})
	assert.True(t, p.FamilyAndTies.HasStrongTies)

	p = Build(RawQuestionnaire{HasChildren: ptr(true)})
	assert.True(t, p.FamilyAndTies.HasStrongTies)
	assert.True(t, p.FamilyAndTies.HasChildren)
}

func TestBuildNormalizesMeta(t *testing.T) {
	p := Build(RawQuestionnaire{CountryCode: " de ", VisaType: " Tourist "})
	assert.Equal(t, "DE", p.Meta.CountryCode)
	assert.Equal(t, "tourist", p.Meta.VisaType)
}

func TestFieldResolvesDottedPaths(t *testing.T) {
	p := Build(RawQuestionnaire{
		CountryCode:      "DE",
		VisaType:         "tourist",
		EmploymentStatus: "self_employed",
		TravelsAlone:     ptr(false),
	})

	value, ok := p.Field("employment.currentStatus")
	assert.True(t, ok)
	assert.Equal(t, "self_employed", value)

	value, ok = p.Field("travel.travelsAlone")
	assert.True(t, ok)
	assert.Equal(t, "false", value)

	value, ok = p.Field("meta.countryCode")
	assert.True(t, ok)
	assert.Equal(t, "DE", value)

	_, ok = p.Field("nonexistent.path")
	assert.False(t, ok)
}
