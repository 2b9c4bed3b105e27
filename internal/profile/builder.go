package profile

import "strings"

// RawQuestionnaire is the loosely typed answer set as stored by the
// questionnaire collaborator. Everything is optional on the wire; the builder
// supplies defaults so the rest of the engine never sees missing data.
type RawQuestionnaire struct {
	CountryCode       string `json:"countryCode"`
	VisaType          string `json:"visaType"`
	TravelPurpose     string `json:"travelPurpose"`
	StayDurationDays  int    `json:"stayDurationDays"`
	HasTraveledBefore *bool  `json:"hasTraveledBefore"`
	TravelsAlone      *bool  `json:"travelsAlone"`
	EmploymentStatus  string `json:"employmentStatus"`
	MonthlyIncome     int    `json:"monthlyIncome"`
	IsSponsored       *bool  `json:"isSponsored"`
	MaritalStatus     string `json:"maritalStatus"`
	HasChildren       *bool  `json:"hasChildren"`
	OwnsProperty      *bool  `json:"ownsProperty"`
	HasStableJob      *bool  `json:"hasStableJob"`
	LanguageLevel     string `json:"languageLevel"`
}

// stableIncomeThreshold is the monthly income (USD) above which the profile
// reports stable income when the questionnaire gives no explicit answer.
const stableIncomeThreshold = 500

// Build converts raw answers into a canonical profile. Every optional field
// gets an explicit default; unrecognized enum strings fall back to the most
// conservative value rather than erroring.
func Build(raw RawQuestionnaire) ApplicantProfile {
	stableIncome := raw.MonthlyIncome >= stableIncomeThreshold
	if raw.HasStableJob != nil {
		stableIncome = *raw.HasStableJob
	}

	situation := FinancialLimited
	if stableIncome {
		situation = FinancialStable
	}

	return ApplicantProfile{
		Travel: Travel{
			Purpose:        parsePurpose(raw.TravelPurpose),
			DurationBucket: bucketDuration(raw.StayDurationDays),
			PreviousTravel: boolOr(raw.HasTraveledBefore, false),
			TravelsAlone:   boolOr(raw.TravelsAlone, true),
		},
		Employment: Employment{
			CurrentStatus:   parseEmployment(raw.EmploymentStatus),
			HasStableIncome: stableIncome,
		},
		Financial: Financial{
			Situation:   situation,
			IsSponsored: boolOr(raw.IsSponsored, false),
		},
		FamilyAndTies: FamilyAndTies{
			MaritalStatus: parseMarital(raw.MaritalStatus),
			HasChildren:   boolOr(raw.HasChildren, false),
			HasStrongTies: boolOr(raw.OwnsProperty, false) || boolOr(raw.HasChildren, false),
		},
		Language: Language{
			Proficiency: parseLanguage(raw.LanguageLevel),
		},
		Meta: Meta{
			CountryCode: strings.ToUpper(strings.TrimSpace(raw.CountryCode)),
			VisaType:    strings.ToLower(strings.TrimSpace(raw.VisaType)),
		},
	}
}

func bucketDuration(days int) DurationBucket {
	switch {
	case days <= 0:
		return DurationShort
	case days <= 30:
		return DurationShort
	case days <= 90:
		return DurationMedium
	default:
		return DurationLong
	}
}

func parsePurpose(s string) TravelPurpose {
	switch TravelPurpose(strings.ToLower(s)) {
	case PurposeTourism, PurposeStudy, PurposeWork, PurposeBusiness, PurposeFamilyVisit:
		return TravelPurpose(strings.ToLower(s))
	}
	return PurposeTourism
}

func parseEmployment(s string) EmploymentStatus {
	switch EmploymentStatus(strings.ToLower(s)) {
	case EmploymentEmployed, EmploymentSelfEmployed, EmploymentEntrepreneur,
		EmploymentStudent, EmploymentUnemployed, EmploymentRetired:
		return EmploymentStatus(strings.ToLower(s))
	}
	return EmploymentUnemployed
}

func parseMarital(s string) MaritalStatus {
	switch MaritalStatus(strings.ToLower(s)) {
	case MaritalSingle, MaritalMarried, MaritalDivorced, MaritalWidowed:
		return MaritalStatus(strings.ToLower(s))
	}
	return MaritalSingle
}

func parseLanguage(s string) LanguageProficiency {
	switch LanguageProficiency(strings.ToLower(s)) {
	case LanguageNone, LanguageBasic, LanguageIntermediate, LanguageFluent:
		return LanguageProficiency(strings.ToLower(s))
	}
	return LanguageNone
}

func boolOr(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}
