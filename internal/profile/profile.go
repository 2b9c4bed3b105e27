// Package profile normalizes raw questionnaire answers into the strongly
// typed ApplicantProfile the rest of the engine consumes. Conversion happens
// once, exhaustively, so downstream components never branch on missing data.
package profile

// TravelPurpose classifies why the applicant is traveling.
type TravelPurpose string

const (
	PurposeTourism     TravelPurpose = "tourism"
	PurposeStudy       TravelPurpose = "study"
	PurposeWork        TravelPurpose = "work"
	PurposeBusiness    TravelPurpose = "business"
	PurposeFamilyVisit TravelPurpose = "family_visit"
)

// DurationBucket buckets the planned stay. Long stays trigger extended
// financial-proof expectations during enrichment.
type DurationBucket string

const (
	DurationShort  DurationBucket = "short"  // up to 30 days
	DurationMedium DurationBucket = "medium" // up to 90 days
	DurationLong   DurationBucket = "long"   // over 90 days
)

// EmploymentStatus is the applicant's current work situation.
type EmploymentStatus string

const (
	EmploymentEmployed     EmploymentStatus = "employed"
	EmploymentSelfEmployed EmploymentStatus = "self_employed"
	EmploymentEntrepreneur EmploymentStatus = "entrepreneur"
	EmploymentStudent      EmploymentStatus = "student"
	EmploymentUnemployed   EmploymentStatus = "unemployed"
	EmploymentRetired      EmploymentStatus = "retired"
)

// FinancialSituation summarizes the applicant's means.
type FinancialSituation string

const (
	FinancialStable  FinancialSituation = "stable"
	FinancialLimited FinancialSituation = "limited"
)

// MaritalStatus is the applicant's family status.
type MaritalStatus string

const (
	MaritalSingle   MaritalStatus = "single"
	MaritalMarried  MaritalStatus = "married"
	MaritalDivorced MaritalStatus = "divorced"
	MaritalWidowed  MaritalStatus = "widowed"
)

// LanguageProficiency is the applicant's destination-language level.
type LanguageProficiency string

const (
	LanguageNone         LanguageProficiency = "none"
	LanguageBasic        LanguageProficiency = "basic"
	LanguageIntermediate LanguageProficiency = "intermediate"
	LanguageFluent       LanguageProficiency = "fluent"
)

// Travel groups trip-related profile fields.
type Travel struct {
	Purpose        TravelPurpose  `json:"purpose"`
	DurationBucket DurationBucket `json:"durationBucket"`
	PreviousTravel bool           `json:"previousTravel"`
	TravelsAlone   bool           `json:"travelsAlone"`
}

// Employment groups work-related profile fields.
type Employment struct {
	CurrentStatus   EmploymentStatus `json:"currentStatus"`
	HasStableIncome bool             `json:"hasStableIncome"`
}

// Financial groups means-related profile fields.
type Financial struct {
	Situation   FinancialSituation `json:"situation"`
	IsSponsored bool               `json:"isSponsored"`
}

// FamilyAndTies groups home-country attachment fields.
type FamilyAndTies struct {
	MaritalStatus MaritalStatus `json:"maritalStatus"`
	HasChildren   bool          `json:"hasChildren"`
	HasStrongTies bool          `json:"hasStrongTies"`
}

// Language groups language fields.
type Language struct {
	Proficiency LanguageProficiency `json:"proficiency"`
}

// Meta carries the destination pair the checklist targets.
type Meta struct {
	CountryCode string `json:"countryCode"`
	VisaType    string `json:"visaType"`
}

// ApplicantProfile is the canonical, fully defaulted applicant snapshot. It is
// built fresh per generation call, owned by the caller, and read-only to the
// engine. It is never persisted by this engine.
type ApplicantProfile struct {
	Travel        Travel        `json:"travel"`
	Employment    Employment    `json:"employment"`
	Financial     Financial     `json:"financial"`
	FamilyAndTies FamilyAndTies `json:"familyAndTies"`
	Language      Language      `json:"language"`
	Meta          Meta          `json:"meta"`
}

// Field resolves a dotted path like "employment.currentStatus" to its string
// value. Booleans map to "true"/"false". Unknown paths return ("", false);
// predicate evaluation treats those as non-matching.
func (p ApplicantProfile) Field(path string) (string, bool) {
	switch path {
	case "travel.purpose":
		return string(p.Travel.Purpose), true
	case "travel.durationBucket":
		return string(p.Travel.DurationBucket), true
	case "travel.previousTravel":
		return boolString(p.Travel.PreviousTravel), true
	case "travel.travelsAlone":
		return boolString(p.Travel.TravelsAlone), true
	case "employment.currentStatus":
		return string(p.Employment.CurrentStatus), true
	case "employment.hasStableIncome":
		return boolString(p.Employment.HasStableIncome), true
	case "financial.situation":
		return string(p.Financial.Situation), true
	case "financial.isSponsored":
		return boolString(p.Financial.IsSponsored), true
	case "familyAndTies.maritalStatus":
		return string(p.FamilyAndTies.MaritalStatus), true
	case "familyAndTies.hasChildren":
		return boolString(p.FamilyAndTies.HasChildren), true
	case "familyAndTies.hasStrongTies":
		return boolString(p.FamilyAndTies.HasStrongTies), true
	case "language.proficiency":
		return string(p.Language.Proficiency), true
	case "meta.countryCode":
		return p.Meta.CountryCode, true
	case "meta.visaType":
		return p.Meta.VisaType, true
	}
	return "", false
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
