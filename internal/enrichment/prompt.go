package enrichment

import (
	"encoding/json"
	"fmt"
	"strings"

	"visadesk/internal/checklist"
	"visadesk/internal/profile"
)

// Request carries everything the prompt builder needs for one enrichment
// call. BaseItems is the deterministic floor; the model must keep every base
// document id unchanged.
type Request struct {
	ApplicationID  string
	BaseItems      []checklist.Item
	Profile        profile.ApplicantProfile
	KnowledgeNotes string

	// Strict switches to the tightened retry instruction after an
	// out-of-band or invalid first attempt.
	Strict bool

	// MinItems/MaxItems communicate the acceptable final size to the model.
	MinItems int
	MaxItems int
}

// BaseDocumentIDs returns the normalized ids the model must preserve.
func (r Request) BaseDocumentIDs() []string {
	ids := make([]string, 0, len(r.BaseItems))
	for _, item := range r.BaseItems {
		ids = append(ids, checklist.NormalizeID(item.DocumentID))
	}
	return ids
}

// systemInstructions is the fixed contract sent with every call.
const systemInstructions = `You are a visa documentation assistant. You receive a base list of document
identifiers that come from official, verified rules. You must:
1. Keep every base document id exactly as given. Never rename or remove one.
2. Add documents beyond the base set only when they are universally standard
   (passport, photograph, application form) or standard practice implied by
   the applicant profile (for example: proof of self-employment for
   self-employed applicants, a marriage certificate for a married applicant
   traveling alone, extended financial proof for long stays).
3. Provide name, description, and whereToObtain in English (en), Russian (ru),
   and Uzbek (uz) for every item.
4. Respond with a single JSON object: {"items": [...], "warnings": [...]}.
   Each item: {"documentId", "name": {"en","ru","uz"}, "description": {...},
   "category": "required"|"highly_recommended"|"optional", "isCoreRequired",
   "isConditional", "conditionDescription", "whereToObtain": {...},
   "priority"}. JSON only, no extra text.`

// strictAddendum tightens the instruction for the single retry after an
// out-of-band or invalid first response.
const strictAddendum = `
STRICT MODE: your previous answer violated the contract. Output between %d and
%d items total. Include every base document id verbatim. Do not invent exotic
documents; prefer the universally standard set. JSON only.`

// BuildSystemInstructions assembles the system prompt for the request.
func BuildSystemInstructions(req Request) string {
	instructions := systemInstructions
	if req.Strict {
		instructions += fmt.Sprintf(strictAddendum, req.MinItems, req.MaxItems)
	}
	return instructions
}

// BuildKnowledgeNotes joins the per-pair domain notes with the rule set's
// free-text requirements into the short notes block the contract allows.
func BuildKnowledgeNotes(countryCode, visaType string, extra ...string) string {
	var notes []string
	if n, ok := knowledgeNotes[countryCode+"/"+visaType]; ok {
		notes = append(notes, n)
	} else if n, ok := knowledgeNotes[countryCode]; ok {
		notes = append(notes, n)
	}
	for _, e := range extra {
		if strings.TrimSpace(e) != "" {
			notes = append(notes, e)
		}
	}
	if len(notes) == 0 {
		notes = append(notes, "No country-specific notes available. Apply standard consular practice.")
	}
	return strings.Join(notes, "\n")
}

// knowledgeNotes holds short curated domain notes keyed by "CC/visaType" with
// a country-level fallback. Kept deliberately small; the rules corpus is the
// source of truth, these only orient the model.
var knowledgeNotes = map[string]string{
	"DE/tourist": "Schengen short-stay rules apply: proof of accommodation, round-trip booking, and insurance with EUR 30,000 coverage are standard.",
	"DE":         "German consulates expect documents in English or German; certified translations otherwise.",
	"FR/student": "Campus France pre-approval precedes the consular application; acceptance letter and accommodation proof are standard.",
	"US":         "DS-160 confirmation and interview appointment letter are standard for nonimmigrant visas.",
	"GB":         "UK applications are submitted online; biometric appointment confirmation is standard.",
}

// wirePayload is the request body for the model endpoint.
type wirePayload struct {
	SystemInstructions   string          `json:"systemInstructions"`
	BaseDocumentIDs      []string        `json:"baseDocumentIds"`
	ApplicantProfileJSON json.RawMessage `json:"applicantProfileJson"`
	KnowledgeNotes       string          `json:"knowledgeNotes"`
	Model                string          `json:"model,omitempty"`
	Temperature          float64         `json:"temperature"`
	MaxTokens            int             `json:"maxTokens,omitempty"`
}

// buildPayload serializes the request into the wire contract of §6.
func buildPayload(req Request, model string, maxTokens int) ([]byte, error) {
	profileJSON, err := json.Marshal(req.Profile)
	if err != nil {
		return nil, fmt.Errorf("marshal applicant profile: %w", err)
	}

	payload := wirePayload{
		SystemInstructions:   BuildSystemInstructions(req),
		BaseDocumentIDs:      req.BaseDocumentIDs(),
		ApplicantProfileJSON: profileJSON,
		KnowledgeNotes:       req.KnowledgeNotes,
		Model:                model,
		Temperature:          0.3,
		MaxTokens:            maxTokens,
	}
	return json.Marshal(payload)
}
