package model

// InputMode identifies which canonical shape the raw lead input matched.
type InputMode string

const (
	// InputByContact means the lead was identified by a contact email address.
	InputByContact InputMode = "by_contact"
	// InputByNameOrg means the lead was identified by person name + organization.
	InputByNameOrg InputMode = "by_name_org"
)

// HookKind names a category of extracted personalization hook.
type HookKind string

const (
	HookRecentEvent  HookKind = "recent_event"
	HookPainPoint    HookKind = "pain_point"
	HookGrowthSignal HookKind = "growth_signal"
)

// ArtifactKind names one of the three outreach artifacts the workflow drafts.
type ArtifactKind string

const (
	ArtifactEmail      ArtifactKind = "email"
	ArtifactSocial     ArtifactKind = "social_message"
	ArtifactCallScript ArtifactKind = "call_script"
)

// Metadata keys the enrichment sufficiency check requires.
const (
	MetaOrganization = "organization"
	MetaSector       = "sector"
	MetaRoleTitle    = "role_title"
	MetaLocation     = "location"
)

// EnrichmentRecord is a single profile-store match for a lead.
type EnrichmentRecord struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// Meta returns the named metadata value, or "" when absent.
func (r *EnrichmentRecord) Meta(key string) string {
	if r == nil || r.Metadata == nil {
		return ""
	}
	return r.Metadata[key]
}

// SourceRef points at one web-research result that contributed to a bucket.
type SourceRef struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Category string `json:"category"`
}

// ResearchRecord holds categorized web-research output for a lead.
type ResearchRecord struct {
	RecentEvents []string    `json:"recent_events"`
	PainSignals  []string    `json:"pain_signals"`
	Sources      []SourceRef `json:"sources"`
	Summary      string      `json:"summary"`
}

// WorkflowState is the single record threaded through the outreach graph.
// Each field is written by exactly one node; StatusLog is the only field
// multiple nodes append to, and its merge rule is ordered concatenation.
type WorkflowState struct {
	LeadID string `json:"lead_id"`

	// Input identity. Exactly one of ContactAddress or
	// {PersonName, Organization} is populated, matching InputMode.
	InputMode      InputMode `json:"input_mode"`
	ContactAddress string    `json:"contact_address,omitempty"`
	PersonName     string    `json:"person_name,omitempty"`
	Organization   string    `json:"organization,omitempty"`

	Enrichment           *EnrichmentRecord `json:"enrichment,omitempty"`
	EnrichmentSufficient bool              `json:"enrichment_sufficient"`

	Research *ResearchRecord `json:"research,omitempty"`

	// Hooks and Drafts use key presence as the "populated" marker: a kind
	// absent from the map means no hook was found / no draft was accepted.
	Hooks  map[HookKind]string     `json:"hooks,omitempty"`
	Drafts map[ArtifactKind]string `json:"drafts,omitempty"`

	StatusLog []string `json:"status_log"`
	Error     string   `json:"error,omitempty"`
}

// NewWorkflowState creates an empty state for one lead.
func NewWorkflowState(leadID string) *WorkflowState {
	return &WorkflowState{
		LeadID: leadID,
		Hooks:  make(map[HookKind]string),
		Drafts: make(map[ArtifactKind]string),
	}
}

// OrganizationName returns the best-known organization for the lead:
// the parsed organization for name+org input, else enrichment metadata.
func (s *WorkflowState) OrganizationName() string {
	if s.Organization != "" {
		return s.Organization
	}
	return s.Enrichment.Meta(MetaOrganization)
}

// SectorName returns the lead's sector from enrichment metadata, if known.
func (s *WorkflowState) SectorName() string {
	return s.Enrichment.Meta(MetaSector)
}

// Identifier returns a display identifier for logging.
func (s *WorkflowState) Identifier() string {
	if s.InputMode == InputByNameOrg {
		return s.PersonName + " at " + s.Organization
	}
	return s.ContactAddress
}
