package models

import "time"

type LibraryKind string

const (
	KindHazard      LibraryKind = "hazard"
	KindControl     LibraryKind = "control"
	KindLegislation LibraryKind = "legislation"
	KindSop         LibraryKind = "sop"
)

func (k LibraryKind) Valid() bool {
	switch k {
	case KindHazard, KindControl, KindLegislation, KindSop:
		return true
	}
	return false
}

// HierarchyTier orders control measures from strongest to weakest.
type HierarchyTier int

const (
	TierUnspecified HierarchyTier = iota
	TierElimination
	TierSubstitution
	TierEngineering
	TierAdministrative
	TierPPE
)

func (t HierarchyTier) String() string {
	switch t {
	case TierElimination:
		return "elimination"
	case TierSubstitution:
		return "substitution"
	case TierEngineering:
		return "engineering"
	case TierAdministrative:
		return "administrative"
	case TierPPE:
		return "ppe"
	default:
		return "unspecified"
	}
}

// LibraryEntry is the single shape shared by all four curated libraries.
// Category "" is the applies-to-all sentinel for controls and legislation.
type LibraryEntry struct {
	ID          string      `json:"id"`
	Kind        LibraryKind `json:"kind"`
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Keywords    []string    `json:"keywords"`
	Category    string      `json:"category"`
	SortOrder   int         `json:"sort_order"`
	IsActive    bool        `json:"is_active"`

	// Hazard only, 1..5.
	DefaultLikelihood int `json:"default_likelihood,omitempty"`
	DefaultSeverity   int `json:"default_severity,omitempty"`

	// Control only. Reductions are 0..4.
	HierarchyTier       HierarchyTier `json:"hierarchy_tier,omitempty"`
	LikelihoodReduction int           `json:"likelihood_reduction,omitempty"`
	SeverityReduction   int           `json:"severity_reduction,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SuggestionRequest struct {
	TaskActivity      string `json:"task_activity"`
	HazardIdentified  string `json:"hazard_identified"`
	LocationArea      string `json:"location_area,omitempty"`
	WhoAtRisk         string `json:"who_at_risk,omitempty"`
	InitialLikelihood int    `json:"initial_likelihood"`
	InitialSeverity   int    `json:"initial_severity"`
	ProjectType       string `json:"project_type,omitempty"`
	TenantID          string `json:"tenant_id,omitempty"`
}

// Match pairs a library entry with its matcher confidence in [0,1].
type Match struct {
	Entry      LibraryEntry `json:"entry"`
	Confidence float64      `json:"confidence"`
}

type SuggestionResponse struct {
	MatchedHazards      []Match `json:"matched_hazards"`
	SuggestedControls   []Match `json:"suggested_controls"`
	RelevantLegislation []Match `json:"relevant_legislation"`
	RelevantSops        []Match `json:"relevant_sops"`

	AIGeneratedControlMeasures string `json:"ai_generated_control_measures,omitempty"`
	AIGeneratedLegislation     string `json:"ai_generated_legislation,omitempty"`

	SuggestedResidualLikelihood int `json:"suggested_residual_likelihood"`
	SuggestedResidualSeverity   int `json:"suggested_residual_severity"`

	UsedAI       bool   `json:"used_ai"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
	AuditLogID   string `json:"audit_log_id,omitempty"`
	LatencyMS    int    `json:"latency_ms"`
}

// Decision is the reviewer's verdict on a suggestion. Pending until the
// reviewer accepts or dismisses; a later decide call overwrites the earlier one.
type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
)

type AuditRecord struct {
	ID               string     `json:"id"`
	RequestSnapshot  string     `json:"request_snapshot"`
	ResponseSnapshot string     `json:"response_snapshot"`
	Decision         Decision   `json:"decision"`
	CreatedAt        time.Time  `json:"created_at"`
	DecidedAt        *time.Time `json:"decided_at,omitempty"`
}
