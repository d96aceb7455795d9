package core

import "time"

// WorkshopPhase identifies a stage of the SUBFRACTURE workshop flow.
type WorkshopPhase string

const (
	PhaseSetup           WorkshopPhase = "setup"
	PhaseStrategy        WorkshopPhase = "strategy"
	PhaseCreative        WorkshopPhase = "creative"
	PhaseDesign          WorkshopPhase = "design"
	PhaseTechnology      WorkshopPhase = "technology"
	PhaseGravityAnalysis WorkshopPhase = "gravity_analysis"
	PhaseHumanValidation WorkshopPhase = "human_validation"
	PhaseVesicaPisces    WorkshopPhase = "vesica_pisces"
	PhaseBrandWorld      WorkshopPhase = "brand_world"
	PhaseCompleted       WorkshopPhase = "completed"
)

// GravityType names one of the five brand gravity dimensions.
type GravityType string

const (
	GravityRecognition   GravityType = "recognition"   // Visual distinctiveness
	GravityComprehension GravityType = "comprehension" // Message clarity
	GravityAttraction    GravityType = "attraction"    // Cultural relevance
	GravityAmplification GravityType = "amplification" // Partnership synergy
	GravityTrust         GravityType = "trust"         // Experiential consistency
)

// GravityTypes lists all five dimensions in canonical order.
var GravityTypes = []GravityType{
	GravityRecognition,
	GravityComprehension,
	GravityAttraction,
	GravityAmplification,
	GravityTrust,
}

// OperatorContext carries the brand operator's profile as supplied by the
// external workflow layer. Recognized fields are typed; anything else the
// caller sends travels in Extra.
type OperatorContext struct {
	ParticipantID   string `json:"participant_id,omitempty"`
	Role            string `json:"role,omitempty"`
	Industry        string `json:"industry,omitempty"`
	CompanyStage    string `json:"company_stage,omitempty"`
	YearsExperience int    `json:"years_experience,omitempty"`

	// CommunicationPreferences tunes how findings are presented back to the
	// operator (tone, depth, format).
	CommunicationPreferences map[string]string `json:"communication_preferences,omitempty"`

	// Extra holds unrecognized operator fields verbatim.
	Extra map[string]string `json:"extra,omitempty"`
}

// PillarOutput is the result of one of the four workshop pillars
// (strategy, creative, design, technology).
type PillarOutput struct {
	// Summary is the headline finding for the pillar.
	Summary string `json:"summary,omitempty"`

	// Confidence is the pillar's own confidence in its output [0,1].
	// Zero means unset; consumers apply their default.
	Confidence float64 `json:"confidence,omitempty"`

	// Details carries pillar-specific supporting material
	// (core truths, creative territories, visual languages, user journeys).
	Details map[string]string `json:"details,omitempty"`
}

// Empty reports whether the pillar produced no output.
func (p PillarOutput) Empty() bool {
	return p.Summary == "" && len(p.Details) == 0
}

// BreakthroughMoment records a truth/insight intersection discovered during
// the vesica pisces phase of a workshop.
type BreakthroughMoment struct {
	BigIdea               string  `json:"big_idea"`
	TruthComponent        string  `json:"truth_component,omitempty"`
	InsightComponent      string  `json:"insight_component,omitempty"`
	IntersectionPotential float64 `json:"intersection_potential,omitempty"`
	ImplementationPath    string  `json:"implementation_path,omitempty"`
}

// ValidationCheckpoint records one human validation decision taken during a
// session ("the heart knows").
type ValidationCheckpoint struct {
	Phase    WorkshopPhase `json:"phase"`
	Approved bool          `json:"approved"`
	Feedback string        `json:"feedback,omitempty"`
}

// SessionState is the accumulated result of one workshop session. The
// external orchestrator builds it up phase by phase; the memory service
// consumes the finished state when recording the session.
type SessionState struct {
	SessionID    string        `json:"session_id"`
	StartedAt    time.Time     `json:"started_at"`
	CurrentPhase WorkshopPhase `json:"current_phase"`

	// Input context.
	BrandBrief      string          `json:"brand_brief,omitempty"`
	OperatorContext OperatorContext `json:"operator_context,omitempty"`
	TargetOutcome   string          `json:"target_outcome,omitempty"`

	// Four pillar outputs.
	StrategyInsights   PillarOutput `json:"strategy_insights,omitempty"`
	CreativeDirections PillarOutput `json:"creative_directions,omitempty"`
	DesignSynthesis    PillarOutput `json:"design_synthesis,omitempty"`
	TechnologyRoadmap  PillarOutput `json:"technology_roadmap,omitempty"`

	// Gravity system results.
	GravityAnalysis map[GravityType]float64 `json:"gravity_analysis,omitempty"`
	GravityIndex    float64                 `json:"gravity_index,omitempty"`

	// Breakthrough discovery and validation.
	BreakthroughMoments   []BreakthroughMoment   `json:"breakthrough_moments,omitempty"`
	ValidationCheckpoints []ValidationCheckpoint `json:"validation_checkpoints,omitempty"`

	// ImplementationPlan lists immediate next steps for the brand.
	ImplementationPlan []string `json:"implementation_plan,omitempty"`
}
