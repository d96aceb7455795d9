package memory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/domocarroll/subfracture-go/core"
)

// MemoryType categorizes a stored brand memory.
type MemoryType string

const (
	TypeStrategic    MemoryType = "strategic"    // Strategic insights and positioning
	TypeCreative     MemoryType = "creative"     // Creative insights and concepts
	TypeDesign       MemoryType = "design"       // Visual language and design principles
	TypeTechnology   MemoryType = "technology"   // Technical architecture and roadmaps
	TypeGravity      MemoryType = "gravity"      // Brand gravity analysis and optimization
	TypeInteraction  MemoryType = "interaction"  // Workshop interactions and feedback
	TypeBreakthrough MemoryType = "breakthrough" // Vesica pisces discoveries
	TypeCompetitive  MemoryType = "competitive"  // Competitive intelligence
	TypeMarket       MemoryType = "market"       // Market trends and opportunities
	TypeValidation   MemoryType = "validation"   // Human validation results
)

// MemoryTypes lists every valid memory type.
var MemoryTypes = []MemoryType{
	TypeStrategic, TypeCreative, TypeDesign, TypeTechnology, TypeGravity,
	TypeInteraction, TypeBreakthrough, TypeCompetitive, TypeMarket, TypeValidation,
}

// Valid reports whether t is a known memory type.
func (t MemoryType) Valid() bool {
	for _, known := range MemoryTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Insight is a single discrete piece of derived or input knowledge about a
// brand, typed and confidence-scored.
type Insight struct {
	InsightID       string            `json:"insight_id"`
	Type            MemoryType        `json:"insight_type"`
	Content         string            `json:"content"`
	Context         map[string]string `json:"context,omitempty"`
	ConfidenceScore float64           `json:"confidence_score"`
	Source          string            `json:"source"`
	Timestamp       time.Time         `json:"timestamp"`
	Tags            []string          `json:"tags,omitempty"`

	// RelatedInsights holds up to a small top-K of similar insight IDs,
	// populated by the service's similarity lookup at store time. Never
	// contains the insight's own ID or duplicates.
	RelatedInsights []string `json:"related_insights,omitempty"`

	// Brand-specific metadata.
	BrandElement     string   `json:"brand_element,omitempty"`
	GravityImpact    *float64 `json:"gravity_impact,omitempty"`
	ValidationStatus string   `json:"validation_status,omitempty"`
}

// Validate checks the insight's invariants: a known type, a bounded
// confidence score, and a self-reference-free relation list.
func (in *Insight) Validate() error {
	if in.InsightID == "" {
		return fmt.Errorf("insight_id is required: %w", ErrValidation)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("unknown insight type %q: %w", in.Type, ErrValidation)
	}
	if in.ConfidenceScore < 0 || in.ConfidenceScore > 1 {
		return fmt.Errorf("confidence_score %v out of range [0,1]: %w", in.ConfidenceScore, ErrValidation)
	}
	seen := make(map[string]bool, len(in.RelatedInsights))
	for _, id := range in.RelatedInsights {
		if id == in.InsightID {
			return fmt.Errorf("insight %s relates to itself: %w", in.InsightID, ErrValidation)
		}
		if seen[id] {
			return fmt.Errorf("duplicate related insight %s: %w", id, ErrValidation)
		}
		seen[id] = true
	}
	return nil
}

// Clone returns a deep copy of the insight.
func (in *Insight) Clone() *Insight {
	out := *in
	out.Context = copyStringMap(in.Context)
	out.Tags = append([]string(nil), in.Tags...)
	out.RelatedInsights = append([]string(nil), in.RelatedInsights...)
	if in.GravityImpact != nil {
		v := *in.GravityImpact
		out.GravityImpact = &v
	}
	return &out
}

// Interaction records one workshop or session event and references the
// insights it produced.
type Interaction struct {
	InteractionID string    `json:"interaction_id"`
	SessionID     string    `json:"session_id"`
	Timestamp     time.Time `json:"timestamp"`
	Type          string    `json:"interaction_type"`

	Facilitator  string   `json:"facilitator"`
	Participants []string `json:"participants,omitempty"`

	DiscussionTopics  []string          `json:"discussion_topics,omitempty"`
	InsightsGenerated []string          `json:"insights_generated,omitempty"`
	DecisionsMade     []string          `json:"decisions_made,omitempty"`
	FeedbackProvided  map[string]string `json:"feedback_provided,omitempty"`

	BreakthroughMoments []string `json:"breakthrough_moments,omitempty"`
	NextSteps           []string `json:"next_steps,omitempty"`

	// SatisfactionScore, when set, is bounded to [0,10].
	SatisfactionScore *float64 `json:"satisfaction_score,omitempty"`
}

// Validate checks the interaction's invariants.
func (it *Interaction) Validate() error {
	if it.InteractionID == "" {
		return fmt.Errorf("interaction_id is required: %w", ErrValidation)
	}
	if it.SatisfactionScore != nil && (*it.SatisfactionScore < 0 || *it.SatisfactionScore > 10) {
		return fmt.Errorf("satisfaction_score %v out of range [0,10]: %w", *it.SatisfactionScore, ErrValidation)
	}
	return nil
}

// Clone returns a deep copy of the interaction.
func (it *Interaction) Clone() *Interaction {
	out := *it
	out.Participants = append([]string(nil), it.Participants...)
	out.DiscussionTopics = append([]string(nil), it.DiscussionTopics...)
	out.InsightsGenerated = append([]string(nil), it.InsightsGenerated...)
	out.DecisionsMade = append([]string(nil), it.DecisionsMade...)
	out.FeedbackProvided = copyStringMap(it.FeedbackProvided)
	out.BreakthroughMoments = append([]string(nil), it.BreakthroughMoments...)
	out.NextSteps = append([]string(nil), it.NextSteps...)
	if it.SatisfactionScore != nil {
		v := *it.SatisfactionScore
		out.SatisfactionScore = &v
	}
	return &out
}

// StrategicMemory bundles strategic positioning material for a brand.
type StrategicMemory struct {
	MemoryID  string    `json:"memory_id"`
	Timestamp time.Time `json:"timestamp"`

	PositioningStatements []string `json:"positioning_statements,omitempty"`
	CompetitiveAdvantages []string `json:"competitive_advantages,omitempty"`
	MarketOpportunities   []string `json:"market_opportunities,omitempty"`
	TargetAudiences       []string `json:"target_audiences,omitempty"`

	FrameworksUsed      []string `json:"frameworks_used,omitempty"`
	SuccessMetrics      []string `json:"success_metrics,omitempty"`
	StrategicPriorities []string `json:"strategic_priorities,omitempty"`
}

// Clone returns a deep copy of the strategic memory.
func (m *StrategicMemory) Clone() *StrategicMemory {
	out := *m
	out.PositioningStatements = append([]string(nil), m.PositioningStatements...)
	out.CompetitiveAdvantages = append([]string(nil), m.CompetitiveAdvantages...)
	out.MarketOpportunities = append([]string(nil), m.MarketOpportunities...)
	out.TargetAudiences = append([]string(nil), m.TargetAudiences...)
	out.FrameworksUsed = append([]string(nil), m.FrameworksUsed...)
	out.SuccessMetrics = append([]string(nil), m.SuccessMetrics...)
	out.StrategicPriorities = append([]string(nil), m.StrategicPriorities...)
	return &out
}

// CreativeMemory bundles creative direction material for a brand.
type CreativeMemory struct {
	MemoryID  string    `json:"memory_id"`
	Timestamp time.Time `json:"timestamp"`

	PersonalityTraits    []string           `json:"brand_personality_traits,omitempty"`
	CreativeTerritories  []string           `json:"creative_territories,omitempty"`
	MessagingConcepts    []string           `json:"messaging_concepts,omitempty"`
	EmotionalDrivers     []string           `json:"emotional_drivers,omitempty"`
	CulturalPatterns     []string           `json:"cultural_patterns,omitempty"`
	BreakthroughConcepts []string           `json:"breakthrough_concepts,omitempty"`
	ResonanceScores      map[string]float64 `json:"resonance_scores,omitempty"`
	FeedbackThemes       []string           `json:"feedback_themes,omitempty"`
	RefinementNotes      []string           `json:"refinement_notes,omitempty"`
}

// Clone returns a deep copy of the creative memory.
func (m *CreativeMemory) Clone() *CreativeMemory {
	out := *m
	out.PersonalityTraits = append([]string(nil), m.PersonalityTraits...)
	out.CreativeTerritories = append([]string(nil), m.CreativeTerritories...)
	out.MessagingConcepts = append([]string(nil), m.MessagingConcepts...)
	out.EmotionalDrivers = append([]string(nil), m.EmotionalDrivers...)
	out.CulturalPatterns = append([]string(nil), m.CulturalPatterns...)
	out.BreakthroughConcepts = append([]string(nil), m.BreakthroughConcepts...)
	if m.ResonanceScores != nil {
		out.ResonanceScores = make(map[string]float64, len(m.ResonanceScores))
		for k, v := range m.ResonanceScores {
			out.ResonanceScores[k] = v
		}
	}
	out.FeedbackThemes = append([]string(nil), m.FeedbackThemes...)
	out.RefinementNotes = append([]string(nil), m.RefinementNotes...)
	return &out
}

// GravityEntry is one point in a brand's gravity history.
type GravityEntry struct {
	Timestamp    time.Time                    `json:"timestamp"`
	GravityIndex float64                      `json:"gravity_index"`
	Breakdown    map[core.GravityType]float64 `json:"gravity_breakdown,omitempty"`

	// Improvement is the delta against the immediately preceding entry's
	// GravityIndex; zero for the first entry.
	Improvement float64 `json:"improvement"`
}

func (e GravityEntry) clone() GravityEntry {
	out := e
	if e.Breakdown != nil {
		out.Breakdown = make(map[core.GravityType]float64, len(e.Breakdown))
		for k, v := range e.Breakdown {
			out.Breakdown[k] = v
		}
	}
	return out
}

// BrandContext is the aggregate root holding all memory for one brand.
type BrandContext struct {
	BrandID     string    `json:"brand_id"`
	BrandName   string    `json:"brand_name"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`

	// Memory collections, keyed by ID.
	Insights          map[string]*Insight         `json:"insights,omitempty"`
	Interactions      map[string]*Interaction     `json:"interactions,omitempty"`
	StrategicMemories map[string]*StrategicMemory `json:"strategic_memories,omitempty"`
	CreativeMemories  map[string]*CreativeMemory  `json:"creative_memories,omitempty"`

	// Brand state.
	CurrentGravityIndex float64        `json:"current_gravity_index"`
	GravityHistory      []GravityEntry `json:"gravity_history,omitempty"`
	ActiveSessions      []string       `json:"active_sessions,omitempty"`

	// Operator context.
	OperatorProfile          core.OperatorContext `json:"operator_profile,omitempty"`
	CommunicationPreferences map[string]string    `json:"communication_preferences,omitempty"`
	BusinessContext          map[string]string    `json:"business_context,omitempty"`

	// Derived metadata. Counters always equal the collection sizes.
	TotalInsights      int        `json:"total_insights"`
	TotalInteractions  int        `json:"total_interactions"`
	LastSessionDate    *time.Time `json:"last_session_date,omitempty"`
	MemoryQualityScore float64    `json:"memory_quality_score"`
}

// NewBrandContext creates an empty context for a brand.
func NewBrandContext(brandID, brandName string) *BrandContext {
	now := time.Now()
	return &BrandContext{
		BrandID:           brandID,
		BrandName:         brandName,
		CreatedAt:         now,
		LastUpdated:       now,
		Insights:          make(map[string]*Insight),
		Interactions:      make(map[string]*Interaction),
		StrategicMemories: make(map[string]*StrategicMemory),
		CreativeMemories:  make(map[string]*CreativeMemory),
	}
}

// AddInsight adds the insight and recomputes the counter.
func (bc *BrandContext) AddInsight(in *Insight) {
	if bc.Insights == nil {
		bc.Insights = make(map[string]*Insight)
	}
	bc.Insights[in.InsightID] = in
	bc.TotalInsights = len(bc.Insights)
	bc.LastUpdated = time.Now()
}

// AddInteraction adds the interaction and recomputes the counter.
func (bc *BrandContext) AddInteraction(it *Interaction) {
	if bc.Interactions == nil {
		bc.Interactions = make(map[string]*Interaction)
	}
	bc.Interactions[it.InteractionID] = it
	bc.TotalInteractions = len(bc.Interactions)
	ts := it.Timestamp
	bc.LastSessionDate = &ts
	bc.LastUpdated = time.Now()
}

// InsightsByType returns the brand's insights of the given type,
// oldest first.
func (bc *BrandContext) InsightsByType(t MemoryType) []*Insight {
	var out []*Insight
	for _, in := range bc.Insights {
		if in.Type == t {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// RecentInsights returns insights from the last N days.
func (bc *BrandContext) RecentInsights(days int) []*Insight {
	cutoff := time.Now().AddDate(0, 0, -days)
	var out []*Insight
	for _, in := range bc.Insights {
		if in.Timestamp.After(cutoff) {
			out = append(out, in)
		}
	}
	return out
}

// CalculateMemoryQuality recomputes and stores the brand's memory quality
// score:
//
//	0.4*mean(confidence) + 0.4*(validated/total) + 0.2*min(1, recent30/total)
//
// Defined as 0 when there are no insights.
func (bc *BrandContext) CalculateMemoryQuality() float64 {
	total := len(bc.Insights)
	if total == 0 {
		bc.MemoryQualityScore = 0
		return 0
	}

	var confidenceSum float64
	validated := 0
	for _, in := range bc.Insights {
		confidenceSum += in.ConfidenceScore
		if in.ValidationStatus == "validated" {
			validated++
		}
	}

	insightConfidence := confidenceSum / float64(total)
	validationRatio := float64(validated) / float64(total)
	recencyFactor := float64(len(bc.RecentInsights(30))) / float64(total)
	if recencyFactor > 1 {
		recencyFactor = 1
	}

	quality := insightConfidence*0.4 + validationRatio*0.4 + recencyFactor*0.2
	bc.MemoryQualityScore = quality
	return quality
}

// Clone returns a deep copy of the brand context. Stores hand out clones so
// callers can never mutate authoritative state.
func (bc *BrandContext) Clone() *BrandContext {
	out := *bc
	out.Insights = make(map[string]*Insight, len(bc.Insights))
	for id, in := range bc.Insights {
		out.Insights[id] = in.Clone()
	}
	out.Interactions = make(map[string]*Interaction, len(bc.Interactions))
	for id, it := range bc.Interactions {
		out.Interactions[id] = it.Clone()
	}
	out.StrategicMemories = make(map[string]*StrategicMemory, len(bc.StrategicMemories))
	for id, m := range bc.StrategicMemories {
		out.StrategicMemories[id] = m.Clone()
	}
	out.CreativeMemories = make(map[string]*CreativeMemory, len(bc.CreativeMemories))
	for id, m := range bc.CreativeMemories {
		out.CreativeMemories[id] = m.Clone()
	}
	out.GravityHistory = make([]GravityEntry, len(bc.GravityHistory))
	for i, e := range bc.GravityHistory {
		out.GravityHistory[i] = e.clone()
	}
	out.ActiveSessions = append([]string(nil), bc.ActiveSessions...)
	out.CommunicationPreferences = copyStringMap(bc.CommunicationPreferences)
	out.BusinessContext = copyStringMap(bc.BusinessContext)
	if bc.LastSessionDate != nil {
		ts := *bc.LastSessionDate
		out.LastSessionDate = &ts
	}
	return &out
}

// Query filters an insight search.
type Query struct {
	// Types restricts results to the given memory types; empty means all.
	Types []MemoryType

	// Tags requires every listed tag to be present on a matching insight.
	Tags []string

	// Since/Until bound the insight timestamp; zero values are open ends.
	Since time.Time
	Until time.Time

	// MinConfidence is the confidence floor; zero means no floor.
	MinConfidence float64

	// Text is a case-insensitive substring match against insight content.
	Text string

	// Limit caps results; zero means DefaultQueryLimit.
	Limit int

	// SortBy is "timestamp" (default) or "confidence". Ascending flips the
	// default newest-first / highest-first direction.
	SortBy    string
	Ascending bool
}

// Query limits.
const (
	DefaultQueryLimit = 10
	MaxQueryLimit     = 100
)

// Matches reports whether the insight passes every filter in the query.
func (q Query) Matches(in *Insight) bool {
	if len(q.Types) > 0 {
		ok := false
		for _, t := range q.Types {
			if in.Type == t {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, want := range q.Tags {
		found := false
		for _, tag := range in.Tags {
			if tag == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !q.Since.IsZero() && in.Timestamp.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && in.Timestamp.After(q.Until) {
		return false
	}
	if in.ConfidenceScore < q.MinConfidence {
		return false
	}
	if q.Text != "" && !containsFold(in.Content, q.Text) {
		return false
	}
	return true
}

// EffectiveLimit resolves the query's result cap.
func (q Query) EffectiveLimit() int {
	switch {
	case q.Limit <= 0:
		return DefaultQueryLimit
	case q.Limit > MaxQueryLimit:
		return MaxQueryLimit
	default:
		return q.Limit
	}
}

// Sort orders insights per the query's sort field and direction.
func (q Query) Sort(insights []*Insight) {
	less := func(i, j *Insight) bool { return i.Timestamp.Before(j.Timestamp) }
	if q.SortBy == "confidence" {
		less = func(i, j *Insight) bool { return i.ConfidenceScore < j.ConfidenceScore }
	}
	sort.SliceStable(insights, func(i, j int) bool {
		if q.Ascending {
			return less(insights[i], insights[j])
		}
		return less(insights[j], insights[i])
	})
}

// InsightUpdate is a partial update for an insight. Nil fields are left
// unchanged, so an empty update is a no-op.
type InsightUpdate struct {
	Content          *string
	ConfidenceScore  *float64
	Tags             []string
	Context          map[string]string
	BrandElement     *string
	GravityImpact    *float64
	ValidationStatus *string
}

// UpdateRequest asks the store to partially update an insight, carrying the
// reason and actor for auditability.
type UpdateRequest struct {
	InsightID string
	Updates   InsightUpdate
	Reason    string
	UpdatedBy string
}

// Apply writes the non-nil update fields onto the insight and revalidates.
// A failed validation leaves the insight untouched.
func (r UpdateRequest) Apply(in *Insight) error {
	updated := in.Clone()
	if r.Updates.Content != nil {
		updated.Content = *r.Updates.Content
	}
	if r.Updates.ConfidenceScore != nil {
		updated.ConfidenceScore = *r.Updates.ConfidenceScore
	}
	if r.Updates.Tags != nil {
		updated.Tags = append([]string(nil), r.Updates.Tags...)
	}
	if r.Updates.Context != nil {
		updated.Context = copyStringMap(r.Updates.Context)
	}
	if r.Updates.BrandElement != nil {
		updated.BrandElement = *r.Updates.BrandElement
	}
	if r.Updates.GravityImpact != nil {
		v := *r.Updates.GravityImpact
		updated.GravityImpact = &v
	}
	if r.Updates.ValidationStatus != nil {
		updated.ValidationStatus = *r.Updates.ValidationStatus
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	*in = *updated
	return nil
}

// ContextUpdate is a partial update for a brand context. Gravity history is
// append-only: new entries arrive through AppendGravity, never by
// replacement.
type ContextUpdate struct {
	BrandName                *string
	OperatorProfile          *core.OperatorContext
	CommunicationPreferences map[string]string
	BusinessContext          map[string]string
	CurrentGravityIndex      *float64
	AppendGravity            *GravityEntry
	ActiveSessions           []string
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// containsFold is a case-insensitive substring check.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
