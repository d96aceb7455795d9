package memory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/domocarroll/subfracture-go/core"
)

// DefaultFacilitator is recorded on workshop interactions when the caller
// does not name one.
const DefaultFacilitator = "Claude"

// relatedInsightCap bounds the relation list populated at store time.
const relatedInsightCap = 3

// Service composes business-level brand memory operations from one Store,
// adding enrichment the store does not provide. It holds no state across
// calls except the initialized flag; the store is the only shared mutable
// resource.
type Service struct {
	store       Store
	initialized bool
}

// NewService creates a service on top of the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Initialize initializes the underlying store. Must succeed before any
// other service call.
func (s *Service) Initialize(ctx context.Context, cfg *Config) error {
	if err := s.store.Initialize(ctx, cfg); err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	s.initialized = true
	log.Printf("[MEMORY] Brand memory service initialized")
	return nil
}

// Shutdown releases store resources. Safe to call multiple times.
func (s *Service) Shutdown(ctx context.Context) error {
	s.initialized = false
	if err := s.store.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown store: %w", err)
	}
	log.Printf("[MEMORY] Brand memory service shutdown completed")
	return nil
}

func (s *Service) ensureInitialized() error {
	if !s.initialized {
		return ErrNotInitialized
	}
	return nil
}

// CreateBrandProfile creates a brand context, generating a collision-
// resistant brand ID when the caller supplies none. A non-empty initial
// brief is stored as a strategic insight tagged "initial_brief" with a
// fixed confidence of 0.8.
func (s *Service) CreateBrandProfile(ctx context.Context, brandName string, operator core.OperatorContext, initialBrief, brandID string) (*BrandContext, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}

	if brandID == "" {
		brandID = "brand_" + shortID(12)
	}

	initial := InitialContext{
		OperatorProfile:          operator,
		CommunicationPreferences: operator.CommunicationPreferences,
		BusinessContext: map[string]string{
			"industry":      operator.Industry,
			"company_stage": operator.CompanyStage,
			"role":          operator.Role,
		},
	}

	bc, err := s.store.CreateBrandContext(ctx, brandID, brandName, initial)
	if err != nil {
		return nil, fmt.Errorf("create brand context %s: %w", brandID, err)
	}

	if initialBrief != "" {
		insight := &Insight{
			InsightID:       "initial_brief_" + shortID(8),
			Type:            TypeStrategic,
			Content:         initialBrief,
			Context:         map[string]string{"source": "initial_brief"},
			ConfidenceScore: 0.8,
			Source:          "operator_input",
			Timestamp:       time.Now(),
			Tags:            []string{"initial_brief", "strategic_foundation"},
		}
		if _, err := s.StoreInsight(ctx, brandID, insight); err != nil {
			return nil, fmt.Errorf("store initial brief for %s: %w", brandID, err)
		}
		bc, err = s.store.GetBrandContext(ctx, brandID)
		if err != nil {
			return nil, fmt.Errorf("reload brand context %s: %w", brandID, err)
		}
	}

	log.Printf("[MEMORY] Brand profile created: brand=%s name=%q role=%s",
		brandID, brandName, operator.Role)
	return bc, nil
}

// GetBrandProfile retrieves a brand context, refreshing its quality score
// on every read.
func (s *Service) GetBrandProfile(ctx context.Context, brandID string) (*BrandContext, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}

	bc, err := s.store.GetBrandContext(ctx, brandID)
	if err != nil {
		return nil, err
	}
	bc.CalculateMemoryQuality()
	return bc, nil
}

// UpdateBrandGravity appends one gravity history entry (computing the
// improvement against the prior entry), updates the current index, and
// stores a derived gravity insight naming the dominant breakdown dimension.
func (s *Service) UpdateBrandGravity(ctx context.Context, brandID string, gravityIndex float64, breakdown map[core.GravityType]float64) error {
	if err := s.ensureInitialized(); err != nil {
		return err
	}
	if gravityIndex < 0 || gravityIndex > 1 {
		return fmt.Errorf("gravity index %v out of range [0,1]: %w", gravityIndex, ErrValidation)
	}

	bc, err := s.store.GetBrandContext(ctx, brandID)
	if err != nil {
		return fmt.Errorf("update gravity for %s: %w", brandID, err)
	}

	improvement := 0.0
	if n := len(bc.GravityHistory); n > 0 {
		improvement = gravityIndex - bc.GravityHistory[n-1].GravityIndex
	}

	entry := GravityEntry{
		Timestamp:    time.Now(),
		GravityIndex: gravityIndex,
		Breakdown:    breakdown,
		Improvement:  improvement,
	}
	if _, err := s.store.UpdateBrandContext(ctx, brandID, ContextUpdate{
		CurrentGravityIndex: &gravityIndex,
		AppendGravity:       &entry,
	}); err != nil {
		return fmt.Errorf("append gravity entry for %s: %w", brandID, err)
	}

	insight := &Insight{
		InsightID: "gravity_update_" + shortID(8),
		Type:      TypeGravity,
		Content: fmt.Sprintf("Brand gravity index: %.3f. Strongest gravity: %s",
			gravityIndex, dominantGravity(breakdown)),
		Context: map[string]string{
			"improvement": strconv.FormatFloat(improvement, 'f', -1, 64),
		},
		ConfidenceScore: 1.0, // Gravity calculations are deterministic
		Source:          "gravity_analyzer",
		Timestamp:       time.Now(),
		Tags:            []string{"gravity_analysis", "metrics", "optimization"},
		GravityImpact:   &improvement,
	}
	if _, err := s.StoreInsight(ctx, brandID, insight); err != nil {
		return fmt.Errorf("store gravity insight for %s: %w", brandID, err)
	}

	log.Printf("[MEMORY] Brand gravity updated: brand=%s index=%.3f improvement=%+.3f",
		brandID, gravityIndex, improvement)
	return nil
}

// StoreInsight enriches the insight with up to 3 related insight IDs found
// by similarity lookup, then delegates to the store. Degraded similarity
// search yields an empty relation list rather than failing the operation.
func (s *Service) StoreInsight(ctx context.Context, brandID string, insight *Insight) (string, error) {
	if err := s.ensureInitialized(); err != nil {
		return "", err
	}
	if err := insight.Validate(); err != nil {
		return "", err
	}

	related, err := s.FindRelatedInsights(ctx, brandID, insight.Content, relatedInsightCap+1)
	if err != nil {
		// Enrichment must never fail the store operation.
		log.Printf("[MEMORY] Related insight lookup degraded for %s: %v", brandID, err)
		related = nil
	}
	insight.RelatedInsights = relationIDs(related, insight.InsightID, relatedInsightCap)

	id, err := s.store.StoreInsight(ctx, brandID, insight)
	if err != nil {
		return "", fmt.Errorf("store insight %s: %w", insight.InsightID, err)
	}

	log.Printf("[MEMORY] Insight stored: brand=%s id=%s type=%s related=%d",
		brandID, id, insight.Type, len(insight.RelatedInsights))
	return id, nil
}

// FindRelatedInsights resolves a semantic search over existing content into
// insights. Search degradation (no embedder, empty index) yields an empty
// list, not an error.
func (s *Service) FindRelatedInsights(ctx context.Context, brandID, queryText string, limit int) ([]*Insight, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}

	results, err := s.store.SemanticSearch(ctx, brandID, queryText, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("semantic search for %s: %w", brandID, err)
	}

	var insights []*Insight
	for _, r := range results {
		if r.InsightID == "" {
			continue
		}
		in, err := s.store.GetInsight(ctx, brandID, r.InsightID)
		if err != nil {
			// Index entries can outlive their insight; skip stale hits.
			continue
		}
		insights = append(insights, in)
	}
	return insights, nil
}

// RecordWorkshopSession records a complete workshop session: one insight
// per non-empty pillar output (strategic, creative, design, technology, in
// that order), one breakthrough insight per breakthrough moment, one
// interaction referencing everything, and a gravity update when the session
// produced a positive gravity index. Strictly sequential; no rollback on
// intermediate failure.
func (s *Service) RecordWorkshopSession(ctx context.Context, brandID string, session *core.SessionState, facilitator string) (string, error) {
	if err := s.ensureInitialized(); err != nil {
		return "", err
	}
	if facilitator == "" {
		facilitator = DefaultFacilitator
	}

	interactionID := fmt.Sprintf("workshop_%s_%s", session.SessionID, shortID(8))

	var generated []string
	for _, pillar := range []struct {
		output  core.PillarOutput
		typ     MemoryType
		prefix  string
		source  string
		element string
		tags    []string
	}{
		{session.StrategyInsights, TypeStrategic, "Strategic foundation", "strategy_swarm",
			"strategic_foundation", []string{"strategic_analysis", "truth_mining", "positioning"}},
		{session.CreativeDirections, TypeCreative, "Creative insights", "creative_swarm",
			"creative_direction", []string{"creative_analysis", "insight_hunting", "target_mind"}},
		{session.DesignSynthesis, TypeDesign, "Design synthesis", "design_swarm",
			"visual_identity", []string{"design_synthesis", "visual_weaving", "gravity_points"}},
		{session.TechnologyRoadmap, TypeTechnology, "Technology roadmap", "technology_swarm",
			"user_experience", []string{"technology_roadmap", "experience_building", "funnel_physics"}},
	} {
		if pillar.output.Empty() {
			continue
		}
		confidence := pillar.output.Confidence
		if confidence == 0 {
			confidence = 0.8
		}
		insight := &Insight{
			InsightID:       string(pillar.typ) + "_" + shortID(8),
			Type:            pillar.typ,
			Content:         fmt.Sprintf("%s: %s", pillar.prefix, pillar.output.Summary),
			Context:         copyStringMap(pillar.output.Details),
			ConfidenceScore: confidence,
			Source:          pillar.source,
			Timestamp:       time.Now(),
			Tags:            pillar.tags,
			BrandElement:    pillar.element,
		}
		id, err := s.StoreInsight(ctx, brandID, insight)
		if err != nil {
			return "", fmt.Errorf("record %s pillar: %w", pillar.typ, err)
		}
		generated = append(generated, id)
	}

	var breakthroughs []string
	for _, moment := range session.BreakthroughMoments {
		confidence := moment.IntersectionPotential
		if confidence == 0 {
			confidence = 0.8
		}
		insight := &Insight{
			InsightID: "breakthrough_" + shortID(8),
			Type:      TypeBreakthrough,
			Content:   "Breakthrough discovery: " + moment.BigIdea,
			Context: map[string]string{
				"truth_component":     moment.TruthComponent,
				"insight_component":   moment.InsightComponent,
				"implementation_path": moment.ImplementationPath,
			},
			ConfidenceScore: confidence,
			Source:          "vesica_pisces_engine",
			Timestamp:       time.Now(),
			Tags:            []string{"breakthrough", "vesica_pisces", "big_idea"},
			BrandElement:    "breakthrough_concept",
		}
		id, err := s.StoreInsight(ctx, brandID, insight)
		if err != nil {
			return "", fmt.Errorf("record breakthrough moment: %w", err)
		}
		breakthroughs = append(breakthroughs, id)
	}

	participant := session.OperatorContext.ParticipantID
	if participant == "" {
		participant = "operator"
	}
	interaction := &Interaction{
		InteractionID: interactionID,
		SessionID:     session.SessionID,
		Timestamp:     time.Now(),
		Type:          "subfracture_workshop",
		Facilitator:   facilitator,
		Participants:  []string{participant},
		DiscussionTopics: []string{
			"Strategic truth mining",
			"Creative insight hunting",
			"Design visual weaving",
			"Technology experience building",
			"Gravity analysis",
			"Vesica pisces breakthrough discovery",
		},
		InsightsGenerated:   generated,
		BreakthroughMoments: breakthroughs,
		FeedbackProvided: map[string]string{
			"validation_checkpoints": strconv.Itoa(len(session.ValidationCheckpoints)),
			"final_gravity_index":    strconv.FormatFloat(session.GravityIndex, 'f', -1, 64),
			"workflow_phase":         string(session.CurrentPhase),
		},
		NextSteps: session.ImplementationPlan,
	}

	storedID, err := s.store.StoreInteraction(ctx, brandID, interaction)
	if err != nil {
		return "", fmt.Errorf("store workshop interaction: %w", err)
	}

	if session.GravityIndex > 0 {
		if err := s.UpdateBrandGravity(ctx, brandID, session.GravityIndex, session.GravityAnalysis); err != nil {
			return "", err
		}
	}

	log.Printf("[MEMORY] Workshop session recorded: brand=%s session=%s insights=%d breakthroughs=%d",
		brandID, session.SessionID, len(generated), len(breakthroughs))
	return storedID, nil
}

// TypeSummary summarizes one memory type inside an intelligence summary.
type TypeSummary struct {
	Count         int        `json:"count"`
	Latest        *time.Time `json:"latest,omitempty"`
	AvgConfidence float64    `json:"avg_confidence"`
}

// BrandInfo identifies the brand inside an intelligence summary.
type BrandInfo struct {
	BrandID     string    `json:"brand_id"`
	BrandName   string    `json:"brand_name"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// RecentActivity summarizes trailing activity inside an intelligence
// summary.
type RecentActivity struct {
	InsightsLast30Days int        `json:"insights_last_30_days"`
	RecentInteractions int        `json:"recent_interactions"`
	LastSession        *time.Time `json:"last_session,omitempty"`
}

// BrandHealth carries derived health scores inside an intelligence summary.
type BrandHealth struct {
	GravityIndex          float64 `json:"gravity_index"`
	MemoryQuality         float64 `json:"memory_quality"`
	KnowledgeCompleteness float64 `json:"knowledge_completeness"`
	EngagementLevel       float64 `json:"engagement_level"`
}

// IntelligenceSummary is the dashboard view of one brand's memory. Error is
// set instead of returning a Go error: reporting paths never raise.
type IntelligenceSummary struct {
	Error          string                     `json:"error,omitempty"`
	BrandInfo      BrandInfo                  `json:"brand_info"`
	MemoryStats    *Analytics                 `json:"memory_stats,omitempty"`
	InsightsByType map[MemoryType]TypeSummary `json:"insights_by_type,omitempty"`
	RecentActivity RecentActivity             `json:"recent_activity"`
	BrandHealth    BrandHealth                `json:"brand_health"`
}

// IntelligenceSummary builds the comprehensive summary for a brand. It
// never returns an error; failures degrade to a summary whose Error field
// is set, so a dashboard caller is never interrupted by a read-only path.
func (s *Service) IntelligenceSummary(ctx context.Context, brandID string) *IntelligenceSummary {
	if err := s.ensureInitialized(); err != nil {
		return &IntelligenceSummary{Error: err.Error()}
	}

	bc, err := s.GetBrandProfile(ctx, brandID)
	if err != nil {
		log.Printf("[MEMORY] Intelligence summary failed: brand=%s err=%v", brandID, err)
		if errors.Is(err, ErrNotFound) {
			return &IntelligenceSummary{Error: "Brand not found"}
		}
		return &IntelligenceSummary{Error: err.Error()}
	}

	analytics, err := s.store.MemoryAnalytics(ctx, brandID)
	if err != nil {
		log.Printf("[MEMORY] Memory analytics failed: brand=%s err=%v", brandID, err)
		return &IntelligenceSummary{Error: err.Error()}
	}

	byType := make(map[MemoryType]TypeSummary, len(MemoryTypes))
	for _, t := range MemoryTypes {
		insights := bc.InsightsByType(t)
		ts := TypeSummary{Count: len(insights)}
		if n := len(insights); n > 0 {
			latest := insights[n-1].Timestamp
			ts.Latest = &latest
			var sum float64
			for _, in := range insights {
				sum += in.ConfidenceScore
			}
			ts.AvgConfidence = sum / float64(n)
		}
		byType[t] = ts
	}

	recent, err := s.store.RecentInteractions(ctx, brandID, 5)
	if err != nil {
		recent = nil
	}

	return &IntelligenceSummary{
		BrandInfo: BrandInfo{
			BrandID:     bc.BrandID,
			BrandName:   bc.BrandName,
			CreatedAt:   bc.CreatedAt,
			LastUpdated: bc.LastUpdated,
		},
		MemoryStats:    analytics,
		InsightsByType: byType,
		RecentActivity: RecentActivity{
			InsightsLast30Days: len(bc.RecentInsights(30)),
			RecentInteractions: len(recent),
			LastSession:        bc.LastSessionDate,
		},
		BrandHealth: BrandHealth{
			GravityIndex:          bc.CurrentGravityIndex,
			MemoryQuality:         bc.MemoryQualityScore,
			KnowledgeCompleteness: knowledgeCompleteness(byType),
			EngagementLevel:       engagementLevel(bc),
		},
	}
}

// KnowledgeSearchResult combines semantic and structured search results.
type KnowledgeSearchResult struct {
	Query           string         `json:"query"`
	SemanticResults []SearchResult `json:"semantic_results"`
	InsightResults  []*Insight     `json:"insight_results"`
	TotalResults    int            `json:"total_results"`
}

// SearchKnowledge runs a semantic search and a structured insight query for
// the same text and concatenates the result counts. Zero results is never
// an error.
func (s *Service) SearchKnowledge(ctx context.Context, brandID, query string, types []MemoryType, limit int) (*KnowledgeSearchResult, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	semantic, err := s.store.SemanticSearch(ctx, brandID, query, types, limit)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	insights, err := s.store.QueryInsights(ctx, brandID, Query{
		Types: types,
		Text:  query,
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query insights: %w", err)
	}

	return &KnowledgeSearchResult{
		Query:           query,
		SemanticResults: semantic,
		InsightResults:  insights,
		TotalResults:    len(semantic) + len(insights),
	}, nil
}

// HealthStatus aggregates service and store health.
type HealthStatus struct {
	ServiceStatus   string      `json:"service_status"` // healthy, unhealthy, error
	StoreHealth     *Health     `json:"store_health,omitempty"`
	StoreStatistics *Statistics `json:"store_statistics,omitempty"`
	Timestamp       time.Time   `json:"timestamp"`
	Error           string      `json:"error,omitempty"`
}

// HealthStatus reports overall service health. It never returns an error;
// internal failures degrade to an error-status payload.
func (s *Service) HealthStatus(ctx context.Context) *HealthStatus {
	status := &HealthStatus{Timestamp: time.Now()}
	if s.initialized {
		status.ServiceStatus = "healthy"
	} else {
		status.ServiceStatus = "unhealthy"
	}

	health, err := s.store.HealthCheck(ctx)
	if err != nil {
		status.ServiceStatus = "error"
		status.Error = err.Error()
		return status
	}
	status.StoreHealth = health

	stats, err := s.store.StoreStatistics(ctx)
	if err != nil {
		status.ServiceStatus = "error"
		status.Error = err.Error()
		return status
	}
	status.StoreStatistics = stats
	return status
}

// knowledgeCompleteness is the fraction of the four key pillar categories
// with at least one insight.
func knowledgeCompleteness(byType map[MemoryType]TypeSummary) float64 {
	keyTypes := []MemoryType{TypeStrategic, TypeCreative, TypeDesign, TypeTechnology}
	covered := 0
	for _, t := range keyTypes {
		if byType[t].Count > 0 {
			covered++
		}
	}
	return float64(covered) / float64(len(keyTypes))
}

// engagementLevel averages three equally weighted activity signals.
func engagementLevel(bc *BrandContext) float64 {
	insightScore := float64(len(bc.RecentInsights(30))) / 10
	if insightScore > 1 {
		insightScore = 1
	}
	interactionScore := float64(bc.TotalInteractions) / 5
	if interactionScore > 1 {
		interactionScore = 1
	}
	recencyScore := 0.0
	if bc.LastSessionDate != nil && time.Since(*bc.LastSessionDate) < 30*24*time.Hour {
		recencyScore = 1.0
	}
	return (insightScore + interactionScore + recencyScore) / 3
}

// dominantGravity names the breakdown key with the maximum value.
func dominantGravity(breakdown map[core.GravityType]float64) core.GravityType {
	var best core.GravityType
	bestVal := -1.0
	for _, t := range core.GravityTypes {
		if v, ok := breakdown[t]; ok && v > bestVal {
			best, bestVal = t, v
		}
	}
	if best == "" {
		best = "unknown"
	}
	return best
}

// relationIDs extracts up to max insight IDs, skipping self and duplicates.
func relationIDs(insights []*Insight, selfID string, max int) []string {
	var ids []string
	seen := map[string]bool{selfID: true}
	for _, in := range insights {
		if seen[in.InsightID] {
			continue
		}
		seen[in.InsightID] = true
		ids = append(ids, in.InsightID)
		if len(ids) == max {
			break
		}
	}
	return ids
}

// shortID returns n hex characters of a random UUID.
func shortID(n int) string {
	id := fmt.Sprintf("%x", [16]byte(uuid.New()))
	if n > len(id) {
		n = len(id)
	}
	return id[:n]
}
