package analysis

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/domocarroll/subfracture-go/core"
)

// SessionState converts the analysis into a completed workshop session
// ready for recording. Each pillar output carries the slice of findings
// relevant to it; the gravity analysis and index come straight from the
// breakdown.
func (r *Result) SessionState(sessionID string, req Request) *core.SessionState {
	state := &core.SessionState{
		SessionID:       sessionID,
		StartedAt:       time.Now(),
		CurrentPhase:    core.PhaseCompleted,
		BrandBrief:      req.BrandBrief,
		OperatorContext: req.Operator,
		TargetOutcome:   req.TargetOutcome,

		GravityAnalysis: r.GravityBreakdown,
		GravityIndex:    r.GravityIndex,

		ImplementationPlan: r.Recommendations,
	}

	state.StrategyInsights = core.PillarOutput{
		Summary:    r.Positioning["positioning_statement"],
		Confidence: r.Themes.CoherenceScore,
		Details:    strategyDetails(r),
	}
	if state.StrategyInsights.Summary == "" {
		state.StrategyInsights.Summary = fmt.Sprintf("Positioning for %s in category %s",
			r.Positioning["target_audience"], r.Positioning["category"])
	}

	state.CreativeDirections = core.PillarOutput{
		Summary:    r.Personality["core_traits"],
		Confidence: r.Sentiment.SentimentRatio,
		Details:    r.Personality,
	}

	state.DesignSynthesis = core.PillarOutput{
		Summary:    designSummary(r),
		Confidence: r.Themes.Scores["creative_methodology"],
		Details:    themeDetails(r),
	}

	state.TechnologyRoadmap = core.PillarOutput{
		Summary:    technologySummary(r),
		Confidence: r.Themes.Scores["technology_integration"],
		Details: map[string]string{
			"timing_score":          formatScore(r.TimingScore),
			"competitive_readiness": formatScore(r.CompetitiveReadiness),
		},
	}

	return state
}

func strategyDetails(r *Result) map[string]string {
	details := make(map[string]string, len(r.Positioning)+2)
	for k, v := range r.Positioning {
		details[k] = v
	}
	if len(r.Advantages) > 0 {
		details["advantages"] = strings.Join(r.Advantages, "; ")
	}
	if len(r.Opportunities) > 0 {
		details["opportunities"] = strings.Join(r.Opportunities, "; ")
	}
	return details
}

func themeDetails(r *Result) map[string]string {
	details := make(map[string]string, len(r.Themes.Scores)+1)
	for theme, score := range r.Themes.Scores {
		details[theme] = formatScore(score)
	}
	details["coherence"] = formatScore(r.Themes.CoherenceScore)
	return details
}

func designSummary(r *Result) string {
	if len(r.Themes.DominantThemes) == 0 {
		return "Visual direction pending deeper brand exploration"
	}
	return fmt.Sprintf("Visual identity anchored in %s",
		strings.ReplaceAll(r.Themes.DominantThemes[0], "_", " "))
}

func technologySummary(r *Result) string {
	if r.Themes.Scores["technology_integration"] > 0.3 {
		return "Technology-forward experience with human validation loops"
	}
	return "Progressive technology adoption matched to brand maturity"
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
