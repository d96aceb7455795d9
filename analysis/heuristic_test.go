package analysis_test

import (
	"context"
	"strings"
	"testing"

	"github.com/domocarroll/subfracture-go/analysis"
	"github.com/domocarroll/subfracture-go/core"
)

const sampleBrief = `SUBFRACTURE is a brand intelligence agency for brand operators.
We keep humans in the tech loop with AI technology while the heart knows what is
authentic. Creative destructionism and vesica pisces drive breakthrough positioning.
The timing is now: emerging brands need a different, unique alternative and nobody
else fills the gap. We are confident this is the moment.`

func testRequest(deep bool) analysis.Request {
	return analysis.Request{
		BrandBrief: sampleBrief,
		Operator: core.OperatorContext{
			Role:         "Founder",
			Industry:     "Brand Intelligence",
			CompanyStage: "Launch Phase",
		},
		TargetOutcome: "Breakthrough positioning",
		Deep:          deep,
	}
}

func TestHeuristicStandardAnalysis(t *testing.T) {
	result, err := analysis.NewHeuristic().Analyze(context.Background(), testRequest(false))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.Mode != analysis.ModeStandard {
		t.Fatalf("Mode = %q, want standard", result.Mode)
	}
	if result.GravityIndex < 0 || result.GravityIndex > 1 {
		t.Fatalf("GravityIndex = %v, out of [0,1]", result.GravityIndex)
	}
	if result.Structure.Words == 0 || result.Structure.Sentences == 0 {
		t.Fatalf("Structure not computed: %+v", result.Structure)
	}

	// The brief is dense with human-centered and positioning language.
	if result.Themes.Scores["human_centered"] == 0 {
		t.Fatal("human_centered theme not detected")
	}
	if result.Themes.Scores["brand_positioning"] == 0 {
		t.Fatal("brand_positioning theme not detected")
	}
	if len(result.Themes.DominantThemes) != 3 {
		t.Fatalf("DominantThemes = %v, want 3 entries", result.Themes.DominantThemes)
	}
}

func TestHeuristicDeepAnalysis(t *testing.T) {
	result, err := analysis.NewHeuristic().Analyze(context.Background(), testRequest(true))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.Mode != analysis.ModeDeep {
		t.Fatalf("Mode = %q, want deep", result.Mode)
	}
	if result.KeyPhrases["brand_specific"]["vesica pisces"] != 1 {
		t.Fatalf("Key phrase extraction missed vesica pisces: %v", result.KeyPhrases)
	}
	if _, ok := result.Frameworks["SUBFRACTURE Methods"]; !ok {
		t.Fatalf("Framework detection missed SUBFRACTURE Methods: %v", result.Frameworks)
	}
	if result.TimingScore == 0 {
		t.Fatal("Timing signals not detected despite 'now'/'timing'/'moment'")
	}
}

func TestGravityBreakdownCoversAllDimensions(t *testing.T) {
	result, err := analysis.NewHeuristic().Analyze(context.Background(), testRequest(true))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(result.GravityBreakdown) != len(core.GravityTypes) {
		t.Fatalf("Breakdown has %d dimensions, want %d", len(result.GravityBreakdown), len(core.GravityTypes))
	}
	for _, gt := range core.GravityTypes {
		v, ok := result.GravityBreakdown[gt]
		if !ok {
			t.Fatalf("Breakdown missing %s", gt)
		}
		if v < 0 || v > 1 {
			t.Fatalf("Breakdown[%s] = %v, out of [0,1]", gt, v)
		}
	}
}

func TestAnalysisDeterministic(t *testing.T) {
	ctx := context.Background()
	h := analysis.NewHeuristic()

	a, _ := h.Analyze(ctx, testRequest(true))
	b, _ := h.Analyze(ctx, testRequest(true))

	if a.GravityIndex != b.GravityIndex {
		t.Fatalf("GravityIndex varies: %v vs %v", a.GravityIndex, b.GravityIndex)
	}
	if a.Themes.CoherenceScore != b.Themes.CoherenceScore {
		t.Fatal("CoherenceScore varies between runs")
	}
	if strings.Join(a.Themes.DominantThemes, ",") != strings.Join(b.Themes.DominantThemes, ",") {
		t.Fatal("DominantThemes ordering varies between runs")
	}
}

func TestLaunchPhaseRecommendations(t *testing.T) {
	result, err := analysis.NewHeuristic().Analyze(context.Background(), testRequest(false))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	found := false
	for _, rec := range result.Recommendations {
		if strings.Contains(rec, "high-value clients") {
			found = true
		}
	}
	if !found {
		t.Fatalf("Launch Phase operator should get client-focus recommendation: %v", result.Recommendations)
	}
}

func TestSessionStateConversion(t *testing.T) {
	req := testRequest(true)
	result, err := analysis.NewHeuristic().Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	state := result.SessionState("sess_1", req)
	if state.SessionID != "sess_1" {
		t.Fatalf("SessionID = %q", state.SessionID)
	}
	if state.CurrentPhase != core.PhaseCompleted {
		t.Fatalf("CurrentPhase = %q, want completed", state.CurrentPhase)
	}
	if state.GravityIndex != result.GravityIndex {
		t.Fatalf("GravityIndex not carried over: %v vs %v", state.GravityIndex, result.GravityIndex)
	}
	if state.StrategyInsights.Empty() {
		t.Fatal("Strategy pillar is empty")
	}
	if state.CreativeDirections.Empty() {
		t.Fatal("Creative pillar is empty")
	}
	if len(state.ImplementationPlan) == 0 {
		t.Fatal("ImplementationPlan is empty")
	}
	if state.BrandBrief != req.BrandBrief {
		t.Fatal("Brief not carried into session state")
	}
}
