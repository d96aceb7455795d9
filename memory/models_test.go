package memory_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/domocarroll/subfracture-go/memory"
)

func testInsight(id string, typ memory.MemoryType, confidence float64) *memory.Insight {
	return &memory.Insight{
		InsightID:       id,
		Type:            typ,
		Content:         "Test insight content for " + id,
		ConfidenceScore: confidence,
		Source:          "test",
		Timestamp:       time.Now(),
	}
}

func TestInsightValidate(t *testing.T) {
	in := testInsight("i1", memory.TypeStrategic, 0.8)
	if err := in.Validate(); err != nil {
		t.Fatalf("Valid insight rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*memory.Insight)
	}{
		{"missing ID", func(in *memory.Insight) { in.InsightID = "" }},
		{"unknown type", func(in *memory.Insight) { in.Type = "telepathy" }},
		{"confidence above 1", func(in *memory.Insight) { in.ConfidenceScore = 1.5 }},
		{"confidence below 0", func(in *memory.Insight) { in.ConfidenceScore = -0.1 }},
		{"self relation", func(in *memory.Insight) { in.RelatedInsights = []string{"i1"} }},
		{"duplicate relation", func(in *memory.Insight) { in.RelatedInsights = []string{"x", "x"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := testInsight("i1", memory.TypeStrategic, 0.8)
			tc.mutate(in)
			if err := in.Validate(); !errors.Is(err, memory.ErrValidation) {
				t.Fatalf("Expected ErrValidation, got: %v", err)
			}
		})
	}
}

func TestInteractionValidateSatisfactionBounds(t *testing.T) {
	bad := 10.5
	it := &memory.Interaction{
		InteractionID:     "w1",
		SessionID:         "s1",
		Type:              "subfracture_workshop",
		SatisfactionScore: &bad,
	}
	if err := it.Validate(); !errors.Is(err, memory.ErrValidation) {
		t.Fatalf("Expected ErrValidation for satisfaction 10.5, got: %v", err)
	}

	good := 8.0
	it.SatisfactionScore = &good
	if err := it.Validate(); err != nil {
		t.Fatalf("Valid interaction rejected: %v", err)
	}
}

func TestCalculateMemoryQuality(t *testing.T) {
	bc := memory.NewBrandContext("b1", "Test Brand")

	if got := bc.CalculateMemoryQuality(); got != 0 {
		t.Fatalf("Empty context quality = %v, want 0", got)
	}

	// Two recent insights, one validated, confidences 0.6 and 1.0.
	a := testInsight("a", memory.TypeStrategic, 0.6)
	a.ValidationStatus = "validated"
	b := testInsight("b", memory.TypeCreative, 1.0)
	bc.AddInsight(a)
	bc.AddInsight(b)

	// 0.4*0.8 + 0.4*0.5 + 0.2*1.0 = 0.72
	got := bc.CalculateMemoryQuality()
	if math.Abs(got-0.72) > 1e-9 {
		t.Fatalf("Quality = %v, want 0.72", got)
	}
	if bc.MemoryQualityScore != got {
		t.Fatalf("Quality not stored on context")
	}

	// Old insights drop the recency factor but not the rest.
	old := testInsight("c", memory.TypeDesign, 1.0)
	old.Timestamp = time.Now().AddDate(0, 0, -60)
	bc.AddInsight(old)

	// conf mean = 2.6/3, validated = 1/3, recent = 2/3
	want := (2.6/3)*0.4 + (1.0/3)*0.4 + (2.0/3)*0.2
	if got := bc.CalculateMemoryQuality(); math.Abs(got-want) > 1e-9 {
		t.Fatalf("Quality with old insight = %v, want %v", got, want)
	}
}

func TestBrandContextCounters(t *testing.T) {
	bc := memory.NewBrandContext("b1", "Test Brand")

	bc.AddInsight(testInsight("a", memory.TypeStrategic, 0.5))
	bc.AddInsight(testInsight("b", memory.TypeStrategic, 0.5))
	// Re-adding the same ID must not double count.
	bc.AddInsight(testInsight("b", memory.TypeStrategic, 0.6))

	if bc.TotalInsights != 2 {
		t.Fatalf("TotalInsights = %d, want 2", bc.TotalInsights)
	}

	it := &memory.Interaction{InteractionID: "w1", SessionID: "s1", Timestamp: time.Now()}
	bc.AddInteraction(it)
	if bc.TotalInteractions != 1 {
		t.Fatalf("TotalInteractions = %d, want 1", bc.TotalInteractions)
	}
	if bc.LastSessionDate == nil || !bc.LastSessionDate.Equal(it.Timestamp) {
		t.Fatalf("LastSessionDate not set from interaction")
	}
}

func TestBrandContextCloneIsolation(t *testing.T) {
	bc := memory.NewBrandContext("b1", "Test Brand")
	bc.AddInsight(testInsight("a", memory.TypeStrategic, 0.5))
	bc.GravityHistory = append(bc.GravityHistory, memory.GravityEntry{
		Timestamp:    time.Now(),
		GravityIndex: 0.4,
	})

	clone := bc.Clone()
	clone.Insights["a"].Content = "mutated"
	clone.GravityHistory[0].GravityIndex = 0.9
	clone.BrandName = "Other"

	if bc.Insights["a"].Content == "mutated" {
		t.Fatal("Clone shares insight with original")
	}
	if bc.GravityHistory[0].GravityIndex == 0.9 {
		t.Fatal("Clone shares gravity history with original")
	}
	if bc.BrandName != "Test Brand" {
		t.Fatal("Clone shares scalar state with original")
	}
}

func TestQueryMatches(t *testing.T) {
	in := testInsight("a", memory.TypeStrategic, 0.7)
	in.Tags = []string{"positioning", "launch"}
	in.Content = "Premium positioning for emerging brands"

	cases := []struct {
		name  string
		query memory.Query
		want  bool
	}{
		{"empty query", memory.Query{}, true},
		{"matching type", memory.Query{Types: []memory.MemoryType{memory.TypeStrategic}}, true},
		{"wrong type", memory.Query{Types: []memory.MemoryType{memory.TypeCreative}}, false},
		{"all tags present", memory.Query{Tags: []string{"launch", "positioning"}}, true},
		{"missing tag", memory.Query{Tags: []string{"launch", "metrics"}}, false},
		{"confidence floor met", memory.Query{MinConfidence: 0.7}, true},
		{"confidence floor unmet", memory.Query{MinConfidence: 0.71}, false},
		{"text match case-insensitive", memory.Query{Text: "PREMIUM"}, true},
		{"text miss", memory.Query{Text: "budget"}, false},
		{"until in past", memory.Query{Until: time.Now().Add(-time.Hour)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.query.Matches(in); got != tc.want {
				t.Fatalf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestQuerySortAndLimit(t *testing.T) {
	older := testInsight("older", memory.TypeStrategic, 0.9)
	older.Timestamp = time.Now().Add(-2 * time.Hour)
	newer := testInsight("newer", memory.TypeStrategic, 0.3)

	insights := []*memory.Insight{older, newer}

	var q memory.Query
	q.Sort(insights)
	if insights[0].InsightID != "newer" {
		t.Fatalf("Default sort should be newest first, got %s", insights[0].InsightID)
	}

	q = memory.Query{SortBy: "confidence"}
	q.Sort(insights)
	if insights[0].InsightID != "older" {
		t.Fatalf("Confidence sort should be highest first, got %s", insights[0].InsightID)
	}

	if got := (memory.Query{}).EffectiveLimit(); got != memory.DefaultQueryLimit {
		t.Fatalf("EffectiveLimit zero = %d, want %d", got, memory.DefaultQueryLimit)
	}
	if got := (memory.Query{Limit: 500}).EffectiveLimit(); got != memory.MaxQueryLimit {
		t.Fatalf("EffectiveLimit 500 = %d, want %d", got, memory.MaxQueryLimit)
	}
}

func TestUpdateRequestApplyRevalidates(t *testing.T) {
	in := testInsight("a", memory.TypeStrategic, 0.5)

	newContent := "Updated content"
	newConfidence := 0.9
	req := memory.UpdateRequest{
		InsightID: "a",
		Updates: memory.InsightUpdate{
			Content:         &newContent,
			ConfidenceScore: &newConfidence,
		},
	}
	if err := req.Apply(in); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if in.Content != newContent || in.ConfidenceScore != 0.9 {
		t.Fatalf("Apply did not update fields: %+v", in)
	}

	bad := 2.0
	req = memory.UpdateRequest{InsightID: "a", Updates: memory.InsightUpdate{ConfidenceScore: &bad}}
	if err := req.Apply(in); !errors.Is(err, memory.ErrValidation) {
		t.Fatalf("Expected ErrValidation for confidence 2.0, got: %v", err)
	}
	if in.ConfidenceScore != 0.9 {
		t.Fatalf("Failed update mutated the insight: %v", in.ConfidenceScore)
	}
}
