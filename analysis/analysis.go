// Package analysis turns a raw brand brief into structured workshop
// findings: theme and sentiment statistics, key phrase and framework
// detection, a heuristic gravity index with its five-dimension breakdown,
// and strategic outputs (positioning, advantages, recommendations).
//
// Two analyzers are provided. Heuristic is pure keyword statistics and
// always available. Claude layers Anthropic API reasoning on top and falls
// back to the heuristic result when the API is unreachable.
package analysis

import (
	"context"

	"github.com/domocarroll/subfracture-go/core"
)

// Analysis modes.
const (
	ModeStandard = "standard"
	ModeDeep     = "deep"
)

// Request carries the inputs for one brief analysis.
type Request struct {
	// BrandBrief is the raw transcript or brief text.
	BrandBrief string

	// Operator shapes audience-specific recommendations.
	Operator core.OperatorContext

	// TargetOutcome states what the operator wants from the workshop.
	TargetOutcome string

	// Deep enables the extended statistics pass.
	Deep bool
}

// ContentStructure holds surface statistics of the brief text.
type ContentStructure struct {
	Characters          int     `json:"total_characters"`
	Words               int     `json:"total_words"`
	Sentences           int     `json:"total_sentences"`
	Paragraphs          int     `json:"total_paragraphs"`
	Questions           int     `json:"questions_asked"`
	AvgSentenceLength   float64 `json:"avg_sentence_length"`
	ConversationDensity float64 `json:"conversation_density"`
}

// ThemeAnalysis scores the brief against the strategic theme vocabulary.
type ThemeAnalysis struct {
	// Scores maps theme name to a [0,1] frequency score.
	Scores map[string]float64 `json:"theme_scores"`

	// CoherenceScore is the mean of all theme scores.
	CoherenceScore float64 `json:"coherence_score"`

	// DominantThemes lists the top three themes, strongest first.
	DominantThemes []string `json:"dominant_themes"`
}

// SentimentAnalysis summarizes tone indicators found in the brief.
type SentimentAnalysis struct {
	Positive  int `json:"positive"`
	Negative  int `json:"negative"`
	Confident int `json:"confident"`
	Uncertain int `json:"uncertain"`

	// EnergyLevel counts high-energy markers.
	EnergyLevel int `json:"energy_level"`

	// SentimentRatio is positive/(positive+negative), 0 when neither.
	SentimentRatio float64 `json:"sentiment_ratio"`

	// ConfidenceRatio is confident/(confident+uncertain), 0 when neither.
	ConfidenceRatio float64 `json:"confidence_ratio"`

	// OverallTone is "confident_energetic" or "professional".
	OverallTone string `json:"overall_tone"`
}

// Result is the full output of one analysis pass.
type Result struct {
	Mode string `json:"mode"`

	GravityIndex     float64                      `json:"gravity_index"`
	GravityBreakdown map[core.GravityType]float64 `json:"gravity_breakdown"`

	Structure ContentStructure  `json:"content_structure"`
	Themes    ThemeAnalysis     `json:"theme_analysis"`
	Sentiment SentimentAnalysis `json:"sentiment_analysis"`

	// KeyPhrases maps category ("brand_specific", "strategic") to phrase
	// occurrence counts.
	KeyPhrases map[string]map[string]int `json:"key_phrases,omitempty"`

	// Frameworks maps detected framework name to total keyword mentions.
	Frameworks map[string]int `json:"frameworks,omitempty"`

	// CompetitiveReadiness scores differentiation and innovation signals.
	CompetitiveReadiness float64 `json:"competitive_readiness"`

	// MarketGapSignals counts unmet-need language found in the brief.
	MarketGapSignals int `json:"market_gap_signals"`

	// TimingScore scores market timing signals.
	TimingScore float64 `json:"timing_score"`

	Positioning     map[string]string `json:"positioning,omitempty"`
	Advantages      []string          `json:"advantages,omitempty"`
	Opportunities   []string          `json:"opportunities,omitempty"`
	Personality     map[string]string `json:"personality,omitempty"`
	Recommendations []string          `json:"recommendations,omitempty"`
}

// Analyzer analyzes a brand brief into workshop findings.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}
