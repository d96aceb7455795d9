package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-20250514"

const deepAnalysisSystemPrompt = `You are a brand strategist analyzing a brand brief.
Given the brief, heuristic statistics, and operator context, refine the findings.
Respond with only a JSON object with these keys:
  "gravity_index": number in [0,1], the overall brand attraction strength
  "positioning": object of string fields (target_audience, category, positioning_statement)
  "advantages": array of strings, competitive advantages
  "opportunities": array of strings, market opportunities
  "personality": object of string fields describing the brand personality
  "recommendations": array of strings, actionable strategic recommendations
Ground every value in the brief. Do not invent facts about the brand.`

// Claude layers Anthropic API reasoning over the heuristic analyzer.
// Every request runs the heuristic pass first; the API call refines its
// strategic outputs. If the API is unreachable or returns something
// unparseable, the heuristic result stands.
type Claude struct {
	client    *anthropic.Client
	heuristic *Heuristic
	model     string
	maxTokens int64
}

// ClaudeOption configures the Claude analyzer.
type ClaudeOption func(*Claude)

// WithModel overrides DefaultModel.
func WithModel(model string) ClaudeOption {
	return func(c *Claude) { c.model = model }
}

// WithMaxTokens overrides the response token budget.
func WithMaxTokens(n int64) ClaudeOption {
	return func(c *Claude) { c.maxTokens = n }
}

// NewClaude creates a Claude analyzer on the given client.
func NewClaude(client *anthropic.Client, opts ...ClaudeOption) *Claude {
	c := &Claude{
		client:    client,
		heuristic: NewHeuristic(),
		model:     DefaultModel,
		maxTokens: 2048,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// refinement is the JSON shape the model is asked to return.
type refinement struct {
	GravityIndex    *float64          `json:"gravity_index"`
	Positioning     map[string]string `json:"positioning"`
	Advantages      []string          `json:"advantages"`
	Opportunities   []string          `json:"opportunities"`
	Personality     map[string]string `json:"personality"`
	Recommendations []string          `json:"recommendations"`
}

// Analyze runs the heuristic pass and refines it through the API. API
// failure is never fatal; the heuristic result is returned instead.
func (c *Claude) Analyze(ctx context.Context, req Request) (*Result, error) {
	base, err := c.heuristic.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	ref, err := c.refine(ctx, req, base)
	if err != nil {
		log.Printf("[ANALYSIS] Claude refinement unavailable, keeping heuristic result: %v", err)
		return base, nil
	}

	c.merge(base, ref)
	log.Printf("[ANALYSIS] Claude refinement applied: model=%s gravity=%.3f", c.model, base.GravityIndex)
	return base, nil
}

func (c *Claude) refine(ctx context.Context, req Request, base *Result) (*refinement, error) {
	stats, err := json.Marshal(map[string]any{
		"gravity_index":      base.GravityIndex,
		"theme_scores":       base.Themes.Scores,
		"coherence_score":    base.Themes.CoherenceScore,
		"sentiment_ratio":    base.Sentiment.SentimentRatio,
		"confidence_ratio":   base.Sentiment.ConfidenceRatio,
		"timing_score":       base.TimingScore,
		"detected_framework": base.Frameworks,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal statistics: %w", err)
	}

	prompt := fmt.Sprintf(
		"Brand brief:\n%s\n\nTarget outcome: %s\nOperator role: %s (%s, %s)\n\nHeuristic statistics:\n%s",
		req.BrandBrief, req.TargetOutcome,
		req.Operator.Role, req.Operator.Industry, req.Operator.CompanyStage,
		stats,
	)

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: deepAnalysisSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude API error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	payload := extractJSON(text)
	if payload == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}
	var ref refinement
	if err := json.Unmarshal([]byte(payload), &ref); err != nil {
		return nil, fmt.Errorf("parse refinement: %w", err)
	}
	return &ref, nil
}

// merge overlays non-empty refinement fields onto the heuristic result.
func (c *Claude) merge(base *Result, ref *refinement) {
	if ref.GravityIndex != nil {
		base.GravityIndex = clamp1(*ref.GravityIndex)
		base.GravityBreakdown = gravityBreakdown(base)
	}
	if len(ref.Positioning) > 0 {
		base.Positioning = ref.Positioning
	}
	if len(ref.Advantages) > 0 {
		base.Advantages = ref.Advantages
	}
	if len(ref.Opportunities) > 0 {
		base.Opportunities = ref.Opportunities
	}
	if len(ref.Personality) > 0 {
		base.Personality = ref.Personality
	}
	if len(ref.Recommendations) > 0 {
		base.Recommendations = ref.Recommendations
	}
}

// extractJSON returns the outermost {...} in text, tolerating prose or
// code fences around the object.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
