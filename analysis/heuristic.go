package analysis

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/domocarroll/subfracture-go/core"
)

// Strategic theme vocabulary. Scores are occurrence counts normalized by
// brief length so long transcripts do not dominate.
var themeKeywords = map[string][]string{
	"human_centered":         {"human", "heart", "intuition", "personal", "authentic", "soul", "emotion"},
	"technology_integration": {"ai", "technology", "tech", "digital", "cyborg", "machine"},
	"creative_methodology":   {"creative", "design", "strategy", "methodology", "framework", "process"},
	"brand_positioning":      {"brand", "positioning", "identity", "personality", "voice", "essence"},
	"market_disruption":      {"disruption", "different", "unique", "breakthrough", "innovation"},
	"business_strategy":      {"business", "strategy", "market", "competitive", "advantage"},
}

var (
	positiveIndicators    = []string{"love", "great", "fantastic", "amazing", "cool", "awesome", "brilliant"}
	negativeIndicators    = []string{"hate", "bad", "terrible", "awful", "sucks", "problem", "issue"}
	confidenceIndicators  = []string{"confident", "sure", "certain", "definitely", "absolutely"}
	uncertaintyIndicators = []string{"maybe", "perhaps", "might", "unsure", "don't know"}
	highEnergyIndicators  = []string{"crazy", "wild", "insane", "massive", "electric", "explosive"}

	strategicClarityKeywords = []string{"purpose", "personality", "positioning", "unique", "different"}

	brandPhrases = []string{
		"brand operator", "brand intelligence", "creative destructionism",
		"vesica pisces", "humans in the tech loop", "brand worlds",
		"start with the end in mind", "heart knows", "anti-slop",
	}
	strategicConcepts = []string{
		"positioning", "differentiation", "competitive advantage",
		"market opportunity", "unique selling proposition", "target audience",
	}

	frameworkKeywords = map[string][]string{
		"Design Thinking":     {"design thinking", "human-centered design", "empathy", "ideate", "prototype"},
		"Brand Strategy":      {"brand positioning", "brand essence", "brand personality", "brand archetype"},
		"SUBFRACTURE Methods": {"creative destructionism", "vesica pisces", "four pillars", "gravity"},
	}

	differentiationTerms = []string{"different", "unique", "unlike", "alternative"}
	innovationTerms      = []string{"first", "new", "innovative", "pioneering", "breakthrough"}
	gapIndicators        = []string{"no one", "nobody", "missing", "gap", "opportunity", "need", "demand"}
	timingIndicators     = []string{"now", "timing", "moment", "ready", "ripe", "wave", "trend"}
)

// Heuristic analyzes briefs with pure keyword statistics. Deterministic
// and dependency-free, so it doubles as the fallback for API-backed
// analyzers.
type Heuristic struct{}

// NewHeuristic creates a heuristic analyzer.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Analyze runs the keyword passes over the brief. The deep mode adds
// phrase extraction, framework detection, and competitive/timing signals;
// both modes produce the gravity index and breakdown.
func (h *Heuristic) Analyze(ctx context.Context, req Request) (*Result, error) {
	text := strings.ToLower(req.BrandBrief)

	result := &Result{
		Mode:      ModeStandard,
		Structure: analyzeStructure(req.BrandBrief),
		Themes:    analyzeThemes(text),
		Sentiment: analyzeSentiment(text),
	}
	result.TimingScore = clamp1(float64(countAny(text, timingIndicators)) / 20)

	if req.Deep {
		result.Mode = ModeDeep
		result.KeyPhrases = extractKeyPhrases(text)
		result.Frameworks = detectFrameworks(text)
		diff := countAny(text, differentiationTerms)
		innov := countAny(text, innovationTerms)
		result.CompetitiveReadiness = clamp1(float64(diff+innov) / 20)
		result.MarketGapSignals = countAny(text, gapIndicators)
		result.GravityIndex = deepGravityIndex(req.BrandBrief, result.Themes, result.Sentiment, result.TimingScore)
	} else {
		result.GravityIndex = standardGravityIndex(req.BrandBrief, text, result.Themes)
	}
	result.GravityBreakdown = gravityBreakdown(result)

	result.Positioning = derivePositioning(text)
	result.Advantages = deriveAdvantages(text, result.Frameworks)
	result.Opportunities = deriveOpportunities()
	result.Personality = derivePersonality(text, result.Sentiment)
	result.Recommendations = deriveRecommendations(req, result)

	log.Printf("[ANALYSIS] Heuristic analysis completed: mode=%s chars=%d gravity=%.3f coherence=%.3f",
		result.Mode, result.Structure.Characters, result.GravityIndex, result.Themes.CoherenceScore)
	return result, nil
}

func analyzeStructure(text string) ContentStructure {
	sentences := 0
	for _, s := range strings.Split(text, ".") {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	paragraphs := 0
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs++
		}
	}
	words := len(strings.Fields(text))
	questions := strings.Count(text, "?")

	return ContentStructure{
		Characters:          len(text),
		Words:               words,
		Sentences:           sentences,
		Paragraphs:          paragraphs,
		Questions:           questions,
		AvgSentenceLength:   float64(words) / float64(max(1, sentences)),
		ConversationDensity: float64(questions) / float64(max(1, paragraphs)),
	}
}

func analyzeThemes(text string) ThemeAnalysis {
	scores := make(map[string]float64, len(themeKeywords))
	length := max(1, len(text))
	for theme, keywords := range themeKeywords {
		total := countAny(text, keywords)
		scores[theme] = clamp1(float64(total) / float64(length) * 10000)
	}

	var sum float64
	names := make([]string, 0, len(scores))
	for name, s := range scores {
		sum += s
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if scores[names[i]] != scores[names[j]] {
			return scores[names[i]] > scores[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > 3 {
		names = names[:3]
	}

	return ThemeAnalysis{
		Scores:         scores,
		CoherenceScore: sum / float64(len(themeKeywords)),
		DominantThemes: names,
	}
}

func analyzeSentiment(text string) SentimentAnalysis {
	s := SentimentAnalysis{
		Positive:    countAny(text, positiveIndicators),
		Negative:    countAny(text, negativeIndicators),
		Confident:   countAny(text, confidenceIndicators),
		Uncertain:   countAny(text, uncertaintyIndicators),
		EnergyLevel: countAny(text, highEnergyIndicators),
	}
	if total := s.Positive + s.Negative; total > 0 {
		s.SentimentRatio = float64(s.Positive) / float64(total)
	}
	if total := s.Confident + s.Uncertain; total > 0 {
		s.ConfidenceRatio = float64(s.Confident) / float64(total)
	}
	if s.ConfidenceRatio > 0.6 && s.EnergyLevel > 10 {
		s.OverallTone = "confident_energetic"
	} else {
		s.OverallTone = "professional"
	}
	return s
}

func extractKeyPhrases(text string) map[string]map[string]int {
	phrases := map[string]map[string]int{
		"brand_specific": {},
		"strategic":      {},
	}
	for _, phrase := range brandPhrases {
		if n := wordCount(text, phrase); n > 0 {
			phrases["brand_specific"][phrase] = n
		}
	}
	for _, phrase := range strategicConcepts {
		if n := wordCount(text, phrase); n > 0 {
			phrases["strategic"][phrase] = n
		}
	}
	return phrases
}

func detectFrameworks(text string) map[string]int {
	detected := make(map[string]int)
	for framework, keywords := range frameworkKeywords {
		if total := countAny(text, keywords); total > 0 {
			detected[framework] = total
		}
	}
	return detected
}

// standardGravityIndex weighs brief depth, theme strength, and strategic
// clarity keywords.
func standardGravityIndex(brief, lowerText string, themes ThemeAnalysis) float64 {
	base := math.Min(0.6, float64(len(brief))/20000)
	themeBonus := themes.CoherenceScore * 0.3
	clarityBonus := float64(countAny(lowerText, strategicClarityKeywords)) / 100
	return clamp1(base + themeBonus + clarityBonus)
}

// deepGravityIndex adds sentiment and market timing signals.
func deepGravityIndex(brief string, themes ThemeAnalysis, sentiment SentimentAnalysis, timing float64) float64 {
	base := math.Min(0.4, float64(len(brief))/20000)
	return clamp1(base + themes.CoherenceScore*0.3 + sentiment.SentimentRatio*0.15 + timing*0.15)
}

// gravityBreakdown maps the analysis signals onto the five gravity
// dimensions, centered on the overall index so no dimension strays far
// from the evidence.
func gravityBreakdown(r *Result) map[core.GravityType]float64 {
	themes := r.Themes.Scores
	return map[core.GravityType]float64{
		core.GravityRecognition:   clamp1(r.GravityIndex*0.7 + themes["creative_methodology"]*0.3),
		core.GravityComprehension: clamp1(r.GravityIndex*0.7 + r.Sentiment.ConfidenceRatio*0.3),
		core.GravityAttraction:    clamp1(r.GravityIndex*0.7 + themes["human_centered"]*0.3),
		core.GravityAmplification: clamp1(r.GravityIndex*0.7 + themes["market_disruption"]*0.15 + r.TimingScore*0.15),
		core.GravityTrust:         clamp1(r.GravityIndex*0.7 + r.Sentiment.SentimentRatio*0.3),
	}
}

func derivePositioning(text string) map[string]string {
	target := "Forward-thinking technology brands"
	if strings.Contains(text, "brand operator") {
		target = "Brand operators and founders"
	} else if strings.Contains(text, "emerging brands") {
		target = "Emerging and innovative brands"
	}
	return map[string]string{
		"target_audience":     target,
		"category":            "Human-centered AI brand intelligence agency",
		"category_disruption": "Human-centered alternative to traditional agencies and AI tools",
	}
}

func deriveAdvantages(text string, frameworks map[string]int) []string {
	advantages := []string{
		"Cross-disciplinary integration: Strategy + Creative + Design + Technology",
		"Human-centered AI approach: Keeping humans in the tech loop",
		"Proprietary methodology: Creative destructionism + vesica pisces",
	}
	if strings.Contains(text, "brand worlds") {
		advantages = append(advantages, "Living brand worlds: Interactive, breathing brand experiences")
	}
	if strings.Contains(text, "high-touch") {
		advantages = append(advantages, "High-touch, personalized service model")
	}
	if strings.Contains(text, "boutique") {
		advantages = append(advantages, "Boutique quality with technology scale")
	}
	if len(frameworks) > 0 {
		advantages = append(advantages,
			fmt.Sprintf("Strategic framework sophistication: %d methodologies detected", len(frameworks)))
	}
	return advantages
}

func deriveOpportunities() []string {
	return []string{
		"Market demand for human-centered AI solutions",
		"Emerging brands seeking differentiation from traditional agencies",
		"Technology integration gap in creative industry",
		"Premium positioning opportunity in commoditized market",
		"Brand world creation as new service category",
	}
}

func derivePersonality(text string, sentiment SentimentAnalysis) map[string]string {
	personality := map[string]string{
		"core_traits":         "Human, innovative, authentic",
		"communication_style": "Direct, passionate, anti-corporate",
		"brand_archetype":     "The Rebel + The Magician",
	}
	if sentiment.EnergyLevel > 10 {
		personality["energy_signature"] = "High-energy, passionate"
	}
	if strings.Contains(text, "rock star") {
		personality["aspirational_identity"] = "Technology rock stars"
	}
	return personality
}

func deriveRecommendations(req Request, r *Result) []string {
	recs := []string{
		"Lead with human-centered AI positioning to differentiate from purely technical competitors",
		"Develop case studies demonstrating brand world creation methodology",
		"Target emerging brands seeking authentic, non-corporate agency alternatives",
	}
	if len(r.Themes.DominantThemes) > 0 {
		switch r.Themes.DominantThemes[0] {
		case "human_centered":
			recs = append(recs, "Emphasize emotional intelligence and intuitive validation in client interactions")
		case "technology_integration":
			recs = append(recs, "Position as the bridge between human creativity and AI capabilities")
		}
	}
	if r.TimingScore > 0.5 {
		recs = append(recs, "Capitalize on current market timing with accelerated launch strategy")
	}
	if req.Operator.CompanyStage == "Launch Phase" {
		recs = append(recs,
			"Focus on a small set of high-value clients rather than volume",
			"Leverage founder networks for initial client acquisition",
		)
	}
	return recs
}

// countAny sums whole-word occurrences of every keyword. Expects
// lowercased text and keywords.
func countAny(text string, keywords []string) int {
	total := 0
	for _, k := range keywords {
		total += wordCount(text, k)
	}
	return total
}

// wordCount counts whole-word occurrences of phrase in text. Both must be
// lowercase. A match is bounded by non-alphanumeric runes or the text
// edges.
func wordCount(text, phrase string) int {
	if phrase == "" {
		return 0
	}
	count := 0
	for start := 0; ; {
		i := strings.Index(text[start:], phrase)
		if i < 0 {
			break
		}
		pos := start + i
		end := pos + len(phrase)
		if boundaryBefore(text, pos) && boundaryAfter(text, end) {
			count++
		}
		start = pos + 1
	}
	return count
}

func boundaryBefore(text string, pos int) bool {
	return pos == 0 || !isWordByte(text[pos-1])
}

func boundaryAfter(text string, end int) bool {
	return end >= len(text) || !isWordByte(text[end])
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func clamp1(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
