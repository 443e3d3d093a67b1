package classify

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/openfreerouter/freerouter/internal/router"
)

// EstimateTokens approximates the token count of a string as ceil(len/4).
// This is an estimate for routing and cost accounting, not metering.
func EstimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// Result is the classifier output for one request.
type Result struct {
	// Tier is the classified tier, or the ambiguous default when Classified
	// is false.
	Tier       router.Tier
	Classified bool

	Score        float64
	Confidence   float64
	AgenticScore float64
	Signals      map[string]float64

	UserTokens  int
	TotalTokens int

	Reasoning string
}

// Classifier scores prompts against a ScoringConfig. Keyword lists are
// compiled once at construction; Classify is pure and safe for concurrent
// use.
type Classifier struct {
	cfg ScoringConfig

	code, reasoning, simple, technical, creative *matcher
	imperative, constraint, outputFmt            *matcher
	reference, negation, domain, agentic         *matcher
}

var (
	structuredRe = regexp.MustCompile(`(?i)json|structured|schema`)
	multiStepRe  = regexp.MustCompile(`(?im)\bstep\s*\d|\bfirst\b[^.?!]*\bthen\b|^\s*\d+[.)]\s`)
)

// New compiles a classifier from a scoring config.
func New(cfg ScoringConfig) *Classifier {
	return &Classifier{
		cfg:        cfg,
		code:       newMatcher(cfg.Keywords.Code),
		reasoning:  newMatcher(cfg.Keywords.Reasoning),
		simple:     newMatcher(cfg.Keywords.Simple),
		technical:  newMatcher(cfg.Keywords.Technical),
		creative:   newMatcher(cfg.Keywords.Creative),
		imperative: newMatcher(cfg.Keywords.Imperative),
		constraint: newMatcher(cfg.Keywords.Constraint),
		outputFmt:  newMatcher(cfg.Keywords.OutputFormat),
		reference:  newMatcher(cfg.Keywords.Reference),
		negation:   newMatcher(cfg.Keywords.Negation),
		domain:     newMatcher(cfg.Keywords.Domain),
		agentic:    newMatcher(cfg.Keywords.Agentic),
	}
}

// Config returns the scoring config the classifier was built from.
func (c *Classifier) Config() ScoringConfig { return c.cfg }

// Classify scores the classification input (context plus final user turn)
// and maps it to a tier. The system prompt contributes only to the
// total-token guard, never to complexity.
func (c *Classifier) Classify(prompt, systemPrompt string) Result {
	userTokens := EstimateTokens(prompt)
	totalTokens := userTokens + EstimateTokens(systemPrompt)
	lower := strings.ToLower(prompt)
	w := c.cfg.Weights

	signals := map[string]float64{
		"tokenCount":          c.tokenCountSignal(userTokens),
		"codePresence":        boolSignal(strings.Contains(prompt, "```") || c.code.count(lower) > 0),
		"reasoningMarkers":    clamp1(float64(c.reasoning.count(lower)) * 0.5),
		"technicalTerms":      clamp1(float64(c.technical.count(lower)) / 3),
		"creativeMarkers":     clamp1(float64(c.creative.count(lower)) * 0.5),
		"simpleIndicators":    -clamp1(float64(c.simple.count(lower))),
		"multiStepPatterns":   clamp1(float64(len(multiStepRe.FindAllStringIndex(prompt, -1))) * 0.5),
		"questionComplexity":  questionSignal(prompt),
		"imperativeVerbs":     clamp1(float64(c.imperative.count(lower)) * 0.34),
		"constraintCount":     clamp1(float64(c.constraint.count(lower)) * 0.34),
		"outputFormat":        clamp1(float64(c.outputFmt.count(lower)) * 0.5),
		"referenceComplexity": clamp1(float64(c.reference.count(lower)) * 0.5),
		"negationComplexity":  clamp1(float64(c.negation.count(lower)) * 0.5),
		"domainSpecificity":   clamp1(float64(c.domain.count(lower)) * 0.5),
	}

	score := w.TokenCount*signals["tokenCount"] +
		w.CodePresence*signals["codePresence"] +
		w.ReasoningMarkers*signals["reasoningMarkers"] +
		w.TechnicalTerms*signals["technicalTerms"] +
		w.CreativeMarkers*signals["creativeMarkers"] +
		w.SimpleIndicators*signals["simpleIndicators"] +
		w.MultiStepPatterns*signals["multiStepPatterns"] +
		w.QuestionComplexity*signals["questionComplexity"] +
		w.ImperativeVerbs*signals["imperativeVerbs"] +
		w.ConstraintCount*signals["constraintCount"] +
		w.OutputFormat*signals["outputFormat"] +
		w.ReferenceComplexity*signals["referenceComplexity"] +
		w.NegationComplexity*signals["negationComplexity"] +
		w.DomainSpecificity*signals["domainSpecificity"]

	tier := c.tierFor(score)
	confidence := c.confidence(score)

	res := Result{
		Tier:         tier,
		Classified:   true,
		Score:        score,
		Confidence:   confidence,
		AgenticScore: clamp1(float64(c.agentic.count(lower)) * 0.35),
		Signals:      signals,
		UserTokens:   userTokens,
		TotalTokens:  totalTokens,
	}

	if confidence < c.cfg.ConfidenceThreshold {
		res.Classified = false
		res.Tier = c.cfg.AmbiguousDefaultTier
		res.Confidence = 0.5
	}

	// Huge-context guard runs on system + user tokens.
	if c.cfg.MaxTokensForceComplex > 0 && totalTokens > c.cfg.MaxTokensForceComplex {
		res.Tier = router.TierComplex
		res.Classified = true
		res.Confidence = 0.95
		res.Reasoning = fmt.Sprintf("forced COMPLEX: %d total tokens exceed %d", totalTokens, c.cfg.MaxTokensForceComplex)
		return res
	}

	// Structured-output floor checks the user-side prompt only; a system
	// prompt mentioning json must not upgrade the tier.
	if structuredRe.MatchString(prompt) && res.Tier < c.cfg.StructuredOutputMinTier {
		res.Tier = c.cfg.StructuredOutputMinTier
		res.Reasoning = fmt.Sprintf("structured output requested, raised to %s; %s", res.Tier, c.describe(res))
		return res
	}

	res.Reasoning = c.describe(res)
	return res
}

func (c *Classifier) tierFor(score float64) router.Tier {
	b := c.cfg.Boundaries
	switch {
	case score < b.SimpleMedium:
		return router.TierSimple
	case score < b.MediumComplex:
		return router.TierMedium
	case score < b.ComplexReasoning:
		return router.TierComplex
	default:
		return router.TierReasoning
	}
}

// confidence is a sigmoid of the distance from the score to the nearest tier
// boundary: exactly on a boundary yields 0.5.
func (c *Classifier) confidence(score float64) float64 {
	b := c.cfg.Boundaries
	d := math.Abs(score - b.SimpleMedium)
	for _, boundary := range []float64{b.MediumComplex, b.ComplexReasoning} {
		if dd := math.Abs(score - boundary); dd < d {
			d = dd
		}
	}
	k := c.cfg.SigmoidSteepness
	if k == 0 {
		k = 8
	}
	return 1 / (1 + math.Exp(-k*d))
}

func (c *Classifier) describe(r Result) string {
	var active []string
	for name, v := range r.Signals {
		if v != 0 {
			active = append(active, fmt.Sprintf("%s=%.2f", name, v))
		}
	}
	sort.Strings(active)
	if !r.Classified {
		return fmt.Sprintf("ambiguous score %.3f (confidence below threshold), defaulting to %s; signals: %s",
			r.Score, r.Tier, strings.Join(active, ", "))
	}
	return fmt.Sprintf("score %.3f -> %s (confidence %.2f); signals: %s",
		r.Score, r.Tier, r.Confidence, strings.Join(active, ", "))
}

func (c *Classifier) tokenCountSignal(userTokens int) float64 {
	switch {
	case userTokens <= c.cfg.SimpleTokenBand:
		return -1
	case userTokens >= c.cfg.ComplexTokenBand:
		return 1
	default:
		return 0
	}
}

// questionSignal rewards multi-clause questions. A plain single-clause
// question contributes nothing.
func questionSignal(prompt string) float64 {
	questions := strings.Count(prompt, "?") + strings.Count(prompt, "？")
	if questions == 0 {
		return 0
	}
	clauses := strings.Count(prompt, ",") + strings.Count(prompt, "，") + strings.Count(prompt, ";")
	return clamp1(float64(questions-1)*0.34 + float64(clauses)*0.2)
}

func boolSignal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clamp1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
