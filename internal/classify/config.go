package classify

import "github.com/openfreerouter/freerouter/internal/router"

// Weights are the per-dimension multipliers applied to dimension signals.
// They sum to 1.0 in the default config; operators may override any subset.
type Weights struct {
	TokenCount          float64 `json:"tokenCount"`
	CodePresence        float64 `json:"codePresence"`
	ReasoningMarkers    float64 `json:"reasoningMarkers"`
	TechnicalTerms      float64 `json:"technicalTerms"`
	CreativeMarkers     float64 `json:"creativeMarkers"`
	SimpleIndicators    float64 `json:"simpleIndicators"`
	MultiStepPatterns   float64 `json:"multiStepPatterns"`
	QuestionComplexity  float64 `json:"questionComplexity"`
	ImperativeVerbs     float64 `json:"imperativeVerbs"`
	ConstraintCount     float64 `json:"constraintCount"`
	OutputFormat        float64 `json:"outputFormat"`
	ReferenceComplexity float64 `json:"referenceComplexity"`
	NegationComplexity  float64 `json:"negationComplexity"`
	DomainSpecificity   float64 `json:"domainSpecificity"`
}

// Boundaries are the three thresholds separating the four tiers on the
// weighted score axis.
type Boundaries struct {
	SimpleMedium     float64 `json:"simpleMedium"`
	MediumComplex    float64 `json:"mediumComplex"`
	ComplexReasoning float64 `json:"complexReasoning"`
}

// KeywordSets are the multilingual keyword lists backing the dimension
// signals. Lists cover English, Chinese, Japanese, Russian and German.
type KeywordSets struct {
	Code         []string `json:"code,omitempty"`
	Reasoning    []string `json:"reasoning,omitempty"`
	Simple       []string `json:"simple,omitempty"`
	Technical    []string `json:"technical,omitempty"`
	Creative     []string `json:"creative,omitempty"`
	Imperative   []string `json:"imperative,omitempty"`
	Constraint   []string `json:"constraint,omitempty"`
	OutputFormat []string `json:"outputFormat,omitempty"`
	Reference    []string `json:"reference,omitempty"`
	Negation     []string `json:"negation,omitempty"`
	Domain       []string `json:"domain,omitempty"`
	Agentic      []string `json:"agentic,omitempty"`
}

// ScoringConfig is the full classifier configuration. It is a value record:
// reload builds a fresh Classifier from a fresh config.
type ScoringConfig struct {
	Weights    Weights    `json:"weights"`
	Boundaries Boundaries `json:"boundaries"`

	// Confidence sigmoid over distance-to-nearest-boundary.
	SigmoidSteepness    float64 `json:"sigmoidSteepness"`
	ConfidenceThreshold float64 `json:"confidenceThreshold"`

	// Tier used when confidence falls below the threshold.
	AmbiguousDefaultTier router.Tier `json:"ambiguousDefaultTier"`

	// Token-count bands for the tokenCount dimension (user prompt only).
	SimpleTokenBand  int `json:"simpleTokenBand"`
	ComplexTokenBand int `json:"complexTokenBand"`

	// Post-score overrides.
	MaxTokensForceComplex   int         `json:"maxTokensForceComplex"`
	StructuredOutputMinTier router.Tier `json:"structuredOutputMinTier"`

	// Agentic table switch threshold on the agentic score.
	AgenticThreshold float64 `json:"agenticThreshold"`

	Keywords KeywordSets `json:"keywords"`
}

// DefaultScoringConfig returns the built-in scoring configuration.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Weights: Weights{
			TokenCount:          0.08,
			CodePresence:        0.12,
			ReasoningMarkers:    0.16,
			TechnicalTerms:      0.09,
			CreativeMarkers:     0.04,
			SimpleIndicators:    0.14,
			MultiStepPatterns:   0.08,
			QuestionComplexity:  0.05,
			ImperativeVerbs:     0.04,
			ConstraintCount:     0.05,
			OutputFormat:        0.04,
			ReferenceComplexity: 0.03,
			NegationComplexity:  0.03,
			DomainSpecificity:   0.05,
		},
		Boundaries: Boundaries{
			SimpleMedium:     0.0,
			MediumComplex:    0.03,
			ComplexReasoning: 0.15,
		},
		SigmoidSteepness:        8,
		ConfidenceThreshold:     0.50,
		AmbiguousDefaultTier:    router.TierMedium,
		SimpleTokenBand:         5,
		ComplexTokenBand:        40,
		MaxTokensForceComplex:   100000,
		StructuredOutputMinTier: router.TierMedium,
		AgenticThreshold:        0.69,
		Keywords:                defaultKeywords(),
	}
}
