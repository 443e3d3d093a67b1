package router

import "strings"

// ModelPrice holds per-model pricing in USD per million tokens, plus the
// advertised context window used for chain filtering.
type ModelPrice struct {
	InputPerM     float64 `json:"input_per_m"`
	OutputPerM    float64 `json:"output_per_m"`
	ContextWindow int     `json:"context_window,omitempty"`
}

// Opus-class pricing is the cost baseline for the savings metric. Used when
// the catalog has no entry for the baseline model.
const (
	BaselineInputPerM  = 15.0
	BaselineOutputPerM = 75.0
)

// Catalog maps full model ids ("provider/model") to prices. Lookups fall back
// to a suffix match on the bare model name so catalog entries survive
// provider renames in config.
type Catalog map[string]ModelPrice

// DefaultCatalog covers the models the default tier tables reference.
func DefaultCatalog() Catalog {
	return Catalog{
		"anthropic/claude-haiku-4-5":  {InputPerM: 1, OutputPerM: 5, ContextWindow: 200000},
		"anthropic/claude-sonnet-4-5": {InputPerM: 3, OutputPerM: 15, ContextWindow: 200000},
		"anthropic/claude-opus-4-6":   {InputPerM: 15, OutputPerM: 75, ContextWindow: 200000},
		"openai/gpt-4o-mini":          {InputPerM: 0.15, OutputPerM: 0.6, ContextWindow: 128000},
		"openai/gpt-4o":               {InputPerM: 2.5, OutputPerM: 10, ContextWindow: 128000},
	}
}

// Lookup finds the price for a model id, trying the exact id first and then
// the bare model name without the provider prefix.
func (c Catalog) Lookup(modelID string) (ModelPrice, bool) {
	if p, ok := c[modelID]; ok {
		return p, true
	}
	_, bare := SplitModelID(modelID)
	for id, p := range c {
		_, b := SplitModelID(id)
		if b == bare {
			return p, true
		}
	}
	return ModelPrice{}, false
}

// SplitModelID separates "provider/model" into its parts. A bare model name
// defaults to the anthropic provider.
func SplitModelID(modelID string) (provider, model string) {
	if i := strings.Index(modelID, "/"); i >= 0 {
		return modelID[:i], modelID[i+1:]
	}
	return "anthropic", modelID
}

// EstimateCost computes the dollar cost of a request against a model:
// inputTokens at the input rate plus maxOutputTokens at the output rate.
func (c Catalog) EstimateCost(modelID string, inputTokens, maxOutputTokens int) float64 {
	p, ok := c.Lookup(modelID)
	if !ok {
		return 0
	}
	return float64(inputTokens)*p.InputPerM/1e6 + float64(maxOutputTokens)*p.OutputPerM/1e6
}

// BaselineCost computes what the same request would cost on the Opus-class
// baseline model.
func (c Catalog) BaselineCost(baselineModel string, inputTokens, maxOutputTokens int) float64 {
	in, out := BaselineInputPerM, BaselineOutputPerM
	if p, ok := c.Lookup(baselineModel); ok {
		in, out = p.InputPerM, p.OutputPerM
	}
	return float64(inputTokens)*in/1e6 + float64(maxOutputTokens)*out/1e6
}

// Savings returns the fraction of the baseline cost avoided, clamped to
// [0, 1].
func Savings(baseline, estimate float64) float64 {
	if baseline <= 0 {
		return 0
	}
	s := (baseline - estimate) / baseline
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
