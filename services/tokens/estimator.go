// Package tokens provides deterministic heuristic token usage estimation.
package tokens

// Usage holds the token counts attributed to one agent call
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// DefaultCharsPerToken is the character-to-token ratio used when no
// divisor is configured. Roughly four characters per token for English
// prose; the exact value is platform policy, not a tokenizer.
const DefaultCharsPerToken = 4

// Estimator maps text to an estimated token count using a fixed
// characters-per-token divisor. Pure and deterministic: identical input
// always yields identical output.
type Estimator struct {
	charsPerToken int
}

// NewEstimator creates an estimator with the given divisor.
// Divisors below 1 fall back to DefaultCharsPerToken.
func NewEstimator(charsPerToken int) *Estimator {
	if charsPerToken < 1 {
		charsPerToken = DefaultCharsPerToken
	}
	return &Estimator{charsPerToken: charsPerToken}
}

// EstimateText estimates the token count of a single text as
// ceil(len(text) / charsPerToken)
func (e *Estimator) EstimateText(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + e.charsPerToken - 1) / e.charsPerToken
}

// Estimate estimates prompt and completion token counts for one call.
// TotalTokens is always the sum of the two components.
func (e *Estimator) Estimate(promptText, responseText string) Usage {
	prompt := e.EstimateText(promptText)
	completion := e.EstimateText(responseText)
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}
