package chunker

import "strings"

// EstimateTokens gives a rough token count for English text at ~1.33 tokens
// per word. Exact tokenization is not required for chunk sizing.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		if text == "" {
			return 0
		}
		return 1
	}
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
