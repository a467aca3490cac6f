package textutil

import "strings"

// Roughly 0.75 words per token for English text.
const tokensPerWord = 1.33

// EstimateTokens gives a rough token count from the word count.
// Exact tokenization is not needed to bound embedding input.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	tokens := int(float64(words) * tokensPerWord)
	if tokens < 1 && len(text) > 0 {
		tokens = 1
	}
	return tokens
}

// Excerpt returns the leading words of text that fit in maxTokens estimated
// tokens, joined by single spaces. maxTokens <= 0 means no limit.
func Excerpt(text string, maxTokens int) string {
	words := strings.Fields(text)
	if maxTokens <= 0 {
		return strings.Join(words, " ")
	}
	maxWords := int(float64(maxTokens) / tokensPerWord)
	if maxWords < 1 {
		maxWords = 1
	}
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ")
}
