package tokenize

import (
	"strings"
	"unicode"
)

// DefaultMaxTokens matches the sequence length of common MiniLM sentence models.
const DefaultMaxTokens = 256

// Words splits text into lowercase word tokens. Tokens are runs of letters
// or digits, further split at camel-case boundaries, so "parseHTTPResponse"
// yields "parse", "http" and "response".
func Words(text string) []string {
	var words []string
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		for _, w := range splitCamel(field) {
			words = append(words, strings.ToLower(w))
		}
	}
	return words
}

// Terms returns the stemmed words of text with stop words removed.
func Terms(text string) []string {
	words := Words(text)
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if IsStopWord(w) {
			continue
		}
		terms = append(terms, Stem(w))
	}
	return terms
}

func splitCamel(s string) []string {
	runes := []rune(s)
	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		if !unicode.IsUpper(runes[i]) {
			continue
		}
		prev := runes[i-1]
		// "camelCase" splits before C; "HTTPServer" splits before S
		if unicode.IsLower(prev) || unicode.IsDigit(prev) ||
			(unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])) {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	return append(parts, string(runes[start:]))
}

// Truncate keeps at most maxTokens leading tokens. A non-positive maxTokens
// falls back to DefaultMaxTokens.
func Truncate(tokens []string, maxTokens int) []string {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if len(tokens) <= maxTokens {
		return tokens
	}
	return tokens[:maxTokens]
}

// Trigrams returns the character trigrams of a token padded with boundary
// markers, so "go" yields "<go" and "go>".
func Trigrams(token string) []string {
	runes := []rune("<" + token + ">")
	if len(runes) < 3 {
		return nil
	}
	grams := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+3]))
	}
	return grams
}
