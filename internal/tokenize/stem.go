package tokenize

import (
	"strings"
	"unicode/utf8"
)

// minStem is the shortest stem a suffix rule may leave behind.
const minStem = 3

// Stem strips common English inflections from a lowercase token:
// plurals ("foxes", "queries", "cats"), past tense ("jumped") and
// progressive ("running"). Tokens of three runes or fewer are returned as is.
func Stem(token string) string {
	if utf8.RuneCountInString(token) <= minStem {
		return token
	}
	switch {
	case strings.HasSuffix(token, "ies"):
		return strings.TrimSuffix(token, "ies") + "y"
	case strings.HasSuffix(token, "sses"):
		return strings.TrimSuffix(token, "es")
	case hasAnySuffix(token, "xes", "ches", "shes", "zes"):
		return strings.TrimSuffix(token, "es")
	case strings.HasSuffix(token, "ss"), strings.HasSuffix(token, "us"):
		return token
	case strings.HasSuffix(token, "s"):
		return strings.TrimSuffix(token, "s")
	case strings.HasSuffix(token, "ing"):
		return trimVerb(token, "ing")
	case strings.HasSuffix(token, "ed"):
		return trimVerb(token, "ed")
	}
	return token
}

func trimVerb(token, suffix string) string {
	stem := strings.TrimSuffix(token, suffix)
	if utf8.RuneCountInString(stem) < minStem {
		return token
	}
	// "stopped" -> "stopp" -> "stop"
	n := len(stem)
	if n > minStem && stem[n-1] == stem[n-2] && strings.IndexByte("bdgmnprt", stem[n-1]) >= 0 {
		return stem[:n-1]
	}
	return stem
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
