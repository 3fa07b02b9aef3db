package tokenize

import (
	"strings"
	"unicode"
)

// minTokenLen is the minimum length of a surviving token.
const minTokenLen = 2

// stopwords contains general English stopwords plus conversational filler
// common in chat transcripts.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "was": true,
	"are": true, "be": true, "been": true, "being": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "can": true, "this": true,
	"that": true, "these": true, "those": true, "it": true, "its": true, "we": true,
	"they": true, "them": true, "you": true, "your": true, "me": true, "my": true,
	"he": true, "she": true, "his": true, "her": true, "us": true, "our": true,
	"what": true, "which": true, "who": true, "when": true, "where": true,
	"why": true, "how": true, "not": true, "no": true, "yes": true, "if": true,
	"then": true, "than": true, "so": true, "just": true, "about": true,
	"into": true, "out": true, "up": true, "down": true, "also": true,
	"there": true, "here": true, "all": true, "any": true, "some": true,
	"more": true, "most": true, "other": true, "such": true, "only": true,
	"very": true, "too": true, "now": true,
	// Conversational filler.
	"ok": true, "okay": true, "yeah": true, "yep": true, "nope": true,
	"hmm": true, "umm": true, "hey": true, "hi": true, "hello": true,
	"thanks": true, "thank": true, "please": true, "sure": true,
	"lol": true, "haha": true, "btw": true, "gonna": true, "wanna": true,
	"actually": true, "basically": true, "really": true, "maybe": true,
	"right": true, "well": true, "anyway": true, "thing": true, "things": true,
	"know": true, "think": true, "let": true, "lets": true, "going": true,
}

// Tokenize splits text into normalized index terms.
//
// The pipeline: split on non-alphanumeric runes, then split each chunk at
// camelCase/PascalCase boundaries, lowercase, and filter. Filtered out are
// tokens shorter than two characters, purely numeric tokens, version-style
// tokens (a single letter followed by digits, e.g. "v2"), and stopwords.
//
// Tokenize is a pure function: identical input always yields identical
// output. It is idempotent on its own output, with one documented caveat:
// tokens that were produced by camelCase splitting re-split identically only
// because output is already lowercase.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	chunks := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		for _, word := range splitCase(chunk) {
			word = strings.ToLower(word)
			if keep(word) {
				tokens = append(tokens, word)
			}
		}
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// keep reports whether a lowercased token survives filtering.
func keep(token string) bool {
	if len(token) < minTokenLen {
		return false
	}
	if stopwords[token] {
		return false
	}
	if isNumeric(token) {
		return false
	}
	if isVersionToken(token) {
		return false
	}
	return true
}

// isNumeric reports whether the token consists only of digits.
func isNumeric(token string) bool {
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(token) > 0
}

// isVersionToken reports whether the token is a single letter followed by
// digits ("v2", "x64"). These carry no retrieval signal in transcripts.
func isVersionToken(token string) bool {
	if len(token) < 2 {
		return false
	}
	runes := []rune(token)
	if !unicode.IsLetter(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// splitCase splits a chunk at camelCase and PascalCase boundaries.
// An uppercase run followed by a lowercase letter keeps its last rune with
// the lowercase word ("HTTPServer" -> "HTTP", "Server" -> "http", "server").
// Digits do not split: "sha256" and "utf8" stay whole.
func splitCase(chunk string) []string {
	runes := []rune(chunk)
	if len(runes) == 0 {
		return nil
	}

	var words []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, curr := runes[i-1], runes[i]

		boundary := false
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(curr):
			boundary = true
		case unicode.IsUpper(prev) && unicode.IsUpper(curr) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			boundary = true
		}

		if boundary {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	words = append(words, string(runes[start:]))
	return words
}
