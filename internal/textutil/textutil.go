// Package textutil provides the shared text preprocessing and hashing
// primitives for the relevance engine.
//
// Every downstream model (embeddings, TF-IDF, word2vec, feature vectors)
// consumes the token stream produced here, so the rules are part of the
// engine contract: changing the stop-word set or the length cutoff changes
// every derived vector and therefore every ranking.
package textutil

import "strings"

// stopWords is the fixed functional-word filter applied during preprocessing.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "have": {}, "has": {}, "had": {},
	"do": {}, "does": {}, "did": {}, "will": {}, "would": {},
	"could": {}, "should": {},
}

// IsStopWord reports whether token is in the fixed stop-word set.
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}

// Preprocess tokenizes free text for indexing and query analysis.
//
// Steps: lowercase, replace every non-word/non-space rune with a space,
// split on whitespace runs, drop tokens of length <= 2 and stop-words.
// No stemming. Pure and deterministic; empty input yields no tokens.
func Preprocess(text string) []string {
	if text == "" {
		return nil
	}

	lower := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if isWordRune(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		if len(tok) <= 2 {
			continue
		}
		if IsStopWord(tok) {
			continue
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// isWordRune mirrors the \w character class: letters, digits, underscore.
func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// Hash computes the classic 31-multiplier rolling hash of s with 32-bit
// signed wraparound semantics, returning the absolute value.
//
// The arithmetic is intentionally `h = h*31 + code` on int32 (equivalent to
// the (h<<5)-h idiom) so that hashes stay compatible with embeddings
// persisted by earlier catalog builds. Runes are hashed as code points; for
// the Basic Multilingual Plane this matches UTF-16 code-unit hashing. The
// absolute value is widened through int64 so MinInt32 cannot survive
// negation.
func Hash(s string) int {
	var h int32
	for _, r := range s {
		h = h*31 + int32(r)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return int(v)
}
