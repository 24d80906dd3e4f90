// Package embedding generates deterministic pseudo-embedding vectors from
// product and query text.
//
// This is not a trained model. Each token contributes fixed bumps to a
// 1536-dimension vector: curated catalog keywords hit 3 anchor positions,
// and every token additionally spreads 15 hash-derived positions. The
// result approximates topical similarity well enough for candidate
// ranking once blended with the lexical models, and is bit-identical
// across processes, which lets vectors be persisted alongside products.
package embedding

import (
	"math"

	"github.com/clearcart/relevance/internal/textutil"
)

// Dimensions is the fixed pseudo-embedding width.
const Dimensions = 1536

const (
	anchorBump   = 0.3
	anchorSpread = 3
	hashBump     = 0.15
	hashSpread   = 15
)

// Generate produces the unit-normalized pseudo-embedding for text.
//
// Accumulation is modulo 1: a position that would exceed 1.0 wraps back
// toward 0. Clamping instead of wrapping changes ranking outcomes for
// keyword-dense texts, so the wrap must stay. Empty or
// fully-filtered input yields the zero vector. Generate never panics; a
// failure while processing a token skips that token.
func Generate(text string) []float64 {
	vec := make([]float64, Dimensions)

	tokens := textutil.Preprocess(text)
	for _, tok := range tokens {
		addToken(vec, tok)
	}

	return normalize(vec)
}

// addToken applies one token's contributions, recovering from any panic so
// a single bad token cannot poison the whole vector.
func addToken(vec []float64, tok string) {
	defer func() {
		_ = recover()
	}()

	if anchor, ok := semanticAnchors[tok]; ok {
		for i := 0; i < anchorSpread; i++ {
			idx := (anchor + i) % Dimensions
			vec[idx] = math.Mod(vec[idx]+anchorBump, 1.0)
		}
	}

	// Hash spread applies to every token, semantic or not.
	h := textutil.Hash(tok)
	for i := 0; i < hashSpread; i++ {
		idx := (h + i) % Dimensions
		vec[idx] = math.Mod(vec[idx]+hashBump, 1.0)
	}
}

// normalize scales vec to unit length. If the magnitude is zero or
// non-finite the vector is returned unchanged.
func normalize(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	mag := math.Sqrt(sum)
	if mag == 0 || math.IsInf(mag, 0) || math.IsNaN(mag) {
		return vec
	}
	for i := range vec {
		vec[i] /= mag
	}
	return vec
}

// Cosine computes cosine similarity between two vectors. Returns 0 when
// either vector is nil, empty, of mismatched length, or zero magnitude, so
// callers never see NaN.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
