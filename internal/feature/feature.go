// Package feature derives small numeric vectors from product records and
// builds the category and brand models used as ranking priors.
//
// Feature vectors are cheap, fixed-length summaries: hashed token slots
// from the product text plus scaled numeric fields. They are far too
// coarse for ranking on their own; the scorer uses them only as a small
// confidence bonus on top of the lexical similarity blend.
package feature

import (
	"github.com/clearcart/relevance/internal/catalog"
	"github.com/clearcart/relevance/internal/textutil"
)

const (
	// TokenSlots is the number of hashed-token positions in a feature
	// vector; products with fewer tokens leave the remaining slots zero.
	TokenSlots = 20

	// NumericSlots holds price, rating, popularity, review count and
	// stock, each scaled into a comparable range.
	NumericSlots = 5

	// VectorLen is the fixed feature vector length.
	VectorLen = TokenSlots + NumericSlots
)

// Vector computes the fixed-length feature vector for a product.
//
// The first TokenSlots positions carry hashed-token features from the name
// and description (hash(token) % 100 / 100, giving [0,1) components); the
// numeric tail is [price/10000, rating/5, popularity/100, numReviews/100,
// stock/100].
func Vector(p *catalog.Product) []float64 {
	vec := make([]float64, VectorLen)

	tokens := textutil.Preprocess(p.Name + " " + p.Description)
	if len(tokens) > TokenSlots {
		tokens = tokens[:TokenSlots]
	}
	for i, tok := range tokens {
		vec[i] = float64(textutil.Hash(tok)%100) / 100
	}

	vec[TokenSlots] = p.Price / 10000
	vec[TokenSlots+1] = p.Rating / 5
	vec[TokenSlots+2] = p.Popularity / 100
	vec[TokenSlots+3] = float64(p.NumReviews) / 100
	vec[TokenSlots+4] = float64(p.Stock) / 100

	return vec
}

// Similarity computes the per-dimension feature similarity between two
// vectors: the mean of 1 - |a-b| / max(|a|, |b|, 1) across dimensions.
// Returns 0 for mismatched or empty vectors.
func Similarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += dimSimilarity(a[i], b[i])
	}
	return sum / float64(len(a))
}

func dimSimilarity(f1, f2 float64) float64 {
	diff := f1 - f2
	if diff < 0 {
		diff = -diff
	}
	denom := abs(f1)
	if abs(f2) > denom {
		denom = abs(f2)
	}
	if denom < 1 {
		denom = 1
	}
	return 1 - diff/denom
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
