// Package rank combines vector similarities and heuristic query-intent
// rules into the final ranking score.
//
// The vector models are noisy (hash-based, barely trained), so the scorer
// layers blunt rule-based boosts and penalties on top of the similarity
// blend. The rule constants encode observed ranking behavior ("iphone"
// never surfaces a TV) and live in a data table so deployments can tune
// them without code changes.
package rank

import (
	"github.com/clearcart/relevance/internal/embedding"
	"github.com/clearcart/relevance/internal/lexical"
)

// Combined-similarity blend weights.
const (
	word2vecWeight  = 0.4
	tfidfWeight     = 0.3
	embeddingWeight = 0.3
)

// Vectors is the composite vector set for one product or query.
type Vectors struct {
	Embedding []float64
	TFIDF     map[string]float64
	Word2Vec  []float64
}

// Empty reports whether no component vector is populated.
func (v *Vectors) Empty() bool {
	return v == nil || (len(v.Embedding) == 0 && len(v.TFIDF) == 0 && len(v.Word2Vec) == 0)
}

// Combined computes the blended ML similarity between two composite vector
// sets: 0.4*cosine(word2vec) + 0.3*cosine(tfidf) + 0.3*cosine(embedding).
// A component contributes only when both sides have it populated; missing
// components simply drop out rather than failing the comparison.
func Combined(a, b *Vectors) float64 {
	if a == nil || b == nil {
		return 0
	}
	var score float64
	if len(a.Word2Vec) > 0 && len(b.Word2Vec) > 0 {
		score += word2vecWeight * embedding.Cosine(a.Word2Vec, b.Word2Vec)
	}
	if len(a.TFIDF) > 0 && len(b.TFIDF) > 0 {
		score += tfidfWeight * lexical.CosineSparse(a.TFIDF, b.TFIDF)
	}
	if len(a.Embedding) > 0 && len(b.Embedding) > 0 {
		score += embeddingWeight * embedding.Cosine(a.Embedding, b.Embedding)
	}
	return score
}
