// Package lexical builds the corpus-derived text models: a TF-IDF table and
// a small pseudo-word2vec model. Both are trained once over a bounded sample
// of the catalog at engine initialization and are immutable afterwards; a
// catalog change requires a full rebuild.
package lexical

import (
	"math"

	"github.com/clearcart/relevance/internal/textutil"
)

// MaxTFIDFDocs caps the corpus sample used to derive the vocabulary and IDF
// table. Catalogs larger than this contribute nothing past the cap.
const MaxTFIDFDocs = 200

// TFIDF is a frozen vocabulary + IDF table built from a document sample.
type TFIDF struct {
	idf       map[string]float64
	totalDocs int
}

// BuildTFIDF derives the vocabulary and IDF table from docs. At most
// MaxTFIDFDocs documents are considered; the rest are ignored.
//
// IDF per term = ln(totalDocs / (docFreq + 1)).
func BuildTFIDF(docs []string) *TFIDF {
	if len(docs) > MaxTFIDFDocs {
		docs = docs[:MaxTFIDFDocs]
	}

	docFreq := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, tok := range textutil.Preprocess(doc) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			docFreq[tok]++
		}
	}

	total := len(docs)
	idf := make(map[string]float64, len(docFreq))
	for term, df := range docFreq {
		idf[term] = math.Log(float64(total) / float64(df+1))
	}

	return &TFIDF{idf: idf, totalDocs: total}
}

// VocabSize returns the number of terms in the frozen vocabulary.
func (m *TFIDF) VocabSize() int {
	return len(m.idf)
}

// Vector computes the sparse TF-IDF vector for text against the frozen
// vocabulary. Terms outside the vocabulary carry no weight. Weight per term
// is (termFreq / maxTermFreq) * idf(term). Queries use the same path,
// treated as a one-document corpus evaluated against the stored table.
func (m *TFIDF) Vector(text string) map[string]float64 {
	tokens := textutil.Preprocess(text)
	if len(tokens) == 0 {
		return nil
	}

	counts := make(map[string]int)
	maxFreq := 0
	for _, tok := range tokens {
		counts[tok]++
		if counts[tok] > maxFreq {
			maxFreq = counts[tok]
		}
	}

	vec := make(map[string]float64)
	for term, count := range counts {
		idf, ok := m.idf[term]
		if !ok {
			continue
		}
		vec[term] = (float64(count) / float64(maxFreq)) * idf
	}
	if len(vec) == 0 {
		return nil
	}
	return vec
}

// CosineSparse computes cosine similarity between two sparse vectors.
// Returns 0 when either side is empty or has zero magnitude.
func CosineSparse(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// Iterate the smaller map for the dot product.
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for term, av := range a {
		if bv, ok := b[term]; ok {
			dot += av * bv
		}
	}
	var normA, normB float64
	for _, v := range a {
		normA += v * v
	}
	for _, v := range b {
		normB += v * v
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
