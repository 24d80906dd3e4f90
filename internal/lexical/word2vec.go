package lexical

import (
	"math"
	"math/rand"

	"github.com/clearcart/relevance/internal/textutil"
)

// Word2vec training bounds. The model is deliberately tiny: it exists to
// give the scorer a dense co-occurrence signal, not to be a real skip-gram
// implementation.
const (
	Word2VecDims       = 50
	MaxWord2VecDocs    = 100
	MaxTokensPerDoc    = 20
	word2vecEpochs     = 10
	word2vecWindow     = 2
	word2vecLearnRate  = 0.01
	word2vecInitScale  = 0.05
	word2vecRandomSeed = 42
)

// Word2Vec holds dense per-word vectors learned from token co-occurrence.
type Word2Vec struct {
	vectors map[string][]float64
}

// TrainWord2Vec builds word vectors from a bounded document sample.
//
// Vocabulary vectors are randomly initialized in [-0.05, 0.05] from a fixed
// seed, then for a fixed number of epochs each token drifts toward its
// following context tokens (up to word2vecWindow ahead):
//
//	target[i] += learningRate * (context[i] - target[i])
//
// This is a direct averaging update, not skip-gram loss minimization; the
// simplification is intentional and its output feeds the ranking blend
// as-is.
func TrainWord2Vec(docs []string) *Word2Vec {
	if len(docs) > MaxWord2VecDocs {
		docs = docs[:MaxWord2VecDocs]
	}

	rng := rand.New(rand.NewSource(word2vecRandomSeed))

	// Tokenize once, bounding tokens per document.
	tokenized := make([][]string, 0, len(docs))
	for _, doc := range docs {
		tokens := textutil.Preprocess(doc)
		if len(tokens) > MaxTokensPerDoc {
			tokens = tokens[:MaxTokensPerDoc]
		}
		tokenized = append(tokenized, tokens)
	}

	vectors := make(map[string][]float64)
	for _, tokens := range tokenized {
		for _, tok := range tokens {
			if _, ok := vectors[tok]; ok {
				continue
			}
			vec := make([]float64, Word2VecDims)
			for i := range vec {
				vec[i] = (rng.Float64()*2 - 1) * word2vecInitScale
			}
			vectors[tok] = vec
		}
	}

	for epoch := 0; epoch < word2vecEpochs; epoch++ {
		for _, tokens := range tokenized {
			for i, tok := range tokens {
				target := vectors[tok]
				for off := 1; off <= word2vecWindow; off++ {
					j := i + off
					if j >= len(tokens) {
						break
					}
					context := vectors[tokens[j]]
					for d := 0; d < Word2VecDims; d++ {
						target[d] += word2vecLearnRate * (context[d] - target[d])
					}
				}
			}
		}
	}

	return &Word2Vec{vectors: vectors}
}

// VocabSize returns the number of words with trained vectors.
func (m *Word2Vec) VocabSize() int {
	return len(m.vectors)
}

// DocVector returns the mean of the known token vectors for text,
// L2-normalized. Returns nil when no token is in the vocabulary.
func (m *Word2Vec) DocVector(text string) []float64 {
	tokens := textutil.Preprocess(text)
	if len(tokens) == 0 {
		return nil
	}

	sum := make([]float64, Word2VecDims)
	known := 0
	for _, tok := range tokens {
		vec, ok := m.vectors[tok]
		if !ok {
			continue
		}
		known++
		for d, v := range vec {
			sum[d] += v
		}
	}
	if known == 0 {
		return nil
	}

	var norm float64
	for d := range sum {
		sum[d] /= float64(known)
		norm += sum[d] * sum[d]
	}
	mag := math.Sqrt(norm)
	if mag == 0 {
		return sum
	}
	for d := range sum {
		sum[d] /= mag
	}
	return sum
}
