package rank

import (
	"sort"
	"strings"

	"github.com/clearcart/relevance/internal/catalog"
)

// Path selects the scoring magnitudes. The indexed and fallback paths use
// the same rule table with different deltas; the legacy path is the plain
// pre-rules scorer kept reachable for deployments that disable the intent
// table. The two ceilings (15.0 vs 3.0) are intentionally distinct.
type Path int

const (
	PathIndexed Path = iota
	PathFallback
	PathLegacy
)

const (
	baseScore          = 1.0
	mlSimilarityWeight = 2.0

	nameMatchIndexed  = 4.0
	nameMatchFallback = 6.0
	nameMatchLegacy   = 2.0

	categoryConfidenceWeight = 0.3
	ratingWeight             = 0.02
	popularityDivisor        = 200.0
	popularityBonusMax       = 0.1

	scoreCeiling       = 15.0
	legacyScoreCeiling = 3.0
)

// Input carries the per-candidate signals available to the scorer.
type Input struct {
	Product *catalog.Product

	// MLSimilarity is the blended vector similarity; HasSimilarity is
	// false when no similarity record exists for the candidate (e.g. on
	// the fallback path).
	MLSimilarity  float64
	HasSimilarity bool

	// CategoryConfidence is the category model's classification score
	// for the candidate; applied on the indexed path only.
	CategoryConfidence float64
}

// Scored is a product with its final ranking score.
type Scored struct {
	Product *catalog.Product
	Score   float64
}

// Scorer applies the rule table to candidates.
type Scorer struct {
	rules *RuleSet
}

// NewScorer creates a scorer with the given rule table; nil means
// DefaultRules.
func NewScorer(rules *RuleSet) *Scorer {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Scorer{rules: rules}
}

// Score computes the final ranking score for one candidate. Never panics
// and always returns a finite value; a defective candidate scores the bare
// base so it ranks last instead of aborting the pass.
func (s *Scorer) Score(query string, in Input, path Path) (score float64) {
	defer func() {
		if recover() != nil {
			score = baseScore
		}
	}()

	p := in.Product
	if p == nil {
		return baseScore
	}

	q := strings.ToLower(strings.TrimSpace(query))
	name := strings.ToLower(p.Name)
	brand := strings.ToLower(p.Brand)
	category := strings.ToLower(p.Category)

	score = baseScore

	if in.HasSimilarity {
		score += in.MLSimilarity * mlSimilarityWeight
	}

	if q != "" && strings.Contains(name, q) {
		switch path {
		case PathIndexed:
			score += nameMatchIndexed
		case PathFallback:
			score += nameMatchFallback
		case PathLegacy:
			score += nameMatchLegacy
		}
	}

	if path != PathLegacy {
		fallback := path == PathFallback
		for i := range s.rules.Rules {
			rule := &s.rules.Rules[i]
			if !rule.triggered(q) {
				continue
			}
			for j := range rule.Adjustments {
				score += rule.Adjustments[j].delta(name, brand, category, fallback)
			}
		}
	}

	if path == PathIndexed {
		score += in.CategoryConfidence * categoryConfidenceWeight
	}

	score += p.Rating * ratingWeight
	popBonus := p.Popularity / popularityDivisor
	if popBonus > popularityBonusMax {
		popBonus = popularityBonusMax
	}
	score += popBonus

	ceiling := scoreCeiling
	if path == PathLegacy {
		ceiling = legacyScoreCeiling
	}
	if score > ceiling {
		score = ceiling
	}
	return score
}

// Rank scores every candidate and returns them sorted strictly descending
// by score, ties broken by product ID for stable output.
func (s *Scorer) Rank(query string, candidates []Input, path Path) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for _, in := range candidates {
		if in.Product == nil {
			continue
		}
		scored = append(scored, Scored{
			Product: in.Product,
			Score:   s.Score(query, in, path),
		})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score == scored[j].Score {
			return scored[i].Product.ID < scored[j].Product.ID
		}
		return scored[i].Score > scored[j].Score
	})
	return scored
}
