package feature

import (
	"sort"

	"github.com/clearcart/relevance/internal/catalog"
)

// Brand relatedness blend weights.
const (
	brandCategoryWeight = 0.4
	brandPriceWeight    = 0.3
	brandFeatureWeight  = 0.3
)

type brandProfile struct {
	categories map[string]struct{}
	avgPrice   float64
	meanVector []float64
}

// BrandModel holds per-brand profiles derived from a bounded sample and
// scores brand-to-brand relatedness.
type BrandModel struct {
	profiles map[string]*brandProfile
}

// BuildBrandModel derives brand profiles (category set, average price,
// mean feature vector) from a bounded product sample. Products with an
// empty brand are ignored.
func BuildBrandModel(products []*catalog.Product) *BrandModel {
	if len(products) > maxTrainingProducts {
		products = products[:maxTrainingProducts]
	}

	type accum struct {
		categories map[string]struct{}
		priceSum   float64
		vectorSum  []float64
		count      int
	}

	accums := make(map[string]*accum)
	for _, p := range products {
		if p.Brand == "" {
			continue
		}
		a, ok := accums[p.Brand]
		if !ok {
			a = &accum{
				categories: make(map[string]struct{}),
				vectorSum:  make([]float64, VectorLen),
			}
			accums[p.Brand] = a
		}
		if a.count >= maxVectorsPerGroup {
			continue
		}
		if p.Category != "" {
			a.categories[p.Category] = struct{}{}
		}
		a.priceSum += p.Price
		for i, v := range Vector(p) {
			a.vectorSum[i] += v
		}
		a.count++
	}

	profiles := make(map[string]*brandProfile, len(accums))
	for brand, a := range accums {
		if a.count == 0 {
			continue
		}
		mean := make([]float64, VectorLen)
		for i, v := range a.vectorSum {
			mean[i] = v / float64(a.count)
		}
		profiles[brand] = &brandProfile{
			categories: a.categories,
			avgPrice:   a.priceSum / float64(a.count),
			meanVector: mean,
		}
	}
	return &BrandModel{profiles: profiles}
}

// Brands returns the number of known brands.
func (m *BrandModel) Brands() int {
	return len(m.profiles)
}

// Names returns the known brand names in sorted order.
func (m *BrandModel) Names() []string {
	names := make([]string, 0, len(m.profiles))
	for brand := range m.profiles {
		names = append(names, brand)
	}
	sort.Strings(names)
	return names
}

// Relatedness scores how related two brands are in [0, 1]:
// 0.4 * shared-category ratio + 0.3 * average-price proximity +
// 0.3 * mean feature-vector similarity. Unknown brands score 0.
func (m *BrandModel) Relatedness(brandA, brandB string) float64 {
	a, okA := m.profiles[brandA]
	b, okB := m.profiles[brandB]
	if !okA || !okB {
		return 0
	}

	shared := 0
	union := len(b.categories)
	for cat := range a.categories {
		if _, ok := b.categories[cat]; ok {
			shared++
		} else {
			union++
		}
	}
	categoryScore := 0.0
	if union > 0 {
		categoryScore = float64(shared) / float64(union)
	}

	maxPrice := a.avgPrice
	if b.avgPrice > maxPrice {
		maxPrice = b.avgPrice
	}
	if maxPrice < 1 {
		maxPrice = 1
	}
	diff := a.avgPrice - b.avgPrice
	if diff < 0 {
		diff = -diff
	}
	priceScore := 1 - diff/maxPrice

	featureScore := Similarity(a.meanVector, b.meanVector)

	return brandCategoryWeight*categoryScore +
		brandPriceWeight*priceScore +
		brandFeatureWeight*featureScore
}
