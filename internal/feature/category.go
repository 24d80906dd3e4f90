package feature

import "github.com/clearcart/relevance/internal/catalog"

const (
	// maxTrainingProducts bounds the sample used to build the category
	// and brand models.
	maxTrainingProducts = 200

	// maxVectorsPerGroup bounds the training vectors kept per category
	// or brand.
	maxVectorsPerGroup = 50

	// classifySubset bounds how many of a group's training vectors are
	// compared when classifying an arbitrary vector.
	classifySubset = 10
)

// CategoryModel groups feature vectors by category label for cheap
// nearest-category scoring.
type CategoryModel struct {
	groups map[string][][]float64
}

// BuildCategoryModel groups the feature vectors of a bounded product
// sample by category. Products with an empty category are ignored.
func BuildCategoryModel(products []*catalog.Product) *CategoryModel {
	if len(products) > maxTrainingProducts {
		products = products[:maxTrainingProducts]
	}

	groups := make(map[string][][]float64)
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if len(groups[p.Category]) >= maxVectorsPerGroup {
			continue
		}
		groups[p.Category] = append(groups[p.Category], Vector(p))
	}
	return &CategoryModel{groups: groups}
}

// Categories returns the number of known categories.
func (m *CategoryModel) Categories() int {
	return len(m.groups)
}

// Score computes the classification score of a feature vector against a
// category: the mean feature similarity across a bounded subset of that
// category's training vectors. Returns 0 for unknown categories.
func (m *CategoryModel) Score(vec []float64, category string) float64 {
	training := m.groups[category]
	if len(training) == 0 {
		return 0
	}
	if len(training) > classifySubset {
		training = training[:classifySubset]
	}

	var sum float64
	for _, tv := range training {
		sum += Similarity(vec, tv)
	}
	return sum / float64(len(training))
}
