// Package index builds the in-memory catalog lookup tables used for
// candidate selection: by-id, by-category, by-brand and by-tag. Lookups
// replace full-catalog scans with O(1)/O(k) retrieval.
//
// An Index is built wholesale at engine initialization and never mutated;
// catalog changes require a rebuild.
package index

import "github.com/clearcart/relevance/internal/catalog"

// Index holds the catalog lookup tables.
type Index struct {
	byID       map[int64]*catalog.Product
	byCategory map[string][]int64
	byBrand    map[string][]int64
	byTag      map[string][]int64
	ids        []int64 // all ids in insertion order
}

// Build constructs the lookup tables from a product set. IDs within each
// category/brand/tag bucket preserve the input ordering.
func Build(products []*catalog.Product) *Index {
	idx := &Index{
		byID:       make(map[int64]*catalog.Product, len(products)),
		byCategory: make(map[string][]int64),
		byBrand:    make(map[string][]int64),
		byTag:      make(map[string][]int64),
		ids:        make([]int64, 0, len(products)),
	}

	for _, p := range products {
		if _, ok := idx.byID[p.ID]; ok {
			continue
		}
		idx.byID[p.ID] = p
		idx.ids = append(idx.ids, p.ID)

		if p.Category != "" {
			idx.byCategory[p.Category] = append(idx.byCategory[p.Category], p.ID)
		}
		if p.Brand != "" {
			idx.byBrand[p.Brand] = append(idx.byBrand[p.Brand], p.ID)
		}
		for _, tag := range p.Tags {
			idx.byTag[tag] = append(idx.byTag[tag], p.ID)
		}
	}
	return idx
}

// Len returns the number of indexed products.
func (idx *Index) Len() int {
	return len(idx.ids)
}

// Get returns the indexed product record for id, or nil.
func (idx *Index) Get(id int64) *catalog.Product {
	return idx.byID[id]
}

// ByCategory returns the ids in a category, matched exactly as stored.
func (idx *Index) ByCategory(category string) []int64 {
	return idx.byCategory[category]
}

// ByBrand returns the ids for a brand, matched exactly as stored.
func (idx *Index) ByBrand(brand string) []int64 {
	return idx.byBrand[brand]
}

// ByTag returns the ids carrying a tag.
func (idx *Index) ByTag(tag string) []int64 {
	return idx.byTag[tag]
}

// AllIDs returns up to max product ids in insertion order; max <= 0 means
// all.
func (idx *Index) AllIDs(max int) []int64 {
	if max <= 0 || max >= len(idx.ids) {
		return idx.ids
	}
	return idx.ids[:max]
}
