package index

import (
	"testing"

	"github.com/clearcart/relevance/internal/catalog"
)

func testProducts() []*catalog.Product {
	return []*catalog.Product{
		{ID: 1, Name: "iPhone 15 Pro", Category: "phone", Brand: "Apple", Tags: []string{"smartphone", "ios"}},
		{ID: 2, Name: "Galaxy S24", Category: "phone", Brand: "Samsung", Tags: []string{"smartphone", "android"}},
		{ID: 3, Name: "Samsung QLED TV", Category: "tv", Brand: "Samsung", Tags: []string{"television"}},
		{ID: 4, Name: "No Label", Tags: nil},
	}
}

func TestBuild(t *testing.T) {
	idx := Build(testProducts())

	if idx.Len() != 4 {
		t.Fatalf("expected 4 products, got %d", idx.Len())
	}
	if p := idx.Get(3); p == nil || p.Name != "Samsung QLED TV" {
		t.Errorf("Get(3) = %v", p)
	}
	if p := idx.Get(999); p != nil {
		t.Errorf("Get(999) should be nil, got %v", p)
	}
}

func TestCategoryAndBrandBuckets(t *testing.T) {
	idx := Build(testProducts())

	phones := idx.ByCategory("phone")
	if len(phones) != 2 || phones[0] != 1 || phones[1] != 2 {
		t.Errorf("ByCategory(phone) = %v, want [1 2]", phones)
	}

	samsung := idx.ByBrand("Samsung")
	if len(samsung) != 2 || samsung[0] != 2 || samsung[1] != 3 {
		t.Errorf("ByBrand(Samsung) = %v, want [2 3]", samsung)
	}

	// Exact match as stored: no case folding.
	if got := idx.ByBrand("samsung"); got != nil {
		t.Errorf("ByBrand should be case-sensitive, got %v", got)
	}
	if got := idx.ByCategory("missing"); got != nil {
		t.Errorf("unknown category should be nil, got %v", got)
	}
}

func TestTagBuckets(t *testing.T) {
	idx := Build(testProducts())

	smart := idx.ByTag("smartphone")
	if len(smart) != 2 {
		t.Errorf("ByTag(smartphone) = %v, want 2 ids", smart)
	}
}

func TestAllIDs(t *testing.T) {
	idx := Build(testProducts())

	all := idx.AllIDs(0)
	if len(all) != 4 {
		t.Errorf("AllIDs(0) = %v, want 4 ids", all)
	}
	capped := idx.AllIDs(2)
	if len(capped) != 2 || capped[0] != 1 || capped[1] != 2 {
		t.Errorf("AllIDs(2) = %v, want [1 2]", capped)
	}
}

func TestBuild_DuplicateIDs(t *testing.T) {
	products := testProducts()
	products = append(products, &catalog.Product{ID: 1, Name: "Duplicate", Category: "phone"})
	idx := Build(products)

	if idx.Len() != 4 {
		t.Errorf("duplicate id should be skipped, got %d products", idx.Len())
	}
	if idx.Get(1).Name != "iPhone 15 Pro" {
		t.Errorf("first record should win, got %q", idx.Get(1).Name)
	}
}
