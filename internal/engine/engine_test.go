package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clearcart/relevance/internal/catalog"
)

// fakeRepo is an in-memory Repository that counts calls and can be told
// to fail, so tests can assert fetch behavior and degraded paths.
type fakeRepo struct {
	mu         sync.Mutex
	products   []*catalog.Product
	embeddings map[int64][]float64

	findAllCalls    int
	findByIDsCalls  int
	textFilterCalls int

	findAllDelay time.Duration
	failFindAll  bool
	failText     bool

	// broadText makes the text filter return the whole catalog, the way
	// a very permissive LIKE query would on a tiny catalog.
	broadText bool
}

func newFakeRepo(products []*catalog.Product) *fakeRepo {
	return &fakeRepo{products: products, embeddings: make(map[int64][]float64)}
}

func (r *fakeRepo) setFailFindAll(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failFindAll = fail
}

func (r *fakeRepo) calls() (findAll, findByIDs, textFilter int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findAllCalls, r.findByIDsCalls, r.textFilterCalls
}

func (r *fakeRepo) FindAll(ctx context.Context, fields catalog.Projection) ([]*catalog.Product, error) {
	r.mu.Lock()
	r.findAllCalls++
	fail := r.failFindAll
	delay := r.findAllDelay
	r.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		return nil, errors.New("catalog unavailable")
	}
	return r.products, nil
}

func (r *fakeRepo) FindByIDs(ctx context.Context, ids []int64, fields catalog.Projection) ([]*catalog.Product, error) {
	r.mu.Lock()
	r.findByIDsCalls++
	r.mu.Unlock()

	byID := make(map[int64]*catalog.Product, len(r.products))
	for _, p := range r.products {
		byID[p.ID] = p
	}
	var out []*catalog.Product
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeRepo) FindByTextFilter(ctx context.Context, filter catalog.TextFilter, limit int) ([]*catalog.Product, error) {
	r.mu.Lock()
	r.textFilterCalls++
	fail := r.failText
	broad := r.broadText
	r.mu.Unlock()

	if fail {
		return nil, errors.New("catalog unavailable")
	}

	var out []*catalog.Product
	for _, p := range r.products {
		if !broad && !fakeMatches(p, filter) {
			continue
		}
		out = append(out, p)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func fakeMatches(p *catalog.Product, filter catalog.TextFilter) bool {
	if filter.Category != "" && p.Category != filter.Category {
		return false
	}
	if filter.Brand != "" && p.Brand != filter.Brand {
		return false
	}
	haystack := strings.ToLower(p.Name + " " + p.Description + " " + p.Brand + " " + p.Category)
	if filter.Query != "" && strings.Contains(haystack, strings.ToLower(filter.Query)) {
		return true
	}
	for _, term := range filter.Terms {
		if strings.Contains(haystack, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

func (r *fakeRepo) UpsertEmbedding(ctx context.Context, productID int64, vector []float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeddings[productID] = vector
	return nil
}

func (r *fakeRepo) GetEmbedding(ctx context.Context, productID int64) ([]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.embeddings[productID], nil
}

func (r *fakeRepo) Stats(ctx context.Context) (*catalog.Stats, error) {
	return &catalog.Stats{ProductCount: int64(len(r.products))}, nil
}

func (r *fakeRepo) Close() error { return nil }

func seedProducts() []*catalog.Product {
	return []*catalog.Product{
		{
			ID: 1, Name: "iPhone 15 Pro", Brand: "Apple", Category: "phone",
			Description: "apple iphone smartphone with pro camera and titanium frame",
			Price:       999, Rating: 4.8, Popularity: 95, NumReviews: 1200, Stock: 25,
			Tags: []string{"smartphone", "apple"},
		},
		{
			ID: 2, Name: "Samsung Galaxy S24", Brand: "Samsung", Category: "phone",
			Description: "samsung galaxy smartphone android flagship camera",
			Price:       899, Rating: 4.6, Popularity: 85, NumReviews: 900, Stock: 30,
			Tags: []string{"smartphone", "android"},
		},
		{
			ID: 3, Name: "Samsung QLED TV", Brand: "Samsung", Category: "tv",
			Description: "samsung qled television large screen display",
			Price:       1299, Rating: 4.5, Popularity: 70, NumReviews: 400, Stock: 12,
			Tags: []string{"television"},
		},
		{
			ID: 4, Name: "LG OLED TV 55", Brand: "LG", Category: "tv",
			Description: "lg oled television cinema screen display",
			Price:       1499, Rating: 4.7, Popularity: 60, NumReviews: 350, Stock: 8,
			Tags: []string{"television"},
		},
		{
			ID: 5, Name: "Sony WH-1000XM5", Brand: "Sony", Category: "audio",
			Description: "sony wireless noise cancelling headphones",
			Price:       399, Rating: 4.7, Popularity: 80, NumReviews: 700, Stock: 40,
			Tags: []string{"headphones", "wireless"},
		},
	}
}

func TestInitializeSingleFlight(t *testing.T) {
	repo := newFakeRepo(seedProducts())
	repo.findAllDelay = 30 * time.Millisecond
	eng := New(Config{Repository: repo})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := eng.Initialize(context.Background()); err != nil {
				t.Errorf("Initialize: %v", err)
			}
		}()
	}
	wg.Wait()

	findAll, _, _ := repo.calls()
	if findAll != 1 {
		t.Errorf("bulk fetch calls = %d, want exactly 1 for concurrent initialization", findAll)
	}
	if eng.State() != StateReady {
		t.Errorf("state = %v, want ready", eng.State())
	}
}

func TestInitializeRecoversAfterFailure(t *testing.T) {
	repo := newFakeRepo(seedProducts())
	repo.setFailFindAll(true)
	eng := New(Config{Repository: repo})

	if err := eng.Initialize(context.Background()); err == nil {
		t.Fatal("expected initialization failure")
	}
	if eng.State() != StateUninitialized {
		t.Errorf("failed init should reset to uninitialized, got %v", eng.State())
	}

	repo.setFailFindAll(false)
	if err := eng.Initialize(context.Background()); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if eng.State() != StateReady {
		t.Errorf("state = %v, want ready after retry", eng.State())
	}
}

func TestSearchIndexedRanksIphoneAboveTV(t *testing.T) {
	repo := newFakeRepo(seedProducts())
	eng := New(Config{Repository: repo})

	results := eng.Search(context.Background(), "iphone", Options{})
	if len(results) == 0 {
		t.Fatal("expected indexed results for iphone query")
	}
	if results[0].Product.ID != 1 {
		t.Fatalf("top result = %q (id %d), want iPhone 15 Pro",
			results[0].Product.Name, results[0].Product.ID)
	}
	for i, r := range results[1:] {
		if r.Product.Category == "tv" && r.Score >= results[0].Score {
			t.Errorf("tv product %q at position %d scored %.2f >= iphone %.2f",
				r.Product.Name, i+1, r.Score, results[0].Score)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted descending at %d", i)
		}
	}
}

func TestSearchIndexedHonorsCategoryFilter(t *testing.T) {
	repo := newFakeRepo(seedProducts())
	eng := New(Config{Repository: repo})

	results := eng.Search(context.Background(), "samsung television", Options{Category: "tv"})
	for _, r := range results {
		if r.Product.Category != "tv" {
			t.Errorf("category filter leaked %q (category %q)", r.Product.Name, r.Product.Category)
		}
	}
}

func TestSearchFallbackRanksIphoneAboveTV(t *testing.T) {
	repo := newFakeRepo(seedProducts())
	repo.setFailFindAll(true)
	repo.broadText = true
	eng := New(Config{Repository: repo})

	results := eng.Search(context.Background(), "iphone", Options{})
	if len(results) == 0 {
		t.Fatal("expected fallback results")
	}
	if results[0].Product.ID != 1 {
		t.Fatalf("top fallback result = %q, want iPhone 15 Pro", results[0].Product.Name)
	}
	iphoneScore := results[0].Score
	for _, r := range results {
		if r.Product.Category == "tv" && r.Score >= iphoneScore {
			t.Errorf("tv product %q scored %.2f >= iphone %.2f", r.Product.Name, r.Score, iphoneScore)
		}
	}
	if eng.State() == StateReady {
		t.Error("engine should not be ready when bulk fetch fails")
	}
}

func TestSearchFallbackTVIntent(t *testing.T) {
	repo := newFakeRepo(seedProducts())
	repo.setFailFindAll(true)
	repo.broadText = true
	eng := New(Config{Repository: repo})

	results := eng.Search(context.Background(), "tv", Options{})
	if len(results) == 0 {
		t.Fatal("expected fallback results")
	}

	lastTV, firstPhone := -1, len(results)
	for i, r := range results {
		switch r.Product.Category {
		case "tv":
			lastTV = i
		case "phone":
			if i < firstPhone {
				firstPhone = i
			}
		}
	}
	if lastTV == -1 {
		t.Fatal("no tv products in results")
	}
	if firstPhone < lastTV {
		t.Errorf("phone product at %d ranked above tv product at %d", firstPhone, lastTV)
	}
}

func TestSearchNeverFailsOnRepositoryError(t *testing.T) {
	repo := newFakeRepo(seedProducts())
	repo.setFailFindAll(true)
	repo.failText = true
	eng := New(Config{Repository: repo})

	results := eng.Search(context.Background(), "iphone", Options{Limit: 10})
	if len(results) != 0 {
		t.Errorf("broken repository should yield an empty list, got %d results", len(results))
	}
}

func TestSearchLimit(t *testing.T) {
	repo := newFakeRepo(seedProducts())
	repo.setFailFindAll(true)
	repo.broadText = true
	eng := New(Config{Repository: repo})

	if got := eng.Search(context.Background(), "samsung", Options{Limit: 2}); len(got) > 2 {
		t.Errorf("limit 2 returned %d results", len(got))
	}
	if got := eng.Search(context.Background(), "samsung", Options{}); len(got) > DefaultLimit {
		t.Errorf("default limit returned %d results", len(got))
	}
	if got := eng.Search(context.Background(), "samsung", Options{Limit: 10000}); len(got) > MaxLimit {
		t.Errorf("oversized limit returned %d results", len(got))
	}
}

func TestSearchCacheHitSkipsRepository(t *testing.T) {
	repo := newFakeRepo(seedProducts())
	eng := New(Config{Repository: repo})

	first := eng.Search(context.Background(), "iphone", Options{Limit: 5})
	findAll1, byIDs1, text1 := repo.calls()

	second := eng.Search(context.Background(), "iphone", Options{Limit: 5})
	findAll2, byIDs2, text2 := repo.calls()

	if findAll1 != findAll2 || byIDs1 != byIDs2 || text1 != text2 {
		t.Errorf("cache hit touched the repository: (%d,%d,%d) -> (%d,%d,%d)",
			findAll1, byIDs1, text1, findAll2, byIDs2, text2)
	}
	if len(first) != len(second) {
		t.Errorf("cached results differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Product.ID != second[i].Product.ID {
			t.Errorf("cached results differ at %d", i)
		}
	}
}

func TestReinitializeClearsCache(t *testing.T) {
	repo := newFakeRepo(seedProducts())
	eng := New(Config{Repository: repo})

	eng.Search(context.Background(), "iphone", Options{Limit: 5})
	findAll1, _, _ := repo.calls()

	if err := eng.Reinitialize(context.Background()); err != nil {
		t.Fatalf("Reinitialize: %v", err)
	}
	findAll2, _, _ := repo.calls()
	if findAll2 != findAll1+1 {
		t.Errorf("Reinitialize should rebuild: bulk fetches %d -> %d", findAll1, findAll2)
	}

	_, byIDsBefore, _ := repo.calls()
	eng.Search(context.Background(), "iphone", Options{Limit: 5})
	_, byIDsAfter, _ := repo.calls()
	if byIDsAfter == byIDsBefore {
		t.Error("search after Reinitialize should recompute, not hit the stale cache")
	}
}

func TestRelatedBrands(t *testing.T) {
	repo := newFakeRepo(seedProducts())
	eng := New(Config{Repository: repo})

	related := eng.RelatedBrands(context.Background(), "Samsung", 5)
	if len(related) == 0 {
		t.Fatal("expected related brands for Samsung")
	}
	for i := 1; i < len(related); i++ {
		if related[i].Relatedness > related[i-1].Relatedness {
			t.Errorf("related brands not sorted descending at %d", i)
		}
	}
	seen := make(map[string]bool)
	for _, r := range related {
		if r.Brand == "Samsung" {
			t.Error("a brand should not be related to itself")
		}
		if r.Relatedness <= 0 {
			t.Errorf("non-positive relatedness for %q", r.Brand)
		}
		seen[r.Brand] = true
	}
	if !seen["LG"] && !seen["Apple"] {
		t.Error("expected LG or Apple among Samsung's related brands")
	}

	if got := eng.RelatedBrands(context.Background(), "NoSuchBrand", 5); len(got) != 0 {
		t.Errorf("unknown brand returned %d related brands", len(got))
	}
}

func TestSearchEmptyQueryDoesNotPanic(t *testing.T) {
	repo := newFakeRepo(seedProducts())
	eng := New(Config{Repository: repo})

	results := eng.Search(context.Background(), "", Options{})
	if len(results) > DefaultLimit {
		t.Errorf("empty query returned %d results", len(results))
	}
}
