// Package engine is the public entry point of the product search core.
//
// The engine lazily builds its model set (indexes, lexical models,
// composite vectors) on first use with single-flight de-duplication, then
// serves searches from in-memory state. Every failure degrades: a failed
// initialization routes the call through the repository-backed fallback
// search, a failed fallback returns an empty list. Search never returns an
// error to its caller.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/clearcart/relevance/internal/cache"
	"github.com/clearcart/relevance/internal/catalog"
	"github.com/clearcart/relevance/internal/embedding"
	"github.com/clearcart/relevance/internal/feature"
	"github.com/clearcart/relevance/internal/index"
	"github.com/clearcart/relevance/internal/lexical"
	"github.com/clearcart/relevance/internal/rank"
	"github.com/clearcart/relevance/internal/textutil"
)

const (
	// DefaultLimit applies when a caller passes no limit.
	DefaultLimit = 10

	// MaxLimit caps any requested limit.
	MaxLimit = 50

	// maxCompositeVectors bounds how many products get composite
	// vectors at initialization; the rest are reachable only through
	// the fallback path.
	maxCompositeVectors = 500

	// maxCandidateScan caps the candidate set when no category/brand
	// filter narrows it.
	maxCandidateScan = 1000

	// minSimilarity is the indexed-path relevance floor; candidates at
	// or below it are dropped before scoring.
	minSimilarity = 0.1

	// fallbackFetchMultiplier controls how many records the fallback
	// query fetches per requested result.
	fallbackFetchMultiplier = 3

	// fallbackFetchCap bounds the fallback fetch regardless of limit.
	fallbackFetchCap = 50
)

// State is the engine lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Options are the per-search filters. Category and brand are matched
// exactly as stored in the catalog.
type Options struct {
	Category string
	Brand    string
	Limit    int
}

// Config configures a new Engine.
type Config struct {
	Repository catalog.Repository

	// Rules is the intent rule table; nil means rank.DefaultRules.
	Rules *rank.RuleSet

	// CacheSize is the LRU capacity; <= 0 uses cache.DefaultCapacity.
	CacheSize int

	// LegacyScorer switches the fallback path to the plain pre-rules
	// scorer (3.0 ceiling, no intent table).
	LegacyScorer bool

	// Logf receives diagnostic messages; nil discards them.
	Logf func(format string, args ...interface{})
}

// models is the immutable model set installed after a successful build.
type models struct {
	idx        *index.Index
	tfidf      *lexical.TFIDF
	word2vec   *lexical.Word2Vec
	categories *feature.CategoryModel
	brands     *feature.BrandModel
	vectors    map[int64]*rank.Vectors
}

// Engine owns the model set, the result cache and the search lifecycle.
// One instance per process; pass it to callers explicitly.
type Engine struct {
	repo   catalog.Repository
	scorer *rank.Scorer
	cache  *cache.Cache
	legacy bool
	logf   func(format string, args ...interface{})

	mu       sync.Mutex
	state    State
	initDone chan struct{} // closed when the in-flight build finishes
	initErr  error
	models   *models
}

// New creates an engine. Models are not built until the first search or an
// explicit Initialize call.
func New(cfg Config) *Engine {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return &Engine{
		repo:   cfg.Repository,
		scorer: rank.NewScorer(cfg.Rules),
		cache:  cache.New(cfg.CacheSize),
		legacy: cfg.LegacyScorer,
		logf:   logf,
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Initialize builds the model set if needed. Concurrent callers share a
// single in-flight build (and its single repository bulk fetch) and all
// observe the same outcome. A failed build resets the engine so a later
// call can retry.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case StateReady:
		e.mu.Unlock()
		return nil
	case StateInitializing:
		done := e.initDone
		e.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.state == StateReady {
			return nil
		}
		return e.initErr
	}

	e.state = StateInitializing
	done := make(chan struct{})
	e.initDone = done
	e.mu.Unlock()

	m, err := e.build(ctx)

	e.mu.Lock()
	if err != nil {
		// Recoverable: back to uninitialized so the next call retries.
		e.state = StateUninitialized
		e.initErr = err
		e.logf("engine: initialization failed: %v", err)
	} else {
		e.state = StateReady
		e.initErr = nil
		e.models = m
	}
	close(done)
	e.mu.Unlock()
	return err
}

// Reinitialize drops the cache and rebuilds the model set from the
// current catalog. This is the only way catalog changes become visible.
func (e *Engine) Reinitialize(ctx context.Context) error {
	e.mu.Lock()
	for e.state == StateInitializing {
		done := e.initDone
		e.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		e.mu.Lock()
	}
	e.state = StateUninitialized
	e.models = nil
	e.mu.Unlock()

	e.cache.Clear()
	return e.Initialize(ctx)
}

// build bulk-fetches the catalog and constructs the full model set.
func (e *Engine) build(ctx context.Context) (*models, error) {
	products, err := e.repo.FindAll(ctx, catalog.EngineProjection)
	if err != nil {
		return nil, fmt.Errorf("bulk-fetching catalog: %w", err)
	}

	docs := make([]string, len(products))
	for i, p := range products {
		docs[i] = p.SearchText()
	}

	m := &models{
		idx:        index.Build(products),
		tfidf:      lexical.BuildTFIDF(docs),
		word2vec:   lexical.TrainWord2Vec(docs),
		categories: feature.BuildCategoryModel(products),
		brands:     feature.BuildBrandModel(products),
		vectors:    make(map[int64]*rank.Vectors, len(products)),
	}

	bounded := products
	if len(bounded) > maxCompositeVectors {
		bounded = bounded[:maxCompositeVectors]
	}
	for i, p := range bounded {
		emb := p.Embedding
		if len(emb) != embedding.Dimensions {
			emb = embedding.Generate(docs[i])
			// Persist for reuse across restarts; best-effort only.
			if err := e.repo.UpsertEmbedding(ctx, p.ID, emb); err != nil {
				e.logf("engine: persisting embedding for product %d: %v", p.ID, err)
			}
		}
		m.vectors[p.ID] = &rank.Vectors{
			Embedding: emb,
			TFIDF:     m.tfidf.Vector(docs[i]),
			Word2Vec:  m.word2vec.DocVector(docs[i]),
		}
	}
	return m, nil
}

// BrandRelation pairs a brand with its relatedness to a reference brand.
type BrandRelation struct {
	Brand       string  `json:"brand"`
	Relatedness float64 `json:"relatedness"`
}

// RelatedBrands ranks the other known brands by relatedness to brand,
// strongest first, capped to limit. Returns nil when the model set cannot
// be built or the brand is unknown.
func (e *Engine) RelatedBrands(ctx context.Context, brand string, limit int) []BrandRelation {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if err := e.Initialize(ctx); err != nil {
		return nil
	}

	e.mu.Lock()
	m := e.models
	e.mu.Unlock()
	if m == nil {
		return nil
	}

	var related []BrandRelation
	for _, other := range m.brands.Names() {
		if other == brand {
			continue
		}
		if score := m.brands.Relatedness(brand, other); score > 0 {
			related = append(related, BrandRelation{Brand: other, Relatedness: score})
		}
	}
	sort.Slice(related, func(i, j int) bool {
		if related[i].Relatedness == related[j].Relatedness {
			return related[i].Brand < related[j].Brand
		}
		return related[i].Relatedness > related[j].Relatedness
	})
	if len(related) > limit {
		related = related[:limit]
	}
	return related
}

// Search runs a ranked product search. It never returns an error: a cold
// or broken engine serves the fallback path, and a broken repository
// yields an empty list. Results are sorted strictly descending by score
// and never exceed the (capped) limit.
func (e *Engine) Search(ctx context.Context, query string, opts Options) []rank.Scored {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	key := cache.Key{
		Query:    query,
		Category: opts.Category,
		Brand:    opts.Brand,
		Limit:    limit,
	}
	if cached, ok := e.cache.Get(key); ok {
		return cached
	}

	if err := e.Initialize(ctx); err != nil {
		results := e.fallbackSearch(ctx, query, opts, limit)
		e.cache.Set(key, results)
		return results
	}

	results, err := e.indexedSearch(ctx, query, opts, limit)
	if err != nil {
		e.logf("engine: indexed search failed, degrading: %v", err)
		results = e.fallbackSearch(ctx, query, opts, limit)
	}

	e.cache.Set(key, results)
	return results
}

// indexedSearch is the Ready-state path: index-selected candidates scored
// by composite-vector similarity, winners re-fetched and rule-scored.
func (e *Engine) indexedSearch(ctx context.Context, query string, opts Options, limit int) (results []rank.Scored, err error) {
	defer func() {
		if r := recover(); r != nil {
			results, err = nil, fmt.Errorf("indexed search panic: %v", r)
		}
	}()

	e.mu.Lock()
	m := e.models
	e.mu.Unlock()
	if m == nil {
		return nil, fmt.Errorf("models not built")
	}

	var candidateIDs []int64
	switch {
	case opts.Category != "":
		candidateIDs = m.idx.ByCategory(opts.Category)
	case opts.Brand != "":
		candidateIDs = m.idx.ByBrand(opts.Brand)
	default:
		candidateIDs = m.idx.AllIDs(maxCandidateScan)
	}

	queryVec := &rank.Vectors{
		Embedding: embedding.Generate(query),
		TFIDF:     m.tfidf.Vector(query),
		Word2Vec:  m.word2vec.DocVector(query),
	}

	type scoredID struct {
		id  int64
		sim float64
	}
	var passing []scoredID
	for _, id := range candidateIDs {
		p := m.idx.Get(id)
		if p == nil {
			continue
		}
		if opts.Category != "" && p.Category != opts.Category {
			continue
		}
		if opts.Brand != "" && p.Brand != opts.Brand {
			continue
		}
		pv, ok := m.vectors[id]
		if !ok {
			continue
		}
		sim := rank.Combined(queryVec, pv)
		if sim > minSimilarity {
			passing = append(passing, scoredID{id: id, sim: sim})
		}
	}

	sort.Slice(passing, func(i, j int) bool {
		if passing[i].sim == passing[j].sim {
			return passing[i].id < passing[j].id
		}
		return passing[i].sim > passing[j].sim
	})
	if len(passing) > limit {
		passing = passing[:limit]
	}
	if len(passing) == 0 {
		return []rank.Scored{}, nil
	}

	ids := make([]int64, len(passing))
	simByID := make(map[int64]float64, len(passing))
	for i, s := range passing {
		ids[i] = s.id
		simByID[s.id] = s.sim
	}

	winners, err := e.repo.FindByIDs(ctx, ids, catalog.EngineProjection)
	if err != nil {
		return nil, fmt.Errorf("fetching winners: %w", err)
	}

	inputs := make([]rank.Input, 0, len(winners))
	for _, p := range winners {
		inputs = append(inputs, rank.Input{
			Product:            p,
			MLSimilarity:       simByID[p.ID],
			HasSimilarity:      true,
			CategoryConfidence: m.categories.Score(feature.Vector(p), p.Category),
		})
	}

	scored := e.scorer.Rank(query, inputs, rank.PathIndexed)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// fallbackSearch is the degraded path: a repository text filter scored
// with the fallback (or legacy) magnitudes. Repository failures yield an
// empty list; search-level faults never reach the caller.
func (e *Engine) fallbackSearch(ctx context.Context, query string, opts Options, limit int) []rank.Scored {
	filter := catalog.TextFilter{
		Query:    strings.TrimSpace(query),
		Terms:    textutil.Preprocess(query),
		Category: opts.Category,
		Brand:    opts.Brand,
	}

	// Narrow through the index when a build is available.
	e.mu.Lock()
	m := e.models
	e.mu.Unlock()
	if m != nil {
		if opts.Category != "" {
			filter.IDs = m.idx.ByCategory(opts.Category)
		} else if opts.Brand != "" {
			filter.IDs = m.idx.ByBrand(opts.Brand)
		}
	}

	fetch := limit * fallbackFetchMultiplier
	if fetch > fallbackFetchCap {
		fetch = fallbackFetchCap
	}

	products, err := e.repo.FindByTextFilter(ctx, filter, fetch)
	if err != nil {
		e.logf("engine: fallback query failed: %v", err)
		return []rank.Scored{}
	}

	inputs := make([]rank.Input, 0, len(products))
	for _, p := range products {
		inputs = append(inputs, rank.Input{Product: p})
	}

	path := rank.PathFallback
	if e.legacy {
		path = rank.PathLegacy
	}
	scored := e.scorer.Rank(query, inputs, path)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
