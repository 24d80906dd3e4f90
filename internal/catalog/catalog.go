// Package catalog provides the product data model and the repository
// boundary consumed by the search engine.
//
// The engine treats the catalog as read-only: bulk fetch with a field
// projection, bulk fetch by IDs, and a substring text filter for the
// degraded search path. The SQLite implementation also persists embedding
// vectors so they survive process restarts.
package catalog

import (
	"context"
	"strings"
)

// Product is a single catalog entry. Category and brand are free-text
// labels stored as imported; matching code lowercases its own copies where
// case-insensitive comparison is specified.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Brand       string    `json:"brand"`
	Price       float64   `json:"price"`
	Rating      float64   `json:"rating"`     // 0-5, default 0
	Popularity  float64   `json:"popularity"` // non-negative, default 0
	NumReviews  int       `json:"numReviews"`
	Stock       int       `json:"stock"`
	Tags        []string  `json:"tags"`
	Features    []string  `json:"features"`
	Embedding   []float64 `json:"-"` // optional persisted pseudo-embedding
}

// SearchText returns the concatenated text used to build the product's
// lexical and embedding vectors.
func (p *Product) SearchText() string {
	parts := make([]string, 0, 3+len(p.Tags))
	if p.Name != "" {
		parts = append(parts, p.Name)
	}
	if p.Description != "" {
		parts = append(parts, p.Description)
	}
	parts = append(parts, p.Tags...)
	return strings.Join(parts, " ")
}

// Projection names the product fields a caller needs hydrated. The SQLite
// implementation hydrates full rows regardless (a full-row select is the
// idiomatic SQLite equivalent of a document-store projection and the rows
// are small); the projection is kept on the interface so alternative
// repositories can honor it.
type Projection []string

// EngineProjection is the minimum projection the search engine requires.
var EngineProjection = Projection{
	"id", "name", "description", "category", "brand", "price",
	"rating", "popularity", "numReviews", "stock", "tags", "features",
	"vectorEmbedding",
}

// TextFilter describes the degraded-path repository query: case-insensitive
// substring match against name/description/brand/category, term membership
// against tags/features, optional exact category/brand narrowing, and an
// optional candidate ID set when an index lookup already narrowed the
// search.
type TextFilter struct {
	Query    string
	Terms    []string
	Category string
	Brand    string
	IDs      []int64
}

// Stats holds catalog observability counters.
type Stats struct {
	ProductCount   int64
	EmbeddingCount int64
	CategoryCount  int64
	BrandCount     int64
	DBSizeBytes    int64
}

// Repository is the engine's only external collaborator.
type Repository interface {
	FindAll(ctx context.Context, fields Projection) ([]*Product, error)
	FindByIDs(ctx context.Context, ids []int64, fields Projection) ([]*Product, error)
	FindByTextFilter(ctx context.Context, filter TextFilter, limit int) ([]*Product, error)

	// Embedding persistence, keyed by product ID.
	UpsertEmbedding(ctx context.Context, productID int64, vector []float64) error
	GetEmbedding(ctx context.Context, productID int64) ([]float64, error)

	Stats(ctx context.Context) (*Stats, error)
	Close() error
}
