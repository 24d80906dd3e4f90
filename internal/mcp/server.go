// Package mcp provides a Model Context Protocol server for the search
// engine.
//
// It exposes catalog search, product lookup, brand relatedness and
// catalog statistics as MCP tools over stdio, so agent frontends can
// query the engine without a separate network service.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/clearcart/relevance/internal/catalog"
	"github.com/clearcart/relevance/internal/engine"
	"github.com/clearcart/relevance/internal/rank"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Engine     *engine.Engine
	Repository catalog.Repository
	Version    string // version string for MCP server info
}

// dbMu serializes all MCP tool calls that touch the database.
// The mcp-go library dispatches handlers concurrently via goroutines.
// SQLite (even with WAL) supports only one writer at a time, and concurrent
// reads during writes can return stale results. A global mutex ensures
// correct ordering: imports complete before searches see their data.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all search tools.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"Relevance",
		ver,
		server.WithToolCapabilities(false),
	)

	registerSearchTool(s, cfg.Engine)
	registerProductGetTool(s, cfg.Engine, cfg.Repository)
	registerRelatedBrandsTool(s, cfg.Engine)
	registerStatsTool(s, cfg.Repository)

	return s
}

// searchResult is the wire shape of one scored product.
type searchResult struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Brand    string  `json:"brand,omitempty"`
	Category string  `json:"category,omitempty"`
	Price    float64 `json:"price"`
	Rating   float64 `json:"rating"`
	Score    float64 `json:"score"`
}

func toSearchResults(scored []rank.Scored) []searchResult {
	out := make([]searchResult, 0, len(scored))
	for _, s := range scored {
		out = append(out, searchResult{
			ID:       s.Product.ID,
			Name:     s.Product.Name,
			Brand:    s.Product.Brand,
			Category: s.Product.Category,
			Price:    s.Product.Price,
			Rating:   s.Product.Rating,
			Score:    s.Score,
		})
	}
	return out
}

func registerSearchTool(s *server.MCPServer, eng *engine.Engine) {
	tool := mcp.NewTool("product_search",
		mcp.WithDescription("Search the product catalog with multi-signal relevance ranking. Returns scored products, best match first. Optionally filter by exact category or brand."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string"),
		),
		mcp.WithString("category",
			mcp.Description("Exact category filter as stored in the catalog (e.g. 'phone'). Empty = all categories."),
		),
		mcp.WithString("brand",
			mcp.Description("Exact brand filter as stored in the catalog (e.g. 'Apple'). Empty = all brands."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 10, max: 50)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		opts := engine.Options{}
		if c, err := req.RequireString("category"); err == nil {
			opts.Category = c
		}
		if b, err := req.RequireString("brand"); err == nil {
			opts.Brand = b
		}
		if l, err := req.RequireFloat("limit"); err == nil && l > 0 {
			opts.Limit = int(l)
		}

		results := eng.Search(ctx, query, opts)
		if len(results) == 0 {
			return mcp.NewToolResultText("No products matched."), nil
		}

		data, _ := json.MarshalIndent(toSearchResults(results), "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerProductGetTool(s *server.MCPServer, eng *engine.Engine, repo catalog.Repository) {
	tool := mcp.NewTool("product_get",
		mcp.WithDescription("Fetch one product by ID with full details, plus the brands most related to its brand."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Product ID"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		idVal, err := req.RequireFloat("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}
		id := int64(idVal)

		products, err := repo.FindByIDs(ctx, []int64{id}, catalog.EngineProjection)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("product lookup error: %v", err)), nil
		}
		if len(products) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No product with id %d.", id)), nil
		}
		p := products[0]

		result := map[string]interface{}{
			"id":          p.ID,
			"name":        p.Name,
			"description": p.Description,
			"category":    p.Category,
			"brand":       p.Brand,
			"price":       p.Price,
			"rating":      p.Rating,
			"popularity":  p.Popularity,
			"numReviews":  p.NumReviews,
			"stock":       p.Stock,
			"tags":        p.Tags,
			"features":    p.Features,
		}
		if p.Brand != "" {
			if related := eng.RelatedBrands(ctx, p.Brand, 5); len(related) > 0 {
				result["related_brands"] = related
			}
		}

		data, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerRelatedBrandsTool(s *server.MCPServer, eng *engine.Engine) {
	tool := mcp.NewTool("related_brands",
		mcp.WithDescription("Rank the catalog's brands by relatedness to a given brand (shared categories, price proximity, feature similarity)."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("brand",
			mcp.Required(),
			mcp.Description("Brand name as stored in the catalog (e.g. 'Samsung')"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of brands to return (default: 10)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		brand, err := req.RequireString("brand")
		if err != nil || strings.TrimSpace(brand) == "" {
			return mcp.NewToolResultError("brand is required"), nil
		}

		limit := 0
		if l, err := req.RequireFloat("limit"); err == nil && l > 0 {
			limit = int(l)
		}

		related := eng.RelatedBrands(ctx, brand, limit)
		if len(related) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No related brands for %q.", brand)), nil
		}

		data, _ := json.MarshalIndent(related, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerStatsTool(s *server.MCPServer, repo catalog.Repository) {
	tool := mcp.NewTool("catalog_stats",
		mcp.WithDescription("Get catalog statistics: product, embedding, category and brand counts, and database size."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		stats, err := repo.Stats(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats error: %v", err)), nil
		}

		result := map[string]interface{}{
			"products":      stats.ProductCount,
			"embeddings":    stats.EmbeddingCount,
			"categories":    stats.CategoryCount,
			"brands":        stats.BrandCount,
			"db_size_bytes": stats.DBSizeBytes,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}
