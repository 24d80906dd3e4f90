package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// ImportResult summarizes a catalog import.
type ImportResult struct {
	Imported int
	Skipped  int
}

// ImportJSON loads products from a JSON file (an array of Product objects)
// into the repository. Products without a name are skipped rather than
// failing the whole import.
func ImportJSON(ctx context.Context, repo *SQLiteRepository, path string) (*ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var products []*Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	result := &ImportResult{}
	for _, p := range products {
		if p == nil || p.Name == "" {
			result.Skipped++
			continue
		}
		p.ID = 0 // IDs are assigned by the repository
		if _, err := repo.AddProduct(ctx, p); err != nil {
			return result, fmt.Errorf("importing %q: %w", p.Name, err)
		}
		result.Imported++
	}
	return result, nil
}
