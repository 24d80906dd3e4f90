package catalog

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default catalog database location.
const DefaultDBPath = "~/.relevance/catalog.db"

// SQLiteRepository implements Repository on a single SQLite database file.
type SQLiteRepository struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteRepository opens (and migrates) the catalog database.
// Pass ":memory:" for in-memory databases (testing).
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dbPath == "" {
		dbPath = ExpandPath(DefaultDBPath)
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	r := &SQLiteRepository{db: db, dbPath: dbPath}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return r, nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// migrations are applied in order; each runs at most once.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category    TEXT NOT NULL DEFAULT '',
		brand       TEXT NOT NULL DEFAULT '',
		price       REAL NOT NULL DEFAULT 0,
		rating      REAL NOT NULL DEFAULT 0,
		popularity  REAL NOT NULL DEFAULT 0,
		num_reviews INTEGER NOT NULL DEFAULT 0,
		stock       INTEGER NOT NULL DEFAULT 0,
		tags        TEXT NOT NULL DEFAULT '[]',
		features    TEXT NOT NULL DEFAULT '[]'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category)`,
	`CREATE INDEX IF NOT EXISTS idx_products_brand ON products(brand)`,
	`CREATE TABLE IF NOT EXISTS embeddings (
		product_id INTEGER PRIMARY KEY REFERENCES products(id) ON DELETE CASCADE,
		vector     BLOB NOT NULL,
		dimensions INTEGER NOT NULL
	)`,
}

func (r *SQLiteRepository) migrate() error {
	if _, err := r.db.Exec(
		`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`,
	); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	var current int
	err := r.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		if _, err := r.db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := r.db.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
	}
	return nil
}

const productColumns = `p.id, p.name, p.description, p.category, p.brand,
	p.price, p.rating, p.popularity, p.num_reviews, p.stock, p.tags, p.features,
	e.vector`

const productFrom = `FROM products p LEFT JOIN embeddings e ON e.product_id = p.id`

// AddProduct inserts a product and returns its ID. Used by the importer and
// tests; the search engine itself never writes products.
func (r *SQLiteRepository) AddProduct(ctx context.Context, p *Product) (int64, error) {
	tags, err := json.Marshal(normalizeSet(p.Tags))
	if err != nil {
		return 0, fmt.Errorf("encoding tags: %w", err)
	}
	features, err := json.Marshal(normalizeSet(p.Features))
	if err != nil {
		return 0, fmt.Errorf("encoding features: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO products (name, description, category, brand, price, rating,
			popularity, num_reviews, stock, tags, features)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.Category, p.Brand, p.Price, p.Rating,
		p.Popularity, p.NumReviews, p.Stock, string(tags), string(features),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting product %q: %w", p.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading product id: %w", err)
	}
	p.ID = id

	if len(p.Embedding) > 0 {
		if err := r.UpsertEmbedding(ctx, id, p.Embedding); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// FindAll returns every product. The fields projection is accepted for
// interface compatibility; rows are hydrated in full (see Projection).
func (r *SQLiteRepository) FindAll(ctx context.Context, fields Projection) ([]*Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` `+productFrom+` ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// FindByIDs bulk-fetches products by ID in a single query. Missing IDs are
// silently absent from the result; order follows the ids argument.
func (r *SQLiteRepository) FindByIDs(ctx context.Context, ids []int64, fields Projection) ([]*Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE p.id IN (%s)`,
		productColumns, productFrom, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying products by ids: %w", err)
	}
	defer rows.Close()

	found, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	ordered := make([]*Product, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// FindByTextFilter runs the degraded-path query: case-insensitive substring
// match against name/description/brand/category plus term membership in
// tags/features, optionally narrowed by exact category/brand or a candidate
// ID set.
func (r *SQLiteRepository) FindByTextFilter(ctx context.Context, filter TextFilter, limit int) ([]*Product, error) {
	if limit <= 0 {
		limit = 10
	}

	// Match conditions widen each other (OR); category/brand/ID filters
	// always narrow (AND).
	var matchConds, narrowConds []string
	var args []interface{}

	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		like := "%" + q + "%"
		matchConds = append(matchConds,
			`(LOWER(p.name) LIKE ? OR LOWER(p.description) LIKE ? OR LOWER(p.brand) LIKE ? OR LOWER(p.category) LIKE ?)`)
		args = append(args, like, like, like, like)
	}

	// Tags and features are stored as JSON arrays of lowercase strings, so
	// membership reduces to a quoted-substring match.
	for _, term := range filter.Terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		member := `%"` + term + `"%`
		matchConds = append(matchConds, `(p.tags LIKE ? OR p.features LIKE ?)`)
		args = append(args, member, member)
	}

	if filter.Category != "" {
		narrowConds = append(narrowConds, `p.category = ?`)
		args = append(args, filter.Category)
	}
	if filter.Brand != "" {
		narrowConds = append(narrowConds, `p.brand = ?`)
		args = append(args, filter.Brand)
	}
	if len(filter.IDs) > 0 {
		placeholders := make([]string, len(filter.IDs))
		for i, id := range filter.IDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		narrowConds = append(narrowConds, fmt.Sprintf(`p.id IN (%s)`, strings.Join(placeholders, ",")))
	}

	var where []string
	if len(matchConds) > 0 {
		where = append(where, `(`+strings.Join(matchConds, " OR ")+`)`)
	}
	where = append(where, narrowConds...)

	query := `SELECT ` + productColumns + ` ` + productFrom
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY p.id LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("text-filter query: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// UpsertEmbedding stores the embedding vector for a product, replacing any
// existing one.
func (r *SQLiteRepository) UpsertEmbedding(ctx context.Context, productID int64, vector []float64) error {
	blob := vectorToBytes(vector)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO embeddings (product_id, vector, dimensions) VALUES (?, ?, ?)
		 ON CONFLICT(product_id) DO UPDATE SET vector = excluded.vector, dimensions = excluded.dimensions`,
		productID, blob, len(vector),
	)
	if err != nil {
		return fmt.Errorf("storing embedding for product %d: %w", productID, err)
	}
	return nil
}

// GetEmbedding retrieves the persisted embedding for a product.
func (r *SQLiteRepository) GetEmbedding(ctx context.Context, productID int64) ([]float64, error) {
	var blob []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT vector FROM embeddings WHERE product_id = ?`, productID,
	).Scan(&blob)
	if err != nil {
		return nil, fmt.Errorf("getting embedding for product %d: %w", productID, err)
	}
	return bytesToVector(blob), nil
}

// Stats returns catalog counters for observability.
func (r *SQLiteRepository) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{}
	queries := []struct {
		sql string
		dst *int64
	}{
		{`SELECT COUNT(*) FROM products`, &s.ProductCount},
		{`SELECT COUNT(*) FROM embeddings`, &s.EmbeddingCount},
		{`SELECT COUNT(DISTINCT category) FROM products WHERE category != ''`, &s.CategoryCount},
		{`SELECT COUNT(DISTINCT brand) FROM products WHERE brand != ''`, &s.BrandCount},
	}
	for _, q := range queries {
		if err := r.db.QueryRowContext(ctx, q.sql).Scan(q.dst); err != nil {
			return nil, fmt.Errorf("stats query: %w", err)
		}
	}

	if r.dbPath != ":memory:" {
		if info, err := os.Stat(r.dbPath); err == nil {
			s.DBSizeBytes = info.Size()
		}
	}
	return s, nil
}

func scanProducts(rows *sql.Rows) ([]*Product, error) {
	var products []*Product
	for rows.Next() {
		p := &Product{}
		var tags, features string
		var blob []byte
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Brand,
			&p.Price, &p.Rating, &p.Popularity, &p.NumReviews, &p.Stock,
			&tags, &features, &blob); err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags for product %d: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(features), &p.Features); err != nil {
			return nil, fmt.Errorf("decoding features for product %d: %w", p.ID, err)
		}
		if len(blob) > 0 {
			p.Embedding = bytesToVector(blob)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// normalizeSet lowercases and de-duplicates a tag/feature set, preserving
// first-seen order.
func normalizeSet(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// vectorToBytes converts a float64 vector to a little-endian float32 blob.
// Float32 halves the storage; the pseudo-embedding's bump increments are
// well within float32 precision.
func vectorToBytes(vec []float64) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
	}
	return buf
}

// bytesToVector converts a little-endian float32 blob back to float64.
func bytesToVector(buf []byte) []float64 {
	vec := make([]float64, len(buf)/4)
	for i := range vec {
		vec[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
	}
	return vec
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
