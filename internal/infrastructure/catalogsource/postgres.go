package catalogsource

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raumania/assistant/internal/domain"
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSource reads the catalog straight from the store database tables
// (product, brand, product_variant)
type PostgresSource struct {
	db   querier
	pool *pgxpool.Pool
}

// NewPostgresSource opens a pool on dsn and verifies the connection
func NewPostgresSource(ctx context.Context, dsn string) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: postgres ping: %v", domain.ErrCatalogUnavailable, err)
	}
	return &PostgresSource{db: pool, pool: pool}, nil
}

// Close releases the pool
func (s *PostgresSource) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// versionQuery casts every id to text; ids and foreign keys are uuid columns
const versionQuery = `
	SELECT
		(SELECT count(*) FROM product),
		(SELECT count(*) FROM brand),
		(SELECT count(*) FROM product_variant),
		(SELECT coalesce(md5(string_agg(id::text || ':' || coalesce(name, '') || ':' || coalesce(min_price::text, '') || ':' || coalesce(brand_id::text, ''), ',' ORDER BY id::text)), '') FROM product),
		(SELECT coalesce(md5(string_agg(id::text || ':' || coalesce(name, ''), ',' ORDER BY id::text)), '') FROM brand),
		(SELECT coalesce(md5(string_agg(id::text || ':' || coalesce(name, '') || ':' || coalesce(product_id::text, ''), ',' ORDER BY id::text)), '') FROM product_variant)`

const (
	productsQuery = `
		SELECT p.id::text, p.name, p.min_price, coalesce(b.name, '')
		FROM product p
		LEFT JOIN brand b ON b.id = p.brand_id
		WHERE p.name IS NOT NULL
		ORDER BY p.name, p.id::text`

	variantsQuery = `
		SELECT product_id::text, name
		FROM product_variant
		WHERE product_id IS NOT NULL AND name IS NOT NULL
		ORDER BY product_id::text, name`

	brandsQuery = `
		SELECT id::text, name
		FROM brand
		WHERE name IS NOT NULL
		ORDER BY name, id::text`

	brandProductsQuery = `
		SELECT brand_id::text, name
		FROM product
		WHERE brand_id IS NOT NULL AND name IS NOT NULL
		ORDER BY brand_id::text, name`
)

// Version digests row counts and row contents of the three tables
func (s *PostgresSource) Version(ctx context.Context) (string, error) {
	var products, brands, variants int64
	var productDigest, brandDigest, variantDigest string
	err := s.db.QueryRow(ctx, versionQuery).Scan(
		&products, &brands, &variants,
		&productDigest, &brandDigest, &variantDigest,
	)
	if err != nil {
		return "", fmt.Errorf("%w: postgres version: %v", domain.ErrCatalogUnavailable, err)
	}
	return fmt.Sprintf("%d/%d/%d:%s:%s:%s", products, brands, variants,
		productDigest, brandDigest, variantDigest), nil
}

type productRow struct {
	ID        string
	Name      string
	MinPrice  *float64
	BrandName string
}

type brandRow struct {
	ID   string
	Name string
}

// childRow links a name to its parent id
type childRow struct {
	ParentID string
	Name     string
}

// Load reads products with their brand and variant names, and brands with their product names
func (s *PostgresSource) Load(ctx context.Context) (*domain.Catalog, error) {
	version, err := s.Version(ctx)
	if err != nil {
		return nil, err
	}

	products, err := s.products(ctx)
	if err != nil {
		return nil, err
	}
	variants, err := s.children(ctx, variantsQuery)
	if err != nil {
		return nil, err
	}
	brands, err := s.brands(ctx)
	if err != nil {
		return nil, err
	}
	brandProducts, err := s.children(ctx, brandProductsQuery)
	if err != nil {
		return nil, err
	}

	productEntries, brandEntries := assemble(products, variants, brands, brandProducts)
	catalog := domain.NewCatalog(productEntries, brandEntries, len(productEntries), len(brandEntries))
	catalog.Version = version
	return catalog, nil
}

func (s *PostgresSource) products(ctx context.Context) ([]productRow, error) {
	rows, err := s.db.Query(ctx, productsQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: query products: %v", domain.ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	var out []productRow
	for rows.Next() {
		var r productRow
		if err := rows.Scan(&r.ID, &r.Name, &r.MinPrice, &r.BrandName); err != nil {
			return nil, fmt.Errorf("%w: scan product: %v", domain.ErrCatalogUnavailable, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate products: %v", domain.ErrCatalogUnavailable, err)
	}
	return out, nil
}

func (s *PostgresSource) brands(ctx context.Context) ([]brandRow, error) {
	rows, err := s.db.Query(ctx, brandsQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: query brands: %v", domain.ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	var out []brandRow
	for rows.Next() {
		var r brandRow
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("%w: scan brand: %v", domain.ErrCatalogUnavailable, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate brands: %v", domain.ErrCatalogUnavailable, err)
	}
	return out, nil
}

func (s *PostgresSource) children(ctx context.Context, query string) ([]childRow, error) {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", domain.ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	var out []childRow
	for rows.Next() {
		var r childRow
		if err := rows.Scan(&r.ParentID, &r.Name); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", domain.ErrCatalogUnavailable, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate: %v", domain.ErrCatalogUnavailable, err)
	}
	return out, nil
}

// assemble builds the same entries the export files would carry
func assemble(products []productRow, variants []childRow, brands []brandRow, brandProducts []childRow) ([]domain.Entry, []domain.Entry) {
	variantsOf := groupNames(variants)
	productsOf := groupNames(brandProducts)

	productEntries := make([]domain.Entry, 0, len(products))
	for _, r := range products {
		p := &domain.Product{
			ID:           r.ID,
			Name:         r.Name,
			Price:        formatPrice(r.MinPrice),
			BrandName:    r.BrandName,
			VariantNames: nonNil(variantsOf[r.ID]),
		}
		productEntries = append(productEntries, domain.Entry{
			Shape:   domain.ShapeProductWithVariants,
			Product: p,
			Raw:     mustJSON(p),
		})
	}

	brandEntries := make([]domain.Entry, 0, len(brands))
	for _, r := range brands {
		b := &domain.Brand{
			ID:           r.ID,
			Name:         r.Name,
			ProductNames: nonNil(productsOf[r.ID]),
		}
		brandEntries = append(brandEntries, domain.Entry{
			Shape: domain.ShapeBrandWithProducts,
			Brand: b,
			Raw:   mustJSON(b),
		})
	}
	return productEntries, brandEntries
}

func groupNames(rows []childRow) map[string][]string {
	out := make(map[string][]string)
	for _, r := range rows {
		out[r.ParentID] = append(out[r.ParentID], r.Name)
	}
	return out
}

func formatPrice(v *float64) json.Number {
	if v == nil {
		return ""
	}
	return json.Number(strconv.FormatFloat(*v, 'f', -1, 64))
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
