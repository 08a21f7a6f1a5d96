package domain

import (
	"encoding/json"
	"strings"
)

// Product is a catalog product as exported by the store backend
type Product struct {
	ID        string      `json:"id,omitempty"`
	Name      string      `json:"name"`
	Price     json.Number `json:"price,omitempty"` // literal numeric text, printed as stored
	BrandName string      `json:"brandName,omitempty"`
	// VariantNames is nil when the source entry carries no variant list
	VariantNames []string `json:"variantNames,omitempty"`
}

// Brand is a catalog brand with the names of its products
type Brand struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	// ProductNames is nil when the source entry carries no product list
	ProductNames []string `json:"productNames,omitempty"`
}

// RecordKind tags the variant held by a Record
type RecordKind int

const (
	RecordProduct RecordKind = iota + 1
	RecordBrand
)

func (k RecordKind) String() string {
	switch k {
	case RecordProduct:
		return "product"
	case RecordBrand:
		return "brand"
	default:
		return "unknown"
	}
}

// Record is a tagged union over Product and Brand
type Record struct {
	Kind    RecordKind
	Product *Product
	Brand   *Brand
}

// ProductRecord wraps a product
func ProductRecord(p *Product) Record {
	return Record{Kind: RecordProduct, Product: p}
}

// BrandRecord wraps a brand
func BrandRecord(b *Brand) Record {
	return Record{Kind: RecordBrand, Brand: b}
}

// Name returns the lookup key of the record
func (r Record) Name() string {
	switch r.Kind {
	case RecordProduct:
		return r.Product.Name
	case RecordBrand:
		return r.Brand.Name
	}
	return ""
}

// EntryShape discriminates the structural shapes a dataset entry can take
type EntryShape int

const (
	ShapeRaw EntryShape = iota
	ShapeProductWithVariants
	ShapeBrandWithProducts
	ShapeMinimalProduct // exactly id, name, price
	ShapeMinimalBrand   // exactly id, name
)

// Entry is one parsed dataset item. Product or Brand is set for the typed shapes;
// Raw always holds the original JSON object.
type Entry struct {
	Shape   EntryShape
	Product *Product
	Brand   *Brand
	Raw     json.RawMessage
}

// Catalog is an immutable view of both datasets for one source version.
// Records keep source order; matching relies on it for tie-breaks.
type Catalog struct {
	Products      []Record
	Brands        []Record
	Entries       []Entry // product entries first, then brand entries
	TotalProducts int
	TotalBrands   int
	Version       string
}

// NewCatalog builds a catalog from parsed product and brand entries.
// Entries that are not products (resp. brands) are still projected for retrieval
// but are not matchable. A repeated name keeps its first position and last value.
func NewCatalog(productEntries, brandEntries []Entry, totalProducts, totalBrands int) *Catalog {
	c := &Catalog{
		TotalProducts: totalProducts,
		TotalBrands:   totalBrands,
	}
	c.Entries = make([]Entry, 0, len(productEntries)+len(brandEntries))
	c.Entries = append(c.Entries, productEntries...)
	c.Entries = append(c.Entries, brandEntries...)

	seen := make(map[string]int)
	for _, e := range productEntries {
		if e.Product == nil || strings.TrimSpace(e.Product.Name) == "" {
			continue
		}
		rec := ProductRecord(e.Product)
		if idx, ok := seen[e.Product.Name]; ok {
			c.Products[idx] = rec
			continue
		}
		seen[e.Product.Name] = len(c.Products)
		c.Products = append(c.Products, rec)
	}

	seen = make(map[string]int)
	for _, e := range brandEntries {
		if e.Brand == nil || strings.TrimSpace(e.Brand.Name) == "" {
			continue
		}
		rec := BrandRecord(e.Brand)
		if idx, ok := seen[e.Brand.Name]; ok {
			c.Brands[idx] = rec
			continue
		}
		seen[e.Brand.Name] = len(c.Brands)
		c.Brands = append(c.Brands, rec)
	}

	if c.TotalProducts <= 0 {
		c.TotalProducts = len(productEntries)
	}
	if c.TotalBrands <= 0 {
		c.TotalBrands = len(brandEntries)
	}
	return c
}
