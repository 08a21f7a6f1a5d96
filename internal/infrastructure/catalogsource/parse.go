// Package catalogsource loads the product and brand datasets from files, S3 or Postgres.
package catalogsource

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/raumania/assistant/internal/domain"
)

// Role tells the parser which record kind an unrecognized entry should default to
type Role int

const (
	RoleProducts Role = iota
	RoleBrands
)

// page is the paginated export document written by the store backend
type page struct {
	PageNumber    int               `json:"pageNumber"`
	PageSize      int               `json:"pageSize"`
	TotalElements *int              `json:"totalElements"`
	TotalPages    int               `json:"totalPages"`
	Content       []json.RawMessage `json:"content"`
}

// rawItem decodes every field a catalog entry may carry.
// variantName is the backend DTO's name for the variant list.
type rawItem struct {
	ID           json.RawMessage `json:"id"`
	Name         string          `json:"name"`
	Price        json.Number     `json:"price"`
	BrandName    string          `json:"brandName"`
	VariantNames []string        `json:"variantNames"`
	VariantName  []string        `json:"variantName"`
	ProductNames []string        `json:"productNames"`
}

// ParsePage parses one export document into entries and the declared total.
// A missing totalElements defaults to the number of entries.
func ParsePage(data []byte, role Role) ([]domain.Entry, int, error) {
	var p page
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, 0, fmt.Errorf("decode export page: %w", err)
	}

	entries := make([]domain.Entry, 0, len(p.Content))
	for i, raw := range p.Content {
		e, err := ParseEntry(raw, role)
		if err != nil {
			return nil, 0, fmt.Errorf("decode content[%d]: %w", i, err)
		}
		entries = append(entries, e)
	}

	total := len(entries)
	if p.TotalElements != nil {
		total = *p.TotalElements
	}
	return entries, total, nil
}

// ParseEntry classifies one JSON object by its keys and decodes it.
// Shapes are tested in order: variant list, product list, exactly {id,name,price},
// exactly {id,name}; anything else is kept raw.
func ParseEntry(raw json.RawMessage, role Role) (domain.Entry, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return domain.Entry{}, err
	}

	var item rawItem
	if err := json.Unmarshal(raw, &item); err != nil {
		// Entries with unexpected field types are still projected verbatim
		return domain.Entry{Shape: domain.ShapeRaw, Raw: raw}, nil
	}

	variants := item.VariantNames
	_, hasVariants := keys["variantNames"]
	if !hasVariants {
		_, hasVariants = keys["variantName"]
		variants = item.VariantName
	}
	_, hasProducts := keys["productNames"]

	e := domain.Entry{Raw: raw}
	switch {
	case hasVariants:
		e.Shape = domain.ShapeProductWithVariants
		e.Product = item.product()
		e.Product.VariantNames = nonNil(variants)
	case hasProducts:
		e.Shape = domain.ShapeBrandWithProducts
		e.Brand = item.brand()
		e.Brand.ProductNames = nonNil(item.ProductNames)
	case keysEqual(keys, "id", "name", "price"):
		e.Shape = domain.ShapeMinimalProduct
		e.Product = item.product()
	case keysEqual(keys, "id", "name"):
		e.Shape = domain.ShapeMinimalBrand
		e.Brand = item.brand()
	default:
		e.Shape = domain.ShapeRaw
		if _, hasName := keys["name"]; hasName {
			if role == RoleBrands {
				e.Brand = item.brand()
			} else {
				e.Product = item.product()
			}
		}
	}
	return e, nil
}

func (r rawItem) product() *domain.Product {
	return &domain.Product{
		ID:        idString(r.ID),
		Name:      r.Name,
		Price:     r.Price,
		BrandName: r.BrandName,
	}
}

func (r rawItem) brand() *domain.Brand {
	return &domain.Brand{
		ID:   idString(r.ID),
		Name: r.Name,
	}
}

// idString renders a JSON id (string or number) as plain text
func idString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// nonNil keeps a present-but-null list distinguishable from an absent one
func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func keysEqual(keys map[string]json.RawMessage, want ...string) bool {
	if len(keys) != len(want) {
		return false
	}
	for _, k := range want {
		if _, ok := keys[k]; !ok {
			return false
		}
	}
	return true
}

// Decode parses both export documents into a catalog tagged with version
func Decode(productData, brandData []byte, version string) (*domain.Catalog, error) {
	products, totalProducts, err := ParsePage(productData, RoleProducts)
	if err != nil {
		return nil, fmt.Errorf("%w: product export: %v", domain.ErrCatalogUnavailable, err)
	}
	brands, totalBrands, err := ParsePage(brandData, RoleBrands)
	if err != nil {
		return nil, fmt.Errorf("%w: brand export: %v", domain.ErrCatalogUnavailable, err)
	}

	catalog := domain.NewCatalog(products, brands, totalProducts, totalBrands)
	catalog.Version = version
	return catalog, nil
}
