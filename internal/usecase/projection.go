package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/raumania/assistant/internal/domain"
)

// Project renders one catalog entry as a single line of retrieval text
func Project(e domain.Entry) string {
	switch e.Shape {
	case domain.ShapeProductWithVariants:
		p := e.Product
		return fmt.Sprintf("Product Name: %s, Price: $%s, Brand: %s, Variants: %s",
			p.Name, p.Price, p.BrandName, strings.Join(p.VariantNames, ", "))
	case domain.ShapeBrandWithProducts:
		b := e.Brand
		return fmt.Sprintf("Brand Name: %s, Products: %s", b.Name, strings.Join(b.ProductNames, ", "))
	case domain.ShapeMinimalProduct:
		p := e.Product
		return fmt.Sprintf("Product Name: %s, Price: $%s, ID: %s", p.Name, p.Price, p.ID)
	case domain.ShapeMinimalBrand:
		b := e.Brand
		return fmt.Sprintf("Brand Name: %s, ID: %s", b.Name, b.ID)
	}
	return rawText(e.Raw)
}

// ProjectCatalog renders every entry of the catalog in source order
func ProjectCatalog(c *domain.Catalog) []string {
	lines := make([]string, 0, len(c.Entries))
	for _, e := range c.Entries {
		lines = append(lines, Project(e))
	}
	return lines
}

// rawText dumps an unrecognized entry as compact JSON
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
