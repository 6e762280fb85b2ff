// Package domain defines core business types and interfaces.
package domain

import (
	"context"
	"sort"
	"strings"
)

// Product is a catalog entry owning an ordered list of variants
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Variants    []Variant `json:"variants"`
}

// Variant is a specific requestable unit of a Product, e.g. a size or pack.
// A variant with components is a kit and its Stock field is not authoritative.
type Variant struct {
	ID         string            `json:"id"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Stock      int               `json:"stock"`
	Unit       string            `json:"unit,omitempty"`
	Components []Component       `json:"components,omitempty"`
}

// Component means one unit of the owning variant needs Quantity units of VariantID.
type Component struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// IsComposite reports whether the variant is assembled from components.
func (v Variant) IsComposite() bool {
	return len(v.Components) > 0
}

// Label renders the attribute map as "k=v, k=v" with sorted keys.
func (v Variant) Label() string {
	if len(v.Attributes) == 0 {
		return ""
	}
	keys := make([]string, 0, len(v.Attributes))
	for k := range v.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+v.Attributes[k])
	}
	return strings.Join(parts, ", ")
}

// FindVariant returns the variant with the given id inside p.
func (p Product) FindVariant(id string) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// FindVariant scans the whole catalog for a variant id and returns it with its owning product.
func FindVariant(products []Product, id string) (*Product, *Variant, bool) {
	for i := range products {
		if v, ok := products[i].FindVariant(id); ok {
			return &products[i], v, true
		}
	}
	return nil, nil, false
}

// Clone returns a deep copy so stores never hand out shared slices or maps.
func (p Product) Clone() Product {
	out := p
	if p.Variants == nil {
		return out
	}
	out.Variants = make([]Variant, len(p.Variants))
	for i, v := range p.Variants {
		cv := v
		if v.Attributes != nil {
			cv.Attributes = make(map[string]string, len(v.Attributes))
			for k, val := range v.Attributes {
				cv.Attributes[k] = val
			}
		}
		if v.Components != nil {
			cv.Components = append([]Component(nil), v.Components...)
		}
		out.Variants[i] = cv
	}
	return out
}

// ValidateProduct checks the structural rules of a product and its variants.
// Dangling component references are allowed; they resolve to zero availability.
func ValidateProduct(p Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return NewInvalidProductError("name", "cannot be empty", p.Name)
	}
	seen := make(map[string]struct{}, len(p.Variants))
	for _, v := range p.Variants {
		if v.ID == "" {
			return NewInvalidProductError("variants.id", "cannot be empty", v.ID)
		}
		if _, dup := seen[v.ID]; dup {
			return NewInvalidProductError("variants.id", "must be unique within product", v.ID)
		}
		seen[v.ID] = struct{}{}
		if v.Stock < 0 {
			return NewInvalidProductError("variants.stock", "must be non-negative", v.Stock)
		}
		for _, c := range v.Components {
			if c.Quantity <= 0 {
				return NewInvalidProductError("variants.components.quantity", "must be positive", c.Quantity)
			}
			if c.VariantID == v.ID {
				return NewInvalidProductError("variants.components.variant_id", "cannot reference itself", c.VariantID)
			}
		}
	}
	return nil
}

// ListFilter allows filtering and sorting results from List
type ListFilter struct {
	Category string
	Search   string
	SortBy   string // "name", "category", "variants"
	Order    string // "asc" or "desc"
}

// ProductStore defines the storage interface for the catalog
type ProductStore interface {
	Create(ctx context.Context, product Product) error
	Get(ctx context.Context, id string) (Product, error)
	Update(ctx context.Context, id string, product Product) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	BulkImport(ctx context.Context, products []Product) error
	// Snapshot returns a deep copy of the full catalog ordered by product id.
	Snapshot(ctx context.Context) ([]Product, error)
	// AdjustStock applies stock deltas to base variants, all or nothing.
	AdjustStock(ctx context.Context, deltas map[string]int) error
}
