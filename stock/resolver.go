// Package stock derives requestable quantities from a catalog snapshot.
//
// Base variants report their stored stock. Kits report how many complete
// units their scarcest component allows. Every function here is pure: it
// reads the snapshot it is given and never mutates it, so callers may share
// one snapshot across goroutines.
package stock

import "farmstock/domain"

// Status tells why a resolved quantity has the value it has.
type Status int

const (
	// StatusOK means the quantity was derived from complete data.
	StatusOK Status = iota
	// StatusNoVariant means no variant was supplied.
	StatusNoVariant
	// StatusOrphan means no product in the snapshot owns the kit.
	StatusOrphan
	// StatusMissingComponent means a component id does not resolve inside the owning product.
	StatusMissingComponent
	// StatusNoComponents means every component had a non-positive quantity.
	StatusNoComponents
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoVariant:
		return "no_variant"
	case StatusOrphan:
		return "orphan"
	case StatusMissingComponent:
		return "missing_component"
	case StatusNoComponents:
		return "no_components"
	default:
		return "unknown"
	}
}

// Result is a resolved quantity together with the reason for it.
type Result struct {
	Available int
	Status    Status
	// Limiting is the component that bounds a kit, or the missing one for StatusMissingComponent.
	Limiting string
}

// Degraded reports whether the quantity was zeroed by broken catalog data
// rather than by real stock levels.
func (r Result) Degraded() bool {
	return r.Status == StatusOrphan || r.Status == StatusMissingComponent || r.Status == StatusNoComponents
}

// AvailableStock returns how many units of v can be requested right now.
// It never fails: missing or inconsistent data resolves to 0.
func AvailableStock(v *domain.Variant, products []domain.Product) int {
	return Check(v, products).Available
}

// Check resolves v like AvailableStock and also reports why.
//
// Components are read one level deep: a component's own Stock is used as-is
// even if that component is itself a kit. Component lookup is scoped to the
// product that owns v.
func Check(v *domain.Variant, products []domain.Product) Result {
	if v == nil {
		return Result{Status: StatusNoVariant}
	}
	if len(v.Components) == 0 {
		// negative stored stock is passed through unclamped
		return Result{Available: v.Stock, Status: StatusOK}
	}

	owner := ownerOf(v.ID, products)
	if owner == nil {
		return Result{Status: StatusOrphan}
	}

	available, limiting, processed := 0, "", false
	for _, c := range v.Components {
		if c.Quantity <= 0 {
			continue
		}
		part, ok := owner.FindVariant(c.VariantID)
		if !ok {
			return Result{Status: StatusMissingComponent, Limiting: c.VariantID}
		}
		n := floorDiv(part.Stock, c.Quantity)
		if !processed || n < available {
			available, limiting = n, c.VariantID
		}
		processed = true
	}
	if !processed {
		return Result{Status: StatusNoComponents}
	}
	return Result{Available: available, Status: StatusOK, Limiting: limiting}
}

func ownerOf(variantID string, products []domain.Product) *domain.Product {
	for i := range products {
		if _, ok := products[i].FindVariant(variantID); ok {
			return &products[i]
		}
	}
	return nil
}

// floorDiv rounds toward negative infinity; d is always positive here.
func floorDiv(n, d int) int {
	q := n / d
	if n%d != 0 && n < 0 {
		q--
	}
	return q
}
