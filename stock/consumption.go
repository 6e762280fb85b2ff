package stock

import "farmstock/domain"

// Consumption returns the stock deltas that fulfilling qty units of v requires.
// A base variant consumes itself; a kit consumes qty*quantity of each
// component. The deltas are negative and keyed by base variant id, ready for
// domain.ProductStore.AdjustStock.
func Consumption(v *domain.Variant, qty int, products []domain.Product) (map[string]int, error) {
	if v == nil {
		return nil, domain.NewVariantNotFoundError("")
	}
	if qty <= 0 {
		return nil, domain.NewInvalidProductError("quantity", "must be positive", qty)
	}

	res := Check(v, products)
	if qty > res.Available {
		avail := res.Available
		if avail < 0 {
			avail = 0
		}
		return nil, domain.NewInsufficientStockError(v.ID, qty, avail)
	}

	if !v.IsComposite() {
		return map[string]int{v.ID: -qty}, nil
	}

	deltas := make(map[string]int, len(v.Components))
	for _, c := range v.Components {
		if c.Quantity <= 0 {
			continue
		}
		// the same component may be listed twice; sum them
		deltas[c.VariantID] -= qty * c.Quantity
	}
	return deltas, nil
}
