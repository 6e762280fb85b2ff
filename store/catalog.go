package store

import (
	"farmstock/domain"
	"sort"
	"strings"
)

// catalog is the unsynchronized product index shared by the store backends.
// Callers hold their own lock around every method.
type catalog struct {
	products map[string]domain.Product
	owners   map[string]string // variant id -> product id
}

func newCatalog() *catalog {
	return &catalog{
		products: make(map[string]domain.Product),
		owners:   make(map[string]string),
	}
}

func validateNew(p domain.Product) error {
	if p.ID == "" {
		return domain.NewInvalidProductError("id", "cannot be empty", p.ID)
	}
	return domain.ValidateProduct(p)
}

// checkVariantIDs rejects variant ids already owned by a different product.
func (c *catalog) checkVariantIDs(p domain.Product) error {
	for _, v := range p.Variants {
		if owner, ok := c.owners[v.ID]; ok && owner != p.ID {
			return domain.NewDuplicateProductError(v.ID)
		}
	}
	return nil
}

func (c *catalog) index(p domain.Product) {
	for _, v := range p.Variants {
		c.owners[v.ID] = p.ID
	}
}

func (c *catalog) unindex(p domain.Product) {
	for _, v := range p.Variants {
		if c.owners[v.ID] == p.ID {
			delete(c.owners, v.ID)
		}
	}
}

func (c *catalog) create(p domain.Product) error {
	if _, exists := c.products[p.ID]; exists {
		return domain.NewDuplicateProductError(p.ID)
	}
	if err := c.checkVariantIDs(p); err != nil {
		return err
	}
	p = p.Clone()
	c.products[p.ID] = p
	c.index(p)
	return nil
}

func (c *catalog) get(id string) (domain.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return domain.Product{}, domain.NewProductNotFoundError(id)
	}
	return p.Clone(), nil
}

func (c *catalog) update(id string, p domain.Product) error {
	old, ok := c.products[id]
	if !ok {
		return domain.NewProductNotFoundError(id)
	}
	p.ID = id
	if err := c.checkVariantIDs(p); err != nil {
		return err
	}
	c.unindex(old)
	p = p.Clone()
	c.products[id] = p
	c.index(p)
	return nil
}

func (c *catalog) delete(id string) error {
	p, ok := c.products[id]
	if !ok {
		return domain.NewProductNotFoundError(id)
	}
	c.unindex(p)
	delete(c.products, id)
	return nil
}

func (c *catalog) list(filter domain.ListFilter) []domain.Product {
	search := strings.ToLower(filter.Search)
	out := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, p.Clone())
	}

	desc := filter.Order == "desc"
	less := func(i, j int) bool { return out[i].ID < out[j].ID }
	switch filter.SortBy {
	case "name":
		less = func(i, j int) bool {
			if out[i].Name == out[j].Name {
				return out[i].ID < out[j].ID
			}
			return (out[i].Name < out[j].Name) != desc
		}
	case "category":
		less = func(i, j int) bool {
			if out[i].Category == out[j].Category {
				return out[i].Name < out[j].Name
			}
			return (out[i].Category < out[j].Category) != desc
		}
	case "variants":
		less = func(i, j int) bool {
			if len(out[i].Variants) == len(out[j].Variants) {
				return out[i].ID < out[j].ID
			}
			return (len(out[i].Variants) < len(out[j].Variants)) != desc
		}
	}
	sort.Slice(out, less)
	return out
}

func (c *catalog) snapshot() []domain.Product {
	return c.list(domain.ListFilter{})
}

// adjust validates every delta before applying any of them.
func (c *catalog) adjust(deltas map[string]int) error {
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	type target struct {
		productID string
		index     int
	}
	targets := make([]target, 0, len(ids))
	for _, id := range ids {
		pid, ok := c.owners[id]
		if !ok {
			return domain.NewVariantNotFoundError(id)
		}
		p := c.products[pid]
		idx := -1
		for i := range p.Variants {
			if p.Variants[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return domain.NewVariantNotFoundError(id)
		}
		v := p.Variants[idx]
		if v.IsComposite() {
			return domain.NewInvalidProductError("variant_id", "kit stock is derived from components", id)
		}
		if v.Stock+deltas[id] < 0 {
			return domain.NewInsufficientStockError(id, -deltas[id], v.Stock)
		}
		targets = append(targets, target{productID: pid, index: idx})
	}

	for i, t := range targets {
		c.products[t.productID].Variants[t.index].Stock += deltas[ids[i]]
	}
	return nil
}
