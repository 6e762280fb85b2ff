// Package report renders the per-variant stock report used by catalog admins.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"farmstock/domain"
	"farmstock/stock"

	"github.com/gocarina/gocsv"
)

// Row is one variant line of the stock report.
type Row struct {
	ProductID   string `csv:"product_id" json:"product_id"`
	ProductName string `csv:"product_name" json:"product_name"`
	Category    string `csv:"category" json:"category"`
	VariantID   string `csv:"variant_id" json:"variant_id"`
	Variant     string `csv:"variant" json:"variant"`
	Unit        string `csv:"unit" json:"unit,omitempty"`
	Kind        string `csv:"kind" json:"kind"`
	Stock       int    `csv:"stock" json:"stock"`
	Available   int    `csv:"available" json:"available"`
	Status      string `csv:"status" json:"status"`
}

const (
	KindBase = "base"
	KindKit  = "kit"
)

// Build resolves every variant in the snapshot. Kits get their derived
// availability; Stock keeps the stored value for comparison.
func Build(products []domain.Product) []Row {
	rows := make([]Row, 0, len(products))
	for _, p := range products {
		for i := range p.Variants {
			v := &p.Variants[i]
			res := stock.Check(v, products)
			kind := KindBase
			if v.IsComposite() {
				kind = KindKit
			}
			rows = append(rows, Row{
				ProductID:   p.ID,
				ProductName: p.Name,
				Category:    p.Category,
				VariantID:   v.ID,
				Variant:     v.Label(),
				Unit:        v.Unit,
				Kind:        kind,
				Stock:       v.Stock,
				Available:   res.Available,
				Status:      res.Status.String(),
			})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ProductName == rows[j].ProductName {
			return rows[i].VariantID < rows[j].VariantID
		}
		return rows[i].ProductName < rows[j].ProductName
	})
	return rows
}

// Write encodes rows as "csv", "json" or "table".
func Write(w io.Writer, rows []Row, format string) error {
	switch format {
	case "csv":
		return gocsv.Marshal(rows, w)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "table", "":
		for _, r := range rows {
			if _, err := fmt.Fprintf(w, "%s | %s | %s | %s | %d | %d | %s\n",
				r.ProductName, r.VariantID, r.Variant, r.Kind, r.Stock, r.Available, r.Status); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown report format: %s", format)
	}
}
