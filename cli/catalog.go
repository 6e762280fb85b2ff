package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"farmstock/domain"
	"farmstock/stock"
	"farmstock/util"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// variantView is a variant as shown to users: stored fields plus resolved availability.
type variantView struct {
	domain.Variant
	Kind      string `json:"kind"`
	Available int    `json:"available"`
}

type productView struct {
	domain.Product
	Variants []variantView `json:"variants"`
}

func newProductView(p domain.Product, snapshot []domain.Product) productView {
	pv := productView{Product: p, Variants: make([]variantView, 0, len(p.Variants))}
	for i := range p.Variants {
		v := p.Variants[i]
		kind := "base"
		if v.IsComposite() {
			kind = "kit"
		}
		pv.Variants = append(pv.Variants, variantView{
			Variant:   v,
			Kind:      kind,
			Available: stock.AvailableStock(&v, snapshot),
		})
	}
	return pv
}

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// parseComponents reads "variant-id:qty" pairs.
func parseComponents(raw []string) ([]domain.Component, error) {
	out := make([]domain.Component, 0, len(raw))
	for _, s := range raw {
		id, qty, ok := strings.Cut(s, ":")
		if !ok || id == "" {
			return nil, domain.NewInvalidProductError("component", "expected variant-id:qty", s)
		}
		n, err := strconv.Atoi(qty)
		if err != nil {
			return nil, domain.NewInvalidProductError("component", "quantity must be an integer", s)
		}
		out = append(out, domain.Component{VariantID: id, Quantity: n})
	}
	return out, nil
}

// parseAttributes reads "name=value" pairs.
func parseAttributes(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, s := range raw {
		k, v, ok := strings.Cut(s, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, domain.NewInvalidProductError("attr", "expected name=value", s)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

func init() {
	// create
	var name, category, description string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("name required")
			}
			id := util.GenerateUUID()
			p := domain.Product{ID: id, Name: name, Category: category, Description: description}
			start := time.Now()
			if err := productStore.Create(cmd.Context(), p); err != nil {
				slog.Error("create failed", "product_id", id, "error", err)
				return err
			}
			slog.Info("product created", "product_id", id, "duration_ms", time.Since(start).Milliseconds())
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "name")
	createCmd.Flags().StringVar(&category, "category", "", "category")
	createCmd.Flags().StringVar(&description, "description", "", "description")
	rootCmd.AddCommand(createCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get product by id with resolved availability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := productStore.Get(cmd.Context(), args[0])
			if err != nil {
				if domain.IsProductNotFoundError(err) {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
					return nil
				}
				return err
			}
			snapshot, err := productStore.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), newProductView(p, snapshot))
		},
	}
	rootCmd.AddCommand(getCmd)

	// update
	var uName, uCategory, uDescription string
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update product details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			p, err := productStore.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("name") {
				p.Name = uName
			}
			if cmd.Flags().Changed("category") {
				p.Category = uCategory
			}
			if cmd.Flags().Changed("description") {
				p.Description = uDescription
			}

			start := time.Now()
			if err := productStore.Update(cmd.Context(), id, p); err != nil {
				slog.Error("update failed", "product_id", id, "error", err)
				return err
			}
			slog.Info("product updated", "product_id", id, "duration_ms", time.Since(start).Milliseconds())
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	updateCmd.Flags().StringVar(&uName, "name", "", "name")
	updateCmd.Flags().StringVar(&uCategory, "category", "", "category")
	updateCmd.Flags().StringVar(&uDescription, "description", "", "description")
	rootCmd.AddCommand(updateCmd)

	// list
	var lCategory, lSearch, lSort, lOrder, lOutput string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := productStore.List(cmd.Context(), domain.ListFilter{
				Category: lCategory,
				Search:   lSearch,
				SortBy:   lSort,
				Order:    lOrder,
			})
			if err != nil {
				return err
			}
			if lOutput == "json" {
				return printJSON(cmd.OutOrStdout(), out)
			}
			for _, p := range out {
				fmt.Fprintf(cmd.OutOrStdout(), "%s | %s | %s | %d variants\n",
					p.ID, p.Name, p.Category, len(p.Variants))
			}
			return nil
		},
	}
	listCmd.Flags().StringVar(&lCategory, "category", "", "category")
	listCmd.Flags().StringVar(&lSearch, "search", "", "match name or description")
	listCmd.Flags().StringVar(&lSort, "sort-by", "", "sort field: name|category|variants")
	listCmd.Flags().StringVar(&lOrder, "order", "asc", "sort order")
	listCmd.Flags().StringVar(&lOutput, "output", "", "output format")
	rootCmd.AddCommand(listCmd)

	// delete
	var force bool
	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product and its variants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				fmt.Fprintf(cmd.OutOrStdout(), "Delete %s? (y/N): ", args[0])
				var resp string
				if _, err := fmt.Fscanln(cmd.InOrStdin(), &resp); err != nil || (resp != "y" && resp != "Y") {
					fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}
			if err := productStore.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			slog.Info("product deleted", "product_id", args[0])
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}
	deleteCmd.Flags().BoolVar(&force, "force", false, "skip confirmation")
	rootCmd.AddCommand(deleteCmd)

	// variant
	variantCmd := &cobra.Command{
		Use:   "variant",
		Short: "Manage product variants and kits",
	}

	var vID, vUnit string
	var vStock int
	var vAttrs, vComponents []string
	variantAddCmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a variant; pass --component to make it a kit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := parseAttributes(vAttrs)
			if err != nil {
				return err
			}
			comps, err := parseComponents(vComponents)
			if err != nil {
				return err
			}
			p, err := productStore.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			id := vID
			if id == "" {
				id = util.GenerateUUID()
			}
			v := domain.Variant{ID: id, Attributes: attrs, Stock: vStock, Unit: vUnit, Components: comps}
			p.Variants = append(p.Variants, v)
			if err := productStore.Update(cmd.Context(), p.ID, p); err != nil {
				slog.Error("variant add failed", "product_id", p.ID, "variant_id", id, "error", err)
				return err
			}
			slog.Info("variant added", "product_id", p.ID, "variant_id", id, "kit", v.IsComposite())
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
	variantAddCmd.Flags().StringVar(&vID, "id", "", "variant id (generated if empty)")
	variantAddCmd.Flags().StringArrayVar(&vAttrs, "attr", nil, "attribute name=value, repeatable")
	variantAddCmd.Flags().IntVar(&vStock, "stock", 0, "stock on hand (ignored for kits)")
	variantAddCmd.Flags().StringVar(&vUnit, "unit", "", "unit label, e.g. box or piece")
	variantAddCmd.Flags().StringArrayVar(&vComponents, "component", nil, "kit component variant-id:qty, repeatable")
	variantCmd.AddCommand(variantAddCmd)

	variantRemoveCmd := &cobra.Command{
		Use:   "remove <product-id> <variant-id>",
		Short: "Remove a variant; kits referencing it resolve to zero",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := productStore.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			kept := p.Variants[:0]
			for _, v := range p.Variants {
				if v.ID != args[1] {
					kept = append(kept, v)
				}
			}
			if len(kept) == len(p.Variants) {
				return domain.NewVariantNotFoundError(args[1])
			}
			p.Variants = kept
			if err := productStore.Update(cmd.Context(), p.ID, p); err != nil {
				return err
			}
			slog.Info("variant removed", "product_id", p.ID, "variant_id", args[1])
			fmt.Fprintln(cmd.OutOrStdout(), "removed")
			return nil
		},
	}
	variantCmd.AddCommand(variantRemoveCmd)
	rootCmd.AddCommand(variantCmd)

	// import: JSON array, NDJSON or a single object
	var importFile string
	importCmd := &cobra.Command{
		Use:   "import --file <file>",
		Short: "Import products from JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if importFile == "" {
				return errors.New("--file required")
			}

			b, err := os.ReadFile(importFile)
			if err != nil {
				return err
			}
			products, err := decodeProducts(b)
			if err != nil {
				return err
			}

			start := time.Now()
			if err := productStore.BulkImport(cmd.Context(), products); err != nil {
				slog.Error("import failed", "file", importFile, "error", err)
				return err
			}
			slog.Info("products imported", "count", len(products), "duration_ms", time.Since(start).Milliseconds())
			return nil
		},
	}
	importCmd.Flags().StringVar(&importFile, "file", "", "input file")
	rootCmd.AddCommand(importCmd)

	// export
	var exportFile, exportCategory string
	exportCmd := &cobra.Command{
		Use:   "export --file <file>",
		Short: "Export products to JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if exportFile == "" {
				return errors.New("--file required")
			}
			out, err := productStore.List(cmd.Context(), domain.ListFilter{
				Category: exportCategory,
			})
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			return os.WriteFile(exportFile, b, 0o644)
		},
	}
	exportCmd.Flags().StringVar(&exportFile, "file", "", "output file")
	exportCmd.Flags().StringVar(&exportCategory, "category", "", "category")
	rootCmd.AddCommand(exportCmd)
}

func decodeProducts(b []byte) ([]domain.Product, error) {
	btrim := bytes.TrimSpace(b)
	if len(btrim) == 0 {
		return nil, errors.New("empty file")
	}

	var products []domain.Product
	if btrim[0] == '[' {
		if err := json.Unmarshal(btrim, &products); err != nil {
			return nil, err
		}
		return products, nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(btrim))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var p domain.Product
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

