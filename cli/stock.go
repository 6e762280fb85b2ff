package cli

import (
	"farmstock/domain"
	"farmstock/report"
	"farmstock/stock"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	// available
	availableCmd := &cobra.Command{
		Use:   "available <variant-id>",
		Short: "Print how many units of a variant can be requested now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := productStore.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			_, v, _ := domain.FindVariant(snapshot, args[0])
			res := stock.Check(v, snapshot)
			switch {
			case v == nil:
				slog.Warn("variant not found", "variant_id", args[0])
			case res.Degraded():
				// zero here means broken kit data, not an empty shelf
				slog.Warn("kit structure unresolved", "variant_id", args[0], "status", res.Status.String(), "component_id", res.Limiting)
			default:
				slog.Debug("stock resolved", "variant_id", args[0], "available", res.Available, "limiting", res.Limiting)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Available)
			return nil
		},
	}
	rootCmd.AddCommand(availableCmd)

	// receive
	var rQuantity int
	receiveCmd := &cobra.Command{
		Use:   "receive <variant-id>",
		Short: "Record goods received into stock for a base variant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rQuantity <= 0 {
				return domain.NewInvalidProductError("quantity", "must be positive", rQuantity)
			}
			if err := productStore.AdjustStock(cmd.Context(), map[string]int{args[0]: rQuantity}); err != nil {
				slog.Error("receive failed", "variant_id", args[0], "error", err)
				return err
			}
			slog.Info("stock received", "variant_id", args[0], "quantity", rQuantity)
			fmt.Fprintln(cmd.OutOrStdout(), "received")
			return nil
		},
	}
	receiveCmd.Flags().IntVar(&rQuantity, "quantity", 0, "units received")
	rootCmd.AddCommand(receiveCmd)

	// fulfill
	var fQuantity int
	fulfillCmd := &cobra.Command{
		Use:   "fulfill <variant-id>",
		Short: "Fulfil a request, consuming kit components where needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := productStore.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			_, v, ok := domain.FindVariant(snapshot, args[0])
			if !ok {
				return domain.NewVariantNotFoundError(args[0])
			}
			deltas, err := stock.Consumption(v, fQuantity, snapshot)
			if err != nil {
				return err
			}
			// the store re-checks every delta, so a concurrent change cannot oversell
			start := time.Now()
			if err := productStore.AdjustStock(cmd.Context(), deltas); err != nil {
				slog.Error("fulfill failed", "variant_id", v.ID, "error", err)
				return err
			}
			slog.Info("request fulfilled",
				"variant_id", v.ID,
				"quantity", fQuantity,
				"kit", v.IsComposite(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
			fmt.Fprintln(cmd.OutOrStdout(), "fulfilled")
			return nil
		},
	}
	fulfillCmd.Flags().IntVar(&fQuantity, "quantity", 0, "units requested")
	rootCmd.AddCommand(fulfillCmd)

	// report
	var repOutput, repFile string
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Per-variant stock report with resolved kit availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := productStore.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			rows := report.Build(snapshot)
			for _, r := range rows {
				if r.Status != stock.StatusOK.String() {
					slog.Warn("report row degraded", "variant_id", r.VariantID, "status", r.Status)
				}
			}

			if repFile == "" {
				return report.Write(cmd.OutOrStdout(), rows, repOutput)
			}
			f, err := os.Create(repFile)
			if err != nil {
				return err
			}
			if err := report.Write(f, rows, repOutput); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			slog.Info("report written", "file", repFile, "rows", len(rows), "format", repOutput)
			return nil
		},
	}
	reportCmd.Flags().StringVar(&repOutput, "output", "table", "output format: table|csv|json")
	reportCmd.Flags().StringVar(&repFile, "file", "", "write to file instead of stdout")
	rootCmd.AddCommand(reportCmd)
}
