// Package commands holds the sub-commands registered on the server binary.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"budgetledger/config"
	"budgetledger/services"
)

// NewReconcileCommand returns the "reconcile <file>" command, which parses
// and reconciles a local estimate workbook without touching the database.
func NewReconcileCommand(cfg *config.Config, logger *zap.Logger) *cobra.Command {
	var summaryOnly, table bool

	cmd := &cobra.Command{
		Use:   "reconcile <file>",
		Short: "Reconcile an estimate workbook and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := reconcileFile(args[0], cfg, logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if table {
				return writeTable(out, res)
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if summaryOnly {
				return enc.Encode(res.Summary)
			}
			return enc.Encode(res)
		},
	}

	cmd.Flags().BoolVar(&summaryOnly, "summary-only", false, "print only the category summary")
	cmd.Flags().BoolVar(&table, "table", false, "print lines and subtotals as a text table")
	cmd.MarkFlagsMutuallyExclusive("summary-only", "table")

	return cmd
}

func reconcileFile(path string, cfg *config.Config, logger *zap.Logger) (services.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return services.Result{}, fmt.Errorf("opening estimate: %w", err)
	}
	defer f.Close()

	sheets, err := services.ParseEstimateFile(f, filepath.Base(path), cfg.ParseOptions())
	if err != nil {
		return services.Result{}, err
	}

	res, err := cfg.Reconciler().Reconcile(sheets)
	if err != nil {
		return services.Result{}, err
	}
	logger.Debug("estimate reconciled",
		zap.String("file", path),
		zap.Int("sheets", len(res.Sheets)),
		zap.Int("rows", res.Stats.TotalRows),
	)
	return res, nil
}

// writeTable prints one line per row followed by the category subtotals.
// Derived values are marked with "*" and mismatched amounts with "!".
func writeTable(out io.Writer, res services.Result) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "SHEET\tROW\tNAME\tQTY\tUNIT\tUNIT PRICE\tAMOUNT\tCATEGORY\t")
	for _, l := range res.Rows {
		qty := cell(l.Quantity, services.FormatQty, l.IsDerived(services.DerivedQuantity))
		price := cell(l.UnitPrice, services.FormatJPY, l.IsDerived(services.DerivedUnitPrice))
		amount := cell(l.Amount, services.FormatJPY, l.IsDerived(services.DerivedAmount))
		if l.AmountMismatch {
			amount += "!"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			l.SheetName, l.RowNo, l.Name, qty, l.Unit, price, amount, l.Category.Label())
	}
	fmt.Fprintln(w, "\t\t\t\t\t\t\t\t")
	for _, c := range services.Categories() {
		fmt.Fprintf(w, "\t\t\t\t\t%s\t%s\t\t\n", c.Label(), services.FormatJPY(res.Summary.Subtotal(c)))
	}
	fmt.Fprintf(w, "\t\t\t\t\t合計\t%s\t\t\n", services.FormatJPY(res.Summary.GrandTotal))
	return w.Flush()
}

func cell(v *float64, format func(float64) string, derived bool) string {
	if v == nil {
		return "-"
	}
	s := format(*v)
	if derived {
		s += "*"
	}
	return s
}
