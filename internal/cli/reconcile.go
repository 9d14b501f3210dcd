// Package cli — reconcile.go implements the "freedom-calculator
// reconcile" command: computed balances against the report's own
// Securities sheet.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkraev/freedom-calculator/internal/model"
	"github.com/mkraev/freedom-calculator/internal/pipeline"
)

// NewReconcileCommand creates the "reconcile" cobra command.
func NewReconcileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <broker.xlsx>",
		Short: "Check computed balances against the Securities sheet",
		Long: `Reconcile the per-ticker balances computed from the Trades sheet with
the end-of-period holdings the broker states on the Securities sheet of
the same workbook. Mismatches usually mean the trade history is split
across several reports.`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(args[0])
		},
	}
}

func runReconcile(brokerPath string) error {
	rows, err := pipeline.Reconcile(pipeline.Options{BrokerPath: brokerPath})
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		data, _ := json.MarshalIndent(rows, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	var flagged int
	fmt.Printf("%-14s %10s %10s  %s\n", "Ticker", "Computed", "Reported", "Status")
	for _, row := range rows {
		computed, reported := "-", "-"
		if row.HasComputed {
			computed = row.Computed.String()
		}
		if row.HasReported {
			reported = row.Reported.String()
		}

		status := "ok"
		if !row.Sufficient() {
			status = "MISMATCH"
			flagged++
		}
		fmt.Printf("%-14s %10s %10s  %s\n", row.Ticker, computed, reported, status)
	}

	if flagged > 0 {
		fmt.Printf("\n%d ticker(s) do not reconcile; the trade history is probably incomplete.\n", flagged)
		return model.NewCLIError(model.ExitGeneralError, "reconciliation found mismatches")
	}
	fmt.Println("\nAll tickers reconcile.")
	return nil
}
