// Package cli — process.go implements the "freedom-calculator process"
// command, the main pipeline run: broker report in, summaries and
// exports out.
package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mkraev/freedom-calculator/internal/export"
	"github.com/mkraev/freedom-calculator/internal/model"
	"github.com/mkraev/freedom-calculator/internal/pipeline"
)

// processFlags holds the flag values for the process command.
type processFlags struct {
	out      string // --out: output directory for CSV/PDF exports
	currency string // --currency: trade currency to process
	pdf      bool   // --pdf: also write the closed-positions PDF
}

// NewProcessCommand creates the "process" cobra command.
func NewProcessCommand() *cobra.Command {
	flags := &processFlags{}

	cmd := &cobra.Command{
		Use:   "process <broker.xlsx|broker.pdf> <rates.xlsx> [previous...]",
		Short: "Process a broker report and export the results",
		Long: `Process a broker trade report against a CBR rates workbook and write
details.csv, summary.csv and closed_summary.csv into the output
directory.

Extra arguments are prior-period broker reports; they are consulted when
a ticker's sales exceed its purchases within the period. Pass "-" as the
rates file to fetch rates from cbr.ru instead.

Examples:
  freedom-calculator process report.xlsx rates.xlsx
  freedom-calculator process report.pdf - --currency USD
  freedom-calculator process report.xlsx rates.xlsx december.xlsx --out result`,

		Args: cobra.MinimumNArgs(2),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.out, "out", "out", "Output directory for the exports")
	cmd.Flags().StringVar(&flags.currency, "currency", "", "Trade currency (default from config, USD)")
	cmd.Flags().BoolVar(&flags.pdf, "pdf", false, "Also write closed.pdf with the closed positions")

	return cmd
}

func runProcess(cmd *cobra.Command, args []string, flags *processFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	currency := flags.currency
	if currency == "" {
		currency = cfg.Currency
	}

	ratesPath := args[1]
	if ratesPath == "-" {
		ratesPath = ""
	}

	report, err := pipeline.Run(cmd.Context(), pipeline.Options{
		BrokerPath:    args[0],
		RatesPath:     ratesPath,
		PreviousPaths: args[2:],
		Currency:      currency,
		RatesBaseURL:  cfg.Rates.BaseURL,
	})
	if err != nil {
		return err
	}

	if err := export.WriteCSVs(report, flags.out); err != nil {
		return err
	}
	if flags.pdf && len(report.Closed) > 0 {
		if err := export.WritePDF(report, filepath.Join(flags.out, "closed.pdf")); err != nil {
			return err
		}
	}

	printProcessResult(report, flags.out, args[2:])
	return nil
}

// printProcessResult outputs the run summary in text or JSON format.
func printProcessResult(report *model.Report, outDir string, previous []string) {
	if IsJSONOutput() {
		printProcessResultJSON(report, outDir)
		return
	}

	fmt.Printf("Processed %d trades (%s)\n", len(report.Trades), report.Currency)
	fmt.Printf("  Output: %s\n", outDir)

	fmt.Println()
	fmt.Println("  Summary:")
	for _, s := range report.Summary {
		fmt.Printf("    %-12s balance %8s  result %14s RUB\n",
			s.Ticker, s.Balance.String(), s.ResultRUB.StringFixed(2))
	}

	if len(report.Closed) > 0 {
		fmt.Println()
		fmt.Println("  Closed positions:")
		for _, c := range report.Closed {
			fmt.Printf("    %-12s %14s RUB\n", c.Ticker, c.Result.StringFixed(2))
		}
	}

	printNegativeGuidance(report, previous)
}

// printNegativeGuidance warns about tickers whose sales are not covered
// by purchases and tells the user what to do about it.
func printNegativeGuidance(report *model.Report, previous []string) {
	negative := report.NegativeTickers()
	if len(negative) == 0 {
		return
	}

	fmt.Println()
	fmt.Println("  Warning: negative balances remain:")
	for _, s := range negative {
		fmt.Printf("    %-12s %s\n", s.Ticker, s.Balance.String())
	}
	if len(previous) == 0 {
		fmt.Println("  Add prior-period reports as extra arguments to cover these sales.")
	} else {
		fmt.Println("  The supplied prior-period reports do not contain enough purchases.")
	}
}

func printProcessResultJSON(report *model.Report, outDir string) {
	result := struct {
		Currency string                 `json:"currency"`
		Trades   int                    `json:"trades"`
		Output   string                 `json:"output"`
		Summary  []model.TickerSummary  `json:"summary"`
		Closed   []model.ClosedPosition `json:"closed,omitempty"`
		Negative []model.TickerSummary  `json:"negative,omitempty"`
	}{
		Currency: report.Currency,
		Trades:   len(report.Trades),
		Output:   outDir,
		Summary:  report.Summary,
		Closed:   report.Closed,
		Negative: report.NegativeTickers(),
	}

	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(data))
}
