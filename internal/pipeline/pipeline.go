package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mkraev/freedom-calculator/internal/calc"
	"github.com/mkraev/freedom-calculator/internal/ingest"
	"github.com/mkraev/freedom-calculator/internal/model"
	"github.com/mkraev/freedom-calculator/internal/rates"
)

// Options configures a single pipeline run.
type Options struct {
	// BrokerPath is the broker report, xlsx or pdf.
	BrokerPath string

	// RatesPath is the CBR rates workbook. Empty means fetch from the
	// CBR endpoint instead.
	RatesPath string

	// PreviousPaths are prior-period broker reports used to cover
	// negative balances. May be empty.
	PreviousPaths []string

	// Currency is the trade currency to process (USD, EUR, GBP).
	Currency string

	// RatesBaseURL overrides the CBR endpoint when fetching.
	RatesBaseURL string
}

// Run executes the pipeline and returns the finished report.
//
// Negative balances are covered only when prior-period files are
// supplied; otherwise the negative rows stay in the summary so the
// caller can tell the user which files are needed.
func Run(ctx context.Context, opts Options) (*model.Report, error) {
	trades, err := ingest.ForFile(opts.BrokerPath).Load(opts.BrokerPath)
	if err != nil {
		return nil, err
	}

	trades = calc.FilterCurrency(trades, opts.Currency)
	if len(trades) == 0 {
		return nil, model.NewCLIError(model.ExitParseError,
			"no trades found for currency "+opts.Currency)
	}
	log.Info().Int("trades", len(trades)).Str("currency", opts.Currency).
		Str("broker", opts.BrokerPath).Msg("loaded broker report")

	table, err := loadRates(ctx, opts, trades)
	if err != nil {
		return nil, err
	}
	log.Info().Int("rates", table.Len()).Msg("loaded rate table")

	processed := calc.Convert(trades, table)
	summary := calc.Summarize(processed)

	if negatives(summary) && len(opts.PreviousPaths) > 0 {
		previous, err := loadPrevious(opts.PreviousPaths, opts.Currency)
		if err != nil {
			return nil, err
		}
		processed = calc.CoverNegativeBalances(processed, summary, previous)
		calc.BackfillRates(processed, table)
		summary = calc.Summarize(processed)
	}

	return &model.Report{
		Currency: opts.Currency,
		Trades:   processed,
		Summary:  summary,
		Closed:   calc.ClosedPositions(processed, summary),
	}, nil
}

// Reconcile loads the broker report's Securities sheet and compares the
// end-of-period balances against the balances computed from the trade
// log of the same workbook.
func Reconcile(opts Options) ([]model.ReconciliationRow, error) {
	trades, err := ingest.ForFile(opts.BrokerPath).Load(opts.BrokerPath)
	if err != nil {
		return nil, err
	}
	reported, err := ingest.LoadSecurities(opts.BrokerPath)
	if err != nil {
		return nil, err
	}

	// Balances need no rates; an empty table leaves every trade unrated
	// but quantities still count.
	processed := calc.Convert(trades, rates.NewTable(nil))
	return calc.Reconcile(calc.Summarize(processed), reported), nil
}

// loadRates picks the rate source: the workbook when a path is given,
// the CBR endpoint otherwise. The fetch window spans the settlement
// dates with a two-week lead so the backward lookup has a rate for the
// earliest trade.
func loadRates(ctx context.Context, opts Options, trades []model.Trade) (*rates.Table, error) {
	if opts.RatesPath != "" {
		return rates.LoadXLSX(opts.RatesPath, opts.Currency)
	}

	from, to := settlementSpan(trades)
	fetcher := rates.NewFetcher(opts.RatesBaseURL)
	return fetcher.FetchRange(ctx, opts.Currency, from.AddDate(0, 0, -14), to)
}

// settlementSpan returns the earliest and latest settlement dates.
func settlementSpan(trades []model.Trade) (time.Time, time.Time) {
	from, to := trades[0].SettleDate, trades[0].SettleDate
	for _, t := range trades[1:] {
		if t.SettleDate.Before(from) {
			from = t.SettleDate
		}
		if t.SettleDate.After(to) {
			to = t.SettleDate
		}
	}
	return from, to
}

// loadPrevious loads and merges the prior-period reports, keeping only
// the purchases usable for coverage.
func loadPrevious(paths []string, currency string) ([]model.Trade, error) {
	var all []model.Trade
	for _, path := range paths {
		trades, err := ingest.ForFile(path).Load(path)
		if err != nil {
			return nil, err
		}
		all = append(all, trades...)
	}
	calc.SortPreviousTrades(all)
	return calc.FilterPreviousBuys(all, currency), nil
}

func negatives(summary []model.TickerSummary) bool {
	for _, s := range summary {
		if s.Balance.IsNegative() {
			return true
		}
	}
	return false
}
