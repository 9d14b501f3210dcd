package calc

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mkraev/freedom-calculator/internal/model"
)

// Summarize aggregates the processed trades into one row per ticker,
// sorted by ticker: the signed quantity balance and the total financial
// result in roubles.
func Summarize(processed []model.ProcessedTrade) []model.TickerSummary {
	type acc struct {
		balance decimal.Decimal
		result  decimal.Decimal
	}

	byTicker := map[string]*acc{}
	var order []string
	for _, pt := range processed {
		a, ok := byTicker[pt.Ticker]
		if !ok {
			a = &acc{}
			byTicker[pt.Ticker] = a
			order = append(order, pt.Ticker)
		}
		a.balance = a.balance.Add(pt.SignedQuantity())
		if pt.HasRate {
			a.result = a.result.Add(pt.NetRUB)
		}
	}

	sort.Strings(order)
	out := make([]model.TickerSummary, 0, len(order))
	for _, ticker := range order {
		a := byTicker[ticker]
		out = append(out, model.TickerSummary{
			Ticker:    ticker,
			Balance:   a.balance,
			ResultRUB: a.result.Round(2),
		})
	}
	return out
}

// ClosedPositions computes the realized result for every ticker whose
// balance is zero, plus a grand totals row. Returns nil when nothing
// closed during the period.
func ClosedPositions(processed []model.ProcessedTrade, summary []model.TickerSummary) []model.ClosedPosition {
	var out []model.ClosedPosition
	var totals model.ClosedPosition

	for _, s := range summary {
		if !s.Balance.IsZero() {
			continue
		}

		var purchases, sales, fees decimal.Decimal
		for _, pt := range processed {
			if pt.Ticker != s.Ticker {
				continue
			}
			switch {
			case pt.Operation == model.OpBuy:
				// Buy amounts are negative money flow; the purchases
				// column reports them as positive spend. Coverage
				// trades from a prior period belong to that period's
				// spend and stay out of this column, though their fees
				// are still paid now.
				purchases = purchases.Add(pt.AmountRUB.Neg())
			case pt.Operation.IsSell():
				sales = sales.Add(pt.AmountRUB)
			}
			fees = fees.Add(pt.FeeRUB)
		}

		purchases = purchases.Round(2)
		sales = sales.Round(2)
		fees = fees.Round(2)
		result := sales.Sub(purchases).Sub(fees).Round(2)

		out = append(out, model.ClosedPosition{
			Ticker:    s.Ticker,
			Purchases: purchases,
			Sales:     sales,
			Fees:      fees,
			Result:    result,
		})

		totals.Purchases = totals.Purchases.Add(purchases)
		totals.Sales = totals.Sales.Add(sales)
		totals.Fees = totals.Fees.Add(fees)
		totals.Result = totals.Result.Add(result)
	}

	if len(out) == 0 {
		return nil
	}

	totals.Ticker = model.ClosedTotalsTicker
	totals.Purchases = totals.Purchases.Round(2)
	totals.Sales = totals.Sales.Round(2)
	totals.Fees = totals.Fees.Round(2)
	totals.Result = totals.Result.Round(2)
	return append(out, totals)
}

// Reconcile outer-joins computed balances with the broker-reported
// Securities sheet, sorted by ticker. Callers filter on Sufficient() to
// find tickers whose trade history does not explain the reported holding.
func Reconcile(summary []model.TickerSummary, reported []model.SecurityBalance) []model.ReconciliationRow {
	rows := map[string]*model.ReconciliationRow{}
	var order []string

	get := func(ticker string) *model.ReconciliationRow {
		r, ok := rows[ticker]
		if !ok {
			r = &model.ReconciliationRow{Ticker: ticker}
			rows[ticker] = r
			order = append(order, ticker)
		}
		return r
	}

	for _, s := range summary {
		r := get(s.Ticker)
		r.Computed = s.Balance
		r.HasComputed = true
	}
	for _, b := range reported {
		r := get(b.Ticker)
		r.Reported = b.EndQuantity
		r.HasReported = true
	}

	sort.Strings(order)
	out := make([]model.ReconciliationRow, 0, len(order))
	for _, ticker := range order {
		out = append(out, *rows[ticker])
	}
	return out
}
