package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkraev/freedom-calculator/internal/model"
)

func processedTrade(t *testing.T, ticker string, op model.Operation, qty, netRUB string) model.ProcessedTrade {
	t.Helper()
	pt := model.ProcessedTrade{Trade: model.Trade{
		Ticker:    ticker,
		Operation: op,
		Quantity:  dec(t, qty),
	}}
	pt.HasRate = true
	pt.NetRUB = dec(t, netRUB)
	return pt
}

func TestSummarize(t *testing.T) {
	processed := []model.ProcessedTrade{
		processedTrade(t, "TSLA.US", model.OpBuy, "5", "-50000"),
		processedTrade(t, "AAPL.US", model.OpBuy, "10", "-70140"),
		processedTrade(t, "AAPL.US", model.OpSell, "10", "76860"),
		processedTrade(t, "TSLA.US", model.OpSell, "3", "31000"),
	}

	summary := Summarize(processed)
	require.Len(t, summary, 2)

	assert.Equal(t, "AAPL.US", summary[0].Ticker, "summary is sorted by ticker")
	assert.True(t, summary[0].Balance.IsZero())
	assert.True(t, summary[0].ResultRUB.Equal(dec(t, "6720.00")))

	assert.Equal(t, "TSLA.US", summary[1].Ticker)
	assert.True(t, summary[1].Balance.Equal(dec(t, "2")))
	assert.True(t, summary[1].ResultRUB.Equal(dec(t, "-19000.00")))
}

func TestSummarizeExcludesUnratedFromResult(t *testing.T) {
	unrated := model.ProcessedTrade{Trade: model.Trade{
		Ticker:    "AAPL.US",
		Operation: model.OpBuy,
		Quantity:  dec(t, "4"),
	}}

	summary := Summarize([]model.ProcessedTrade{
		processedTrade(t, "AAPL.US", model.OpSell, "4", "28000"),
		unrated,
	})
	require.Len(t, summary, 1)

	assert.True(t, summary[0].Balance.IsZero(), "quantity counts even without a rate")
	assert.True(t, summary[0].ResultRUB.Equal(dec(t, "28000.00")), "money does not")
}

func TestSummarizeNegativeBalance(t *testing.T) {
	summary := Summarize([]model.ProcessedTrade{
		processedTrade(t, "NVDA.US", model.OpSell, "7", "49000"),
		processedTrade(t, "NVDA.US", model.OpBuy, "3", "-21000"),
	})
	require.Len(t, summary, 1)
	assert.True(t, summary[0].Balance.Equal(dec(t, "-4")))
}

func TestSummarizeVerbatimOperationReducesBalance(t *testing.T) {
	summary := Summarize([]model.ProcessedTrade{
		processedTrade(t, "AAPL.US", model.ParseOperation("Открытие позиции"), "10", "0"),
	})
	require.Len(t, summary, 1)
	assert.True(t, summary[0].Balance.Equal(dec(t, "-10")),
		"unrecognized labels subtract like the balance column of the source reports")
}

func closedTrade(t *testing.T, ticker string, op model.Operation, qty, amountRUB, feeRUB string) model.ProcessedTrade {
	t.Helper()
	pt := processedTrade(t, ticker, op, qty, "0")
	pt.AmountRUB = dec(t, amountRUB)
	pt.FeeRUB = dec(t, feeRUB)
	pt.NetRUB = pt.AmountRUB.Sub(pt.FeeRUB)
	return pt
}

func TestClosedPositions(t *testing.T) {
	processed := []model.ProcessedTrade{
		closedTrade(t, "AAPL.US", model.OpBuy, "10", "-70000", "140"),
		closedTrade(t, "AAPL.US", model.OpSell, "10", "77000", "140"),
		// Still open, must not appear.
		closedTrade(t, "TSLA.US", model.OpBuy, "5", "-50000", "100"),
	}
	summary := Summarize(processed)

	closed := ClosedPositions(processed, summary)
	require.Len(t, closed, 2, "one closed ticker plus the totals row")

	aapl := closed[0]
	assert.Equal(t, "AAPL.US", aapl.Ticker)
	assert.False(t, aapl.IsTotals())
	assert.True(t, aapl.Purchases.Equal(dec(t, "70000.00")), "purchases are reported as positive spend")
	assert.True(t, aapl.Sales.Equal(dec(t, "77000.00")))
	assert.True(t, aapl.Fees.Equal(dec(t, "280.00")))
	assert.True(t, aapl.Result.Equal(dec(t, "6720.00")))

	totals := closed[1]
	assert.True(t, totals.IsTotals())
	assert.Equal(t, model.ClosedTotalsTicker, totals.Ticker)
	assert.True(t, totals.Result.Equal(dec(t, "6720.00")))
}

func TestClosedPositionsNoneClosed(t *testing.T) {
	processed := []model.ProcessedTrade{
		closedTrade(t, "TSLA.US", model.OpBuy, "5", "-50000", "100"),
	}
	assert.Nil(t, ClosedPositions(processed, Summarize(processed)))
}

func TestClosedPositionsExcludePriorPurchases(t *testing.T) {
	processed := []model.ProcessedTrade{
		closedTrade(t, "NVDA.US", model.OpSell, "4", "28000", "50"),
		closedTrade(t, "NVDA.US", model.OpPriorBuy, "4", "-20000", "30"),
	}
	closed := ClosedPositions(processed, Summarize(processed))
	require.Len(t, closed, 2)

	assert.True(t, closed[0].Purchases.IsZero(),
		"coverage purchases belong to the prior period's spend")
	assert.True(t, closed[0].Fees.Equal(dec(t, "80.00")),
		"their fees are still paid in this period")
	assert.True(t, closed[0].Result.Equal(dec(t, "27920.00")))
}

func TestReconcile(t *testing.T) {
	summary := []model.TickerSummary{
		{Ticker: "AAPL.US", Balance: dec(t, "10")},
		{Ticker: "TSLA.US", Balance: dec(t, "2")},
	}
	reported := []model.SecurityBalance{
		{Ticker: "AAPL.US", EndQuantity: dec(t, "10")},
		{Ticker: "NVDA.US", EndQuantity: dec(t, "3")},
	}

	rows := Reconcile(summary, reported)
	require.Len(t, rows, 3)

	assert.Equal(t, "AAPL.US", rows[0].Ticker)
	assert.True(t, rows[0].HasComputed)
	assert.True(t, rows[0].HasReported)
	assert.True(t, rows[0].Sufficient())

	assert.Equal(t, "NVDA.US", rows[1].Ticker, "reported-only tickers survive the join")
	assert.False(t, rows[1].HasComputed)
	assert.False(t, rows[1].Sufficient())

	assert.Equal(t, "TSLA.US", rows[2].Ticker, "computed-only tickers survive the join")
	assert.False(t, rows[2].HasReported)
	assert.False(t, rows[2].Sufficient())
}
