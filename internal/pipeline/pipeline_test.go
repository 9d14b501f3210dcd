package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mkraev/freedom-calculator/internal/model"
)

func writeWorkbook(t *testing.T, path, sheet string, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellRef, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

var brokerHeader = []interface{}{
	"Тикер", "Операция", "Количество", "Цена", "Валюта", "Сумма",
	"Комиссия", "Валюта комиссии", "Дата сделки", "Расчеты",
}

func writeBroker(t *testing.T, dir string, rows ...[]interface{}) string {
	t.Helper()
	all := append([][]interface{}{brokerHeader}, rows...)
	return writeWorkbook(t, filepath.Join(dir, "broker.xlsx"), "Trades", all)
}

func writeRates(t *testing.T, dir string) string {
	t.Helper()
	return writeWorkbook(t, filepath.Join(dir, "rates.xlsx"), "RC", [][]interface{}{
		{"data", "curs", "cdx"},
		{"01.01.2023", "70,0000", "Доллар США"},
		{"15.01.2023", "72,0000", "Доллар США"},
	})
}

func TestRunRoundTrip(t *testing.T) {
	dir := t.TempDir()
	broker := writeBroker(t, dir,
		[]interface{}{"AAPL.US", "Покупка", "10", "150,00", "USD", "1500,00", "1,50", "USD", "10.01.2023", "12.01.2023"},
		[]interface{}{"AAPL.US", "Продажа", "10", "160,00", "USD", "1600,00", "1,60", "USD", "16.01.2023", "18.01.2023"},
	)

	report, err := Run(context.Background(), Options{
		BrokerPath: broker,
		RatesPath:  writeRates(t, dir),
		Currency:   "USD",
	})
	require.NoError(t, err)

	require.Len(t, report.Trades, 2)
	require.Len(t, report.Summary, 1)
	assert.True(t, report.Summary[0].Balance.IsZero())
	assert.Empty(t, report.NegativeTickers())

	// Buy settles on the 12th at 70, sell on the 18th at 72.
	// Result: 1600*72 - 1500*70 - (1.50*70 + 1.60*72) = 115200 - 105000 - 220.20.
	assert.Equal(t, "9979.80", report.Summary[0].ResultRUB.StringFixed(2))

	require.Len(t, report.Closed, 2, "closed ticker plus totals")
	assert.Equal(t, model.ClosedTotalsTicker, report.Closed[1].Ticker)
	assert.Equal(t, "9979.80", report.Closed[1].Result.StringFixed(2))
}

func TestRunNegativeBalanceWithoutPrevious(t *testing.T) {
	dir := t.TempDir()
	broker := writeBroker(t, dir,
		[]interface{}{"NVDA.US", "Продажа", "5", "100,00", "USD", "500,00", "0,50", "USD", "16.01.2023", "18.01.2023"},
	)

	report, err := Run(context.Background(), Options{
		BrokerPath: broker,
		RatesPath:  writeRates(t, dir),
		Currency:   "USD",
	})
	require.NoError(t, err)

	negative := report.NegativeTickers()
	require.Len(t, negative, 1)
	assert.Equal(t, "NVDA.US", negative[0].Ticker)
	assert.Empty(t, report.Closed, "an oversold ticker is not closed")
}

func TestRunNegativeBalanceCoveredByPrevious(t *testing.T) {
	dir := t.TempDir()
	broker := writeBroker(t, dir,
		[]interface{}{"NVDA.US", "Продажа", "5", "100,00", "USD", "500,00", "0,50", "USD", "16.01.2023", "18.01.2023"},
	)
	previous := writeWorkbook(t, filepath.Join(dir, "previous.xlsx"), "Trades", [][]interface{}{
		brokerHeader,
		{"NVDA.US", "Покупка", "10", "40,00", "USD", "400,00", "0,40", "USD", "01.01.2023", "03.01.2023"},
	})

	report, err := Run(context.Background(), Options{
		BrokerPath:    broker,
		RatesPath:     writeRates(t, dir),
		PreviousPaths: []string{previous},
		Currency:      "USD",
	})
	require.NoError(t, err)

	assert.Empty(t, report.NegativeTickers())
	require.Len(t, report.Trades, 2, "coverage trade is injected")

	coverage := report.Trades[1]
	assert.Equal(t, model.OpPriorBuy, coverage.Operation)
	assert.True(t, coverage.HasRate, "coverage trades get a backfilled rate")
	assert.Equal(t, "70.0000", coverage.Rate.StringFixed(4))

	require.Len(t, report.Closed, 2)
	// Sales 500*72; the pro-rated coverage purchase is prior-period spend
	// and stays out of the purchases column, its fee is still charged:
	// fees 0.50*72 + 0.20*70.
	assert.Equal(t, "35950.00", report.Closed[0].Result.StringFixed(2))
	assert.True(t, report.Closed[0].Purchases.IsZero())
}

func TestRunWrongCurrency(t *testing.T) {
	dir := t.TempDir()
	broker := writeBroker(t, dir,
		[]interface{}{"AAPL.US", "Покупка", "10", "150,00", "USD", "1500,00", "1,50", "USD", "10.01.2023", "12.01.2023"},
	)

	_, err := Run(context.Background(), Options{
		BrokerPath: broker,
		RatesPath:  writeRates(t, dir),
		Currency:   "EUR",
	})
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitParseError, cliErr.Code)
}

func TestRunMissingBroker(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(context.Background(), Options{
		BrokerPath: filepath.Join(dir, "absent.xlsx"),
		RatesPath:  writeRates(t, dir),
		Currency:   "USD",
	})
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitInputNotFound, cliErr.Code)
}

func TestReconcile(t *testing.T) {
	dir := t.TempDir()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Trades"))
	tradeRows := [][]interface{}{
		brokerHeader,
		{"AAPL.US", "Покупка", "10", "150,00", "USD", "1500,00", "1,50", "USD", "10.01.2023", "12.01.2023"},
	}
	for i, row := range tradeRows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Trades", cellRef, &row))
	}
	_, err := f.NewSheet("Securities")
	require.NoError(t, err)
	secRows := [][]interface{}{
		{"Тикер", "На конец"},
		{"AAPL.US", "10"},
		{"MSFT.US", "5"},
	}
	for i, row := range secRows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Securities", cellRef, &row))
	}
	broker := filepath.Join(dir, "broker.xlsx")
	require.NoError(t, f.SaveAs(broker))
	require.NoError(t, f.Close())

	rows, err := Reconcile(Options{BrokerPath: broker})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "AAPL.US", rows[0].Ticker)
	assert.True(t, rows[0].Sufficient())
	assert.Equal(t, "MSFT.US", rows[1].Ticker)
	assert.False(t, rows[1].Sufficient(), "reported holding with no trades is flagged")
}
