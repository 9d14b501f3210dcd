package ingest

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkraev/freedom-calculator/internal/model"
)

// statementText mimics the text layer of a real statement: preamble,
// section 5 with a table header and trade rows (one with a note and a
// page footer), then section 6.
const statementText = `Отчет брокера за период
4. Движение денежных средств
5. Информация о совершенных сделках
Тикер |Вид |Цена |Кол-во |Сумма |Комиссия |Комиссия ТС |Примечание |Путь |Место |Дата
AAPL Покупка 150,25 10 1,502.50 1,50 0,75 W US 10.01.2023 15:30:00
TSLA Продажа 200,00 -5 1,000.00 1,00 0,50 частичное исполнение W US 12.01.2023 11:05:00 3 из 7
короткая строка
6. Обязательства клиента
MSFT Покупка 100,00 1 100.00 0,10 0,05 W US 13.01.2023 10:00:00
`

func TestExtractTradesSection(t *testing.T) {
	section := extractTradesSection(statementText)
	require.NotEmpty(t, section)

	assert.Contains(t, section, "AAPL")
	assert.Contains(t, section, "TSLA")
	assert.NotContains(t, section, "Движение денежных средств")
	assert.NotContains(t, section, "MSFT", "rows after section 6 must be cut off")
}

// TestExtractTradesSectionLooseHeader covers statements without the "5."
// numbering, which match only the loose fallback pattern.
func TestExtractTradesSectionLooseHeader(t *testing.T) {
	text := "шапка\nИнформация о совершенных сделках\nAAPL Покупка 1,00 1 1.00 0,01 0,01 W US 10.01.2023 15:30:00\n"
	section := extractTradesSection(text)
	assert.Contains(t, section, "AAPL")

	// Some layouts shorten the header to just "... сделках".
	short := "шапка\nСведения о сделках\nAAPL Покупка 1,00 1 1.00 0,01 0,01 W US 10.01.2023 15:30:00\n"
	assert.Contains(t, extractTradesSection(short), "AAPL")

	assert.Empty(t, extractTradesSection("документ без сделок"))
}

func TestParseTradeLine(t *testing.T) {
	trade, ok := parseTradeLine("AAPL Покупка 150,25 10 1,502.50 1,50 0,75 W US 10.01.2023 15:30:00")
	require.True(t, ok)

	assert.Equal(t, "AAPL.US", trade.Ticker, "venue is appended to the ticker")
	assert.Equal(t, model.OpBuy, trade.Operation)
	assert.True(t, trade.Price.Equal(decimal.RequireFromString("150.25")))
	assert.True(t, trade.Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, trade.Amount.Equal(decimal.RequireFromString("1502.50")), "thousands comma is stripped")
	assert.True(t, trade.Fee.Equal(decimal.RequireFromString("2.25")), "broker and exchange fees are summed")
	assert.Equal(t, "USD", trade.Currency)
	assert.Equal(t, 10, trade.TradeDate.Day())
	assert.Equal(t, 15, trade.TradeDate.Hour())
}

func TestParseTradeLineWithNoteAndFooter(t *testing.T) {
	trade, ok := parseTradeLine("TSLA Продажа 200,00 -5 1,000.00 1,00 0,50 частичное исполнение W US 12.01.2023 11:05:00 3 из 7")
	require.True(t, ok)

	assert.Equal(t, "TSLA.US", trade.Ticker)
	assert.Equal(t, model.OpSell, trade.Operation)
	assert.True(t, trade.Quantity.Equal(decimal.NewFromInt(5)), "quantity is stored absolute")
	assert.Equal(t, 12, trade.SettleDate.Day())
}

func TestParseTradeLineRejects(t *testing.T) {
	rejects := []string{
		"",
		"   ",
		"Тикер |Вид |Цена |Кол-во",
		"5. Информация о совершенных сделках",
		"короткая строка",
		// Right field count, garbage where the price belongs.
		"AAPL Покупка abc 10 1,502.50 1,50 0,75 x W US 10.01.2023 15:30:00",
	}
	for _, line := range rejects {
		_, ok := parseTradeLine(line)
		assert.False(t, ok, "line=%q", line)
	}
}

func TestPDFLoaderEndToEndOnSection(t *testing.T) {
	// Drive the line loop the same way Load does, without needing a
	// binary PDF fixture.
	section := extractTradesSection(statementText)
	var trades []model.Trade
	for _, line := range strings.Split(section, "\n") {
		if trade, ok := parseTradeLine(line); ok {
			trades = append(trades, trade)
		}
	}

	require.Len(t, trades, 2)
	assert.Equal(t, "AAPL.US", trades[0].Ticker)
	assert.Equal(t, "TSLA.US", trades[1].Ticker)
}

func TestPDFLoaderMissingFile(t *testing.T) {
	_, err := (&PDFLoader{}).Load("/nonexistent/statement.pdf")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitInputNotFound, cliErr.Code)
}
