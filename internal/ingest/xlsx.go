package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mkraev/freedom-calculator/internal/model"
)

// Column headers of the broker's xlsx trade sheet. Headers in real files
// occasionally carry stray whitespace, so lookups trim both sides.
const (
	colTicker      = "Тикер"
	colOperation   = "Операция"
	colQuantity    = "Количество"
	colPrice       = "Цена"
	colCurrency    = "Валюта"
	colAmount      = "Сумма"
	colFee         = "Комиссия"
	colFeeCurrency = "Валюта комиссии"
	colTradeDate   = "Дата сделки"
	colSettleDate  = "Расчеты"
)

// Headers of the Securities sheet.
const (
	colEndQuantity = "На конец"
)

// tradeColumns is the full set the loader maps; missing ones are filled
// with defaults rather than failing the whole report.
var tradeColumns = []string{
	colTicker, colOperation, colQuantity, colPrice, colCurrency,
	colAmount, colFee, colFeeCurrency, colTradeDate, colSettleDate,
}

// XLSXLoader reads the broker's xlsx export. The trades live on the first
// sheet whose name contains "Trades"; the exact sheet name varies between
// report generations ("Trades", "TradesUSD", ...).
type XLSXLoader struct{}

// Load reads all trades from the workbook at path.
func (l *XLSXLoader) Load(path string) ([]model.Trade, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInputNotFound, "failed to open broker report", err)
	}
	defer func() { _ = f.Close() }()

	sheet, err := findSheet(f, "Trades")
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Str("sheet", sheet).Msg("loading broker report")

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitParseError, "failed to read trades sheet", err)
	}
	if len(rows) < 2 {
		return nil, model.NewCLIError(model.ExitParseError, "trades sheet is empty")
	}

	cols := headerIndex(rows[0])
	warnMissingColumns(cols, path)

	var trades []model.Trade
	for i, row := range rows[1:] {
		ticker := cellAt(row, cols, colTicker)
		if ticker == "" {
			continue
		}

		t := model.Trade{
			Ticker:      ticker,
			Operation:   model.ParseOperation(cellAt(row, cols, colOperation)),
			Quantity:    decimalAt(row, cols, colQuantity, i).Abs(),
			Price:       decimalAt(row, cols, colPrice, i),
			Currency:    defaultString(cellAt(row, cols, colCurrency), "USD"),
			Amount:      decimalAt(row, cols, colAmount, i).Abs(),
			Fee:         decimalAt(row, cols, colFee, i),
			FeeCurrency: defaultString(cellAt(row, cols, colFeeCurrency), "USD"),
			TradeDate:   dateAt(row, cols, colTradeDate, i),
			SettleDate:  dateAt(row, cols, colSettleDate, i),
		}
		trades = append(trades, t)
	}

	log.Info().Str("path", path).Int("trades", len(trades)).Msg("broker report loaded")
	return trades, nil
}

// LoadSecurities reads end-of-period balances from the workbook's
// Securities sheet.
func LoadSecurities(path string) ([]model.SecurityBalance, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInputNotFound, "failed to open broker report", err)
	}
	defer func() { _ = f.Close() }()

	sheet, err := findSheet(f, "Securities")
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitParseError, "failed to read securities sheet", err)
	}
	if len(rows) < 2 {
		return nil, model.NewCLIError(model.ExitParseError, "securities sheet is empty")
	}

	cols := headerIndex(rows[0])
	if _, ok := cols[colTicker]; !ok {
		return nil, model.NewCLIError(model.ExitParseError,
			fmt.Sprintf("securities sheet is missing column %q", colTicker))
	}
	if _, ok := cols[colEndQuantity]; !ok {
		return nil, model.NewCLIError(model.ExitParseError,
			fmt.Sprintf("securities sheet is missing column %q", colEndQuantity))
	}

	var balances []model.SecurityBalance
	for i, row := range rows[1:] {
		ticker := cellAt(row, cols, colTicker)
		if ticker == "" {
			continue
		}
		qty, err := model.ParseCellDecimal(cellAt(row, cols, colEndQuantity))
		if err != nil {
			log.Warn().Int("row", i+2).Str("ticker", ticker).Err(err).
				Msg("skipping securities row with bad quantity")
			continue
		}
		balances = append(balances, model.SecurityBalance{Ticker: ticker, EndQuantity: qty})
	}

	log.Info().Str("path", path).Str("sheet", sheet).Int("balances", len(balances)).
		Msg("securities balances loaded")
	return balances, nil
}

// findSheet returns the first sheet whose name contains the given marker.
func findSheet(f *excelize.File, marker string) (string, error) {
	for _, name := range f.GetSheetList() {
		if strings.Contains(name, marker) {
			return name, nil
		}
	}
	return "", model.NewCLIError(model.ExitParseError,
		fmt.Sprintf("workbook has no sheet containing %q", marker))
}

// headerIndex maps trimmed header names to column positions.
func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	return cols
}

// warnMissingColumns logs each expected trade column the sheet lacks.
// The corresponding fields fall back to defaults (zero numbers, USD
// currencies, load-time dates) so partially exported reports still load.
func warnMissingColumns(cols map[string]int, path string) {
	var missing []string
	for _, c := range tradeColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		log.Warn().Str("path", path).Strs("columns", missing).
			Msg("trades sheet is missing columns, using defaults")
	}
}

func cellAt(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// decimalAt parses a numeric cell, returning zero (with a warning) for
// unparseable values — matching the permissive coercion of the original
// pipeline.
func decimalAt(row []string, cols map[string]int, name string, rowIdx int) decimal.Decimal {
	raw := cellAt(row, cols, name)
	if raw == "" {
		return decimal.Zero
	}
	d, err := model.ParseCellDecimal(raw)
	if err != nil {
		log.Warn().Int("row", rowIdx+2).Str("column", name).Str("value", raw).
			Msg("unparseable number, using 0")
		return decimal.Zero
	}
	return d
}

// dateAt parses a date cell, defaulting to the load time when the cell is
// empty or unparseable.
func dateAt(row []string, cols map[string]int, name string, rowIdx int) time.Time {
	raw := cellAt(row, cols, name)
	if raw != "" {
		if ts, err := model.ParseCellDate(raw); err == nil {
			return ts
		}
		log.Warn().Int("row", rowIdx+2).Str("column", name).Str("value", raw).
			Msg("unparseable date, using load time")
	}
	return time.Now().UTC()
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
