package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/mkraev/freedom-calculator/internal/model"
)

// File names inside the output directory.
const (
	DetailsFile = "details.csv"
	SummaryFile = "summary.csv"
	ClosedFile  = "closed_summary.csv"
)

const dateFormat = "02.01.2006"

// WriteCSVs writes the three CSV files into dir, creating it if absent.
func WriteCSVs(report *model.Report, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.WrapCLIError(model.ExitExportError, "failed to create output directory", err)
	}

	if err := writeCSV(filepath.Join(dir, DetailsFile), DetailRows(report)); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(dir, SummaryFile), SummaryRows(report)); err != nil {
		return err
	}
	if len(report.Closed) > 0 {
		if err := writeCSV(filepath.Join(dir, ClosedFile), ClosedRows(report)); err != nil {
			return err
		}
	}

	log.Info().Str("dir", dir).Msg("wrote CSV exports")
	return nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return model.WrapCLIError(model.ExitExportError, "failed to create "+filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return model.WrapCLIError(model.ExitExportError, "failed to write "+filepath.Base(path), err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return model.WrapCLIError(model.ExitExportError, "failed to flush "+filepath.Base(path), err)
	}
	return nil
}

// DetailRows renders the processed trade log as CSV records, header
// first. The web download handlers reuse these row builders.
func DetailRows(report *model.Report) [][]string {
	rows := [][]string{{
		"Тикер", "Операция", "Количество", "Цена", "Валюта", "Сумма",
		"Комиссия", "Дата сделки", "Расчеты", "Курс", "Сумма RUB",
		"Комиссия RUB", "Итог RUB",
	}}
	for _, pt := range report.Trades {
		rows = append(rows, []string{
			pt.Ticker,
			pt.Operation.String(),
			pt.Quantity.String(),
			pt.Price.String(),
			pt.Currency,
			pt.Amount.StringFixed(2),
			pt.Fee.StringFixed(2),
			pt.TradeDate.Format(dateFormat),
			pt.SettleDate.Format(dateFormat),
			pt.Rate.StringFixed(4),
			pt.AmountRUB.StringFixed(2),
			pt.FeeRUB.StringFixed(2),
			pt.NetRUB.StringFixed(2),
		})
	}
	return rows
}

// SummaryRows renders the per-ticker summary.
func SummaryRows(report *model.Report) [][]string {
	rows := [][]string{{"Тикер", "Баланс", "Результат RUB"}}
	for _, s := range report.Summary {
		rows = append(rows, []string{
			s.Ticker,
			s.Balance.String(),
			s.ResultRUB.StringFixed(2),
		})
	}
	return rows
}

// ClosedRows renders the closed positions, including the totals row.
func ClosedRows(report *model.Report) [][]string {
	rows := [][]string{{"Тикер", "Покупки RUB", "Продажи RUB", "Комиссии RUB", "Результат RUB"}}
	for _, c := range report.Closed {
		rows = append(rows, []string{
			c.Ticker,
			c.Purchases.StringFixed(2),
			c.Sales.StringFixed(2),
			c.Fees.StringFixed(2),
			c.Result.StringFixed(2),
		})
	}
	return rows
}

// RenderCSV renders rows with encoding/csv into a byte slice for HTTP
// responses.
func RenderCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, model.WrapCLIError(model.ExitExportError, "failed to render csv", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, model.WrapCLIError(model.ExitExportError, "failed to render csv", err)
	}
	return buf.Bytes(), nil
}
