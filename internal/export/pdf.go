package export

import (
	"bytes"
	"os"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog/log"

	"github.com/mkraev/freedom-calculator/internal/model"
)

// fontCandidates are probed in order for a Cyrillic-capable TTF. The
// first one found on disk is embedded; otherwise the built-in Helvetica
// is used with a warning (Cyrillic text degrades but the report still
// renders).
var fontCandidates = []string{
	"fonts/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
}

const reportFont = "report"

// WritePDF renders the closed-positions report to path.
func WritePDF(report *model.Report, path string) error {
	data, err := RenderPDF(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return model.WrapCLIError(model.ExitExportError, "failed to write pdf report", err)
	}
	log.Info().Str("path", path).Msg("wrote pdf report")
	return nil
}

// RenderPDF renders the closed-positions report into memory. One page
// section per closed ticker with its purchases and sales side by side,
// then the overall totals.
func RenderPDF(report *model.Report) ([]byte, error) {
	if len(report.Closed) == 0 {
		return nil, model.NewCLIError(model.ExitExportError, "no closed positions to report")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	font := resolveFont(pdf)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont(font, "", 16)
	pdf.CellFormat(0, 10, "Закрытые позиции", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	for _, c := range report.Closed {
		if c.IsTotals() {
			continue
		}
		writeTickerSection(pdf, font, report, c)
	}

	writeTotals(pdf, font, report)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, model.WrapCLIError(model.ExitExportError, "failed to render pdf report", err)
	}
	return buf.Bytes(), nil
}

// resolveFont registers the first available candidate TTF and returns
// the font family to use.
func resolveFont(pdf *fpdf.Fpdf) string {
	for _, path := range fontCandidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		pdf.AddUTF8Font(reportFont, "", path)
		if pdf.Err() {
			log.Warn().Str("path", path).Msg("failed to embed font, trying next candidate")
			pdf.ClearError()
			continue
		}
		return reportFont
	}
	log.Warn().Msg("no cyrillic font found, falling back to the built-in Helvetica")
	return "Helvetica"
}

// writeTickerSection renders one closed ticker: a header with the
// colored result, then purchases on the left and sales on the right.
func writeTickerSection(pdf *fpdf.Fpdf, font string, report *model.Report, c model.ClosedPosition) {
	// A section needs roughly 60mm; start a fresh page when short.
	if pdf.GetY() > 220 {
		pdf.AddPage()
	}

	pdf.SetFont(font, "", 13)
	pdf.CellFormat(60, 8, c.Ticker, "", 0, "L", false, 0, "")

	setResultColor(pdf, c.Result.IsNegative())
	pdf.CellFormat(0, 8, c.Result.StringFixed(2)+" RUB", "", 1, "R", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	top := pdf.GetY()
	buyBottom := writeTradeTable(pdf, font, 10, top, "Покупки", tickerTrades(report, c.Ticker, true))
	sellBottom := writeTradeTable(pdf, font, 105, top, "Продажи", tickerTrades(report, c.Ticker, false))

	bottom := buyBottom
	if sellBottom > bottom {
		bottom = sellBottom
	}
	pdf.SetXY(10, bottom+6)
}

// writeTradeTable renders one side of a ticker section at the given
// origin and returns the bottom y coordinate.
func writeTradeTable(pdf *fpdf.Fpdf, font string, x, y float64, title string, trades []model.ProcessedTrade) float64 {
	widths := []float64{22, 14, 18, 18, 20}
	headers := []string{"Дата", "Кол-во", "Цена", "Ком. RUB", "Итог RUB"}

	pdf.SetXY(x, y)
	pdf.SetFont(font, "", 10)
	pdf.CellFormat(sum(widths), 6, title, "", 2, "L", false, 0, "")

	pdf.SetFont(font, "", 8)
	pdf.SetFillColor(235, 235, 235)
	pdf.SetX(x)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 5, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(5)

	for _, pt := range trades {
		pdf.SetX(x)
		cells := []string{
			pt.SettleDate.Format(dateFormat),
			pt.Quantity.String(),
			pt.Price.StringFixed(2),
			pt.FeeRUB.StringFixed(2),
			pt.NetRUB.StringFixed(2),
		}
		for i, cell := range cells {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 5, cell, "1", 0, align, false, 0, "")
		}
		pdf.Ln(5)
	}
	return pdf.GetY()
}

// writeTotals renders the grand totals table from the Итого row.
func writeTotals(pdf *fpdf.Fpdf, font string, report *model.Report) {
	var totals model.ClosedPosition
	for _, c := range report.Closed {
		if c.IsTotals() {
			totals = c
		}
	}

	if pdf.GetY() > 240 {
		pdf.AddPage()
	}
	pdf.Ln(4)
	pdf.SetFont(font, "", 13)
	pdf.CellFormat(0, 8, "Итого", "", 1, "L", false, 0, "")

	rows := [][2]string{
		{"Покупки", totals.Purchases.StringFixed(2)},
		{"Продажи", totals.Sales.StringFixed(2)},
		{"Комиссии", totals.Fees.StringFixed(2)},
		{"Результат", totals.Result.StringFixed(2)},
	}

	pdf.SetFont(font, "", 10)
	for i, row := range rows {
		if i == len(rows)-1 {
			setResultColor(pdf, totals.Result.IsNegative())
		}
		pdf.CellFormat(50, 6, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, row[1]+" RUB", "1", 1, "R", false, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
}

// tickerTrades returns the buy or sell trades of one ticker.
func tickerTrades(report *model.Report, ticker string, buys bool) []model.ProcessedTrade {
	var out []model.ProcessedTrade
	for _, pt := range report.Trades {
		if pt.Ticker != ticker {
			continue
		}
		if buys == pt.Operation.IsBuy() {
			out = append(out, pt)
		}
	}
	return out
}

func setResultColor(pdf *fpdf.Fpdf, negative bool) {
	if negative {
		pdf.SetTextColor(180, 30, 30)
	} else {
		pdf.SetTextColor(20, 120, 40)
	}
}

func sum(ws []float64) float64 {
	var total float64
	for _, w := range ws {
		total += w
	}
	return total
}
