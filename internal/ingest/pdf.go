package ingest

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	ledongthuc "github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"github.com/mkraev/freedom-calculator/internal/model"
)

// PDFLoader reads trades from a text-layer PDF brokerage statement.
//
// The statement is a numbered document; trades live in section
// "5. Информация о совершенных сделках" as one whitespace-separated row
// per trade. Scanned statements without a text layer are not supported.
type PDFLoader struct{}

// Section boundary patterns. The loose fallback exists because older
// statements drop the section numbering.
var (
	tradesSectionStart = regexp.MustCompile(`(?i)5\.\s*Информация о совершенных сделках`)
	tradesSectionLoose = regexp.MustCompile(`(?i)Информация о совершенных сделках|совершенных сделках|сделках`)
	tradesSectionEnd   = regexp.MustCompile(`(?i)6\.\s*Обязательства клиента|6\.\s*[А-Я]`)

	// pageFooter strips trailing "N из M" page markers glued to rows.
	pageFooter = regexp.MustCompile(`\s+\d+\s+из\s+\d+$`)
)

// minTradeFields is the smallest field count a parseable trade row can
// have: seven numeric/label columns, an optional note, then venue path,
// venue, date and time.
const minTradeFields = 11

// Load extracts and parses all trades from the statement at path.
func (l *PDFLoader) Load(path string) ([]model.Trade, error) {
	text, err := extractText(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInputNotFound, "failed to read PDF statement", err)
	}

	section := extractTradesSection(text)
	if section == "" {
		return nil, model.NewCLIError(model.ExitParseError,
			"PDF statement has no trades section")
	}

	var trades []model.Trade
	for _, line := range strings.Split(section, "\n") {
		trade, ok := parseTradeLine(line)
		if !ok {
			continue
		}
		trades = append(trades, trade)
	}

	if len(trades) == 0 {
		return nil, model.NewCLIError(model.ExitParseError,
			"no trades could be parsed from the PDF statement")
	}

	log.Info().Str("path", path).Int("trades", len(trades)).Msg("PDF statement loaded")
	return trades, nil
}

// extractText concatenates the text layer of every page.
func extractText(path string) (string, error) {
	f, r, err := ledongthuc.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// extractTradesSection returns the raw text between the trades section
// header and the start of section 6 (or the document end).
func extractTradesSection(text string) string {
	loc := tradesSectionStart.FindStringIndex(text)
	if loc == nil {
		loc = tradesSectionLoose.FindStringIndex(text)
	}
	if loc == nil {
		return ""
	}

	rest := text[loc[1]:]
	if end := tradesSectionEnd.FindStringIndex(rest); end != nil {
		rest = rest[:end[0]]
	}
	return rest
}

// parseTradeLine parses one trade row. Returns ok=false for blank lines,
// table headers, section markers and rows that do not fit the grammar.
//
// Row layout (whitespace separated):
//
//	TICKER OP PRICE QTY AMOUNT BROKER_FEE EXCHANGE_FEE [NOTE...] PATH VENUE DATE TIME
func parseTradeLine(line string) (model.Trade, bool) {
	line = pageFooter.ReplaceAllString(strings.TrimSpace(line), "")

	if line == "" || strings.Contains(line, "Тикер |Вид |") || strings.HasPrefix(line, "5.") {
		return model.Trade{}, false
	}

	parts := strings.Fields(line)
	if len(parts) < minTradeFields {
		return model.Trade{}, false
	}

	trade, err := buildTrade(parts)
	if err != nil {
		log.Warn().Str("line", line).Err(err).Msg("skipping unparseable trade row")
		return model.Trade{}, false
	}
	return trade, true
}

// buildTrade assembles a Trade from a tokenized row.
func buildTrade(parts []string) (model.Trade, error) {
	price, err := model.ParseCellDecimal(parts[2])
	if err != nil {
		return model.Trade{}, fmt.Errorf("price: %w", err)
	}
	quantity, err := model.ParseCellDecimal(strings.ReplaceAll(parts[3], ",", ""))
	if err != nil {
		return model.Trade{}, fmt.Errorf("quantity: %w", err)
	}
	amount, err := model.ParseCellDecimal(strings.ReplaceAll(parts[4], ",", ""))
	if err != nil {
		return model.Trade{}, fmt.Errorf("amount: %w", err)
	}
	brokerFee, err := model.ParseCellDecimal(parts[5])
	if err != nil {
		return model.Trade{}, fmt.Errorf("broker fee: %w", err)
	}
	exchangeFee, err := model.ParseCellDecimal(parts[6])
	if err != nil {
		return model.Trade{}, fmt.Errorf("exchange fee: %w", err)
	}

	// Trailing fixed fields: venue path, venue, date, time. The note (if
	// any) occupies everything between the fees and the venue path, and
	// is not carried into the trade record.
	venue := parts[len(parts)-3]
	when, err := model.ParseCellDate(parts[len(parts)-2] + " " + parts[len(parts)-1])
	if err != nil {
		return model.Trade{}, fmt.Errorf("timestamp: %w", err)
	}

	// Newer xlsx reports key tickers as "TICKER.VENUE"; the PDF keeps
	// them separate, so the venue is appended here to make both formats
	// aggregate under the same key.
	ticker := parts[0] + "." + venue

	return model.Trade{
		Ticker:      ticker,
		Operation:   model.ParseOperation(parts[1]),
		Quantity:    quantity.Abs(),
		Price:       price,
		Currency:    "USD",
		Amount:      amount.Abs(),
		Fee:         brokerFee.Add(exchangeFee).Round(2),
		FeeCurrency: "USD",
		TradeDate:   when,
		SettleDate:  when,
	}, nil
}
