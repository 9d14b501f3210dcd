package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Operation classifies a brokerage trade. The canonical values keep the
// wording used by the source reports, because exported CSVs and the PDF
// report must round-trip the exact labels the broker (and the tax office)
// expects.
type Operation string

const (
	// OpBuy is a purchase of securities.
	OpBuy Operation = "Покупка"

	// OpSell is a sale of securities.
	OpSell Operation = "Продажа"

	// OpPriorBuy marks a purchase pulled in from a prior-period report to
	// cover a negative balance. It behaves like OpBuy in every calculation
	// but stays visually distinct in exports.
	OpPriorBuy Operation = "Покупка (прошлый период)"
)

// String returns the report-facing label of the operation.
func (o Operation) String() string {
	return string(o)
}

// IsBuy reports whether the operation increases the position. This covers
// both current-period and prior-period purchases.
func (o Operation) IsBuy() bool {
	return o == OpBuy || o == OpPriorBuy
}

// IsSell reports whether the operation decreases the position.
func (o Operation) IsSell() bool {
	return o == OpSell
}

// ParseOperation normalizes a raw operation cell into an Operation.
//
// Brokerage reports are inconsistent about wording: the same purchase can
// appear as "Покупка", "Купля" or "Buy" depending on the report
// generation and language. Substring matching follows the rules the
// broker's own statements obey; anything unrecognized, including
// "Открытие позиции", is preserved verbatim so it survives into exports
// for manual inspection. Opening labels count as purchases only when
// filtering prior-period reports for coverage.
func ParseOperation(raw string) Operation {
	op := strings.TrimSpace(raw)
	lower := strings.ToLower(op)

	switch {
	case strings.Contains(lower, "покуп"),
		strings.Contains(lower, "купл"),
		strings.Contains(lower, "buy"):
		return OpBuy
	case strings.Contains(lower, "продаж"),
		strings.Contains(lower, "sell"):
		return OpSell
	default:
		return Operation(op)
	}
}

// Trade is a single row of a brokerage report, in the trade currency.
// Amount and Fee are unsigned — the direction lives in Operation.
type Trade struct {
	// Ticker is the security identifier. For PDF-sourced trades this is
	// the composite "TICKER.VENUE" form used by newer report layouts.
	Ticker string `json:"ticker"`

	// Operation is the normalized trade direction.
	Operation Operation `json:"operation"`

	// Quantity is the absolute number of securities traded.
	Quantity decimal.Decimal `json:"quantity"`

	// Price is the per-unit price in the trade currency.
	Price decimal.Decimal `json:"price"`

	// Currency is the trade currency code (e.g. "USD").
	Currency string `json:"currency"`

	// Amount is the absolute total trade amount in the trade currency.
	Amount decimal.Decimal `json:"amount"`

	// Fee is the broker commission in FeeCurrency. For PDF-sourced trades
	// this already includes the exchange fee.
	Fee decimal.Decimal `json:"fee"`

	// FeeCurrency is the commission currency code.
	FeeCurrency string `json:"feeCurrency"`

	// TradeDate is when the trade was executed.
	TradeDate time.Time `json:"tradeDate"`

	// SettleDate is the settlement date. Rouble conversion uses the CBR
	// rate effective on this date, not the trade date.
	SettleDate time.Time `json:"settleDate"`
}

// SignedQuantity returns the quantity with the position sign applied:
// positive for buys, negative for everything else. Unrecognized verbatim
// operations reduce the balance, the same convention the balance column
// of the source reports follows.
func (t Trade) SignedQuantity() decimal.Decimal {
	if t.Operation.IsBuy() {
		return t.Quantity
	}
	return t.Quantity.Neg()
}

// ProcessedTrade is a Trade with its rouble conversion attached.
//
// HasRate is false for trades that have not been merged with the rate table
// yet — coverage trades injected from a prior period start in that state and
// are backfilled in a second pass.
type ProcessedTrade struct {
	Trade

	// Rate is the CBR exchange rate effective on the settlement date.
	Rate decimal.Decimal `json:"rate"`

	// HasRate indicates whether Rate and the rouble fields are populated.
	HasRate bool `json:"hasRate"`

	// AmountRUB is the signed trade amount in roubles: negative for buys,
	// positive for sells, quantized to 0.01.
	AmountRUB decimal.Decimal `json:"amountRub"`

	// FeeRUB is the commission converted to roubles, quantized to 0.01.
	FeeRUB decimal.Decimal `json:"feeRub"`

	// NetRUB is AmountRUB minus FeeRUB, quantized to 0.01.
	NetRUB decimal.Decimal `json:"netRub"`
}

// TickerSummary aggregates all trades of one ticker.
type TickerSummary struct {
	// Ticker is the security identifier.
	Ticker string `json:"ticker"`

	// Balance is the signed quantity left at the end of the period.
	// Zero means the position is closed; negative means more was sold
	// than bought and a prior-period report is needed.
	Balance decimal.Decimal `json:"balance"`

	// ResultRUB is the sum of NetRUB over the ticker's trades, quantized
	// to 0.01. Trades without a rate contribute nothing.
	ResultRUB decimal.Decimal `json:"resultRub"`
}

// ClosedTotalsTicker is the pseudo-ticker of the grand totals row appended
// to the closed-positions summary.
const ClosedTotalsTicker = "Итого"

// ClosedPosition is the realized result of one fully closed ticker
// (Balance == 0), all figures in roubles quantized to 0.01.
type ClosedPosition struct {
	// Ticker is the security identifier, or ClosedTotalsTicker for the
	// appended grand totals row.
	Ticker string `json:"ticker"`

	// Purchases is the total spent on buys (positive).
	Purchases decimal.Decimal `json:"purchases"`

	// Sales is the total received from sells.
	Sales decimal.Decimal `json:"sales"`

	// Fees is the total broker commission.
	Fees decimal.Decimal `json:"fees"`

	// Result is Sales - Purchases - Fees.
	Result decimal.Decimal `json:"result"`
}

// IsTotals reports whether this row is the appended grand totals row.
func (c ClosedPosition) IsTotals() bool {
	return c.Ticker == ClosedTotalsTicker
}

// SecurityBalance is an end-of-period holding from the report's
// Securities sheet.
type SecurityBalance struct {
	// Ticker is the security identifier.
	Ticker string `json:"ticker"`

	// EndQuantity is the broker-reported quantity at period end.
	EndQuantity decimal.Decimal `json:"endQuantity"`
}

// ReconciliationRow compares a broker-reported balance against the balance
// computed from the trade log.
type ReconciliationRow struct {
	// Ticker is the security identifier.
	Ticker string `json:"ticker"`

	// Computed is the balance derived from the trades, when present.
	Computed decimal.Decimal `json:"computed"`

	// HasComputed indicates the ticker appeared in the trade log.
	HasComputed bool `json:"hasComputed"`

	// Reported is the broker-stated end-of-period quantity, when present.
	Reported decimal.Decimal `json:"reported"`

	// HasReported indicates the ticker appeared on the Securities sheet.
	HasReported bool `json:"hasReported"`
}

// Sufficient reports whether the trade log fully explains the reported
// holding. That is the case when both sides agree, or when the computed
// balance is zero and the broker reports nothing for the ticker.
func (r ReconciliationRow) Sufficient() bool {
	if r.HasComputed && !r.HasReported {
		return r.Computed.IsZero()
	}
	if r.HasComputed && r.HasReported {
		return r.Computed.Equal(r.Reported)
	}
	return false
}

// Report is the full outcome of processing one brokerage report: the
// converted trade log plus both summaries. It is what the exporters and
// the web UI consume.
type Report struct {
	// Currency is the trade currency the report was filtered to.
	Currency string `json:"currency"`

	// Trades is the rouble-converted trade log, including any coverage
	// trades injected from prior periods.
	Trades []ProcessedTrade `json:"trades"`

	// Summary holds one row per ticker, sorted by ticker.
	Summary []TickerSummary `json:"summary"`

	// Closed holds the closed-position results plus a grand totals row.
	// Empty when no ticker closed during the period.
	Closed []ClosedPosition `json:"closed"`
}

// NegativeTickers returns the summary rows with a negative balance,
// i.e. tickers that need prior-period coverage.
func (r *Report) NegativeTickers() []TickerSummary {
	var out []TickerSummary
	for _, s := range r.Summary {
		if s.Balance.IsNegative() {
			out = append(out, s)
		}
	}
	return out
}

// ExitCode defines the CLI exit codes. These codes allow scripts, systemd
// units and CI systems to programmatically determine the outcome of a run.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitToolMissing indicates a required external tool from the launch
	// manifest was not found on PATH. The launcher aborts before any
	// setup when this happens.
	ExitToolMissing ExitCode = 2

	// ExitInputNotFound indicates a report or rates file does not exist
	// or could not be opened.
	ExitInputNotFound ExitCode = 3

	// ExitParseError indicates a report or rates file was readable but
	// could not be parsed (missing sheet, malformed rows).
	ExitParseError ExitCode = 4

	// ExitExportError indicates writing the CSV/PDF outputs failed.
	ExitExportError ExitCode = 5

	// ExitServerError indicates the embedded web server failed to start
	// or terminated abnormally.
	ExitServerError ExitCode = 6
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
