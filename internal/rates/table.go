package rates

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkraev/freedom-calculator/internal/model"
)

// Rate is one published exchange rate: roubles per one unit of the foreign
// currency, effective from Date until the next publication.
type Rate struct {
	// Date is the publication date, normalized to midnight UTC.
	Date time.Time

	// Value is the rouble price of one unit of the currency.
	Value decimal.Decimal
}

// Table is an immutable, date-sorted series of rates for one currency.
type Table struct {
	rates []Rate
}

// NewTable builds a Table from the given rates. The input is copied and
// sorted ascending by date; duplicate dates keep the last value seen,
// matching how the CBR corrects intra-day republications.
func NewTable(rs []Rate) *Table {
	sorted := make([]Rate, len(rs))
	copy(sorted, rs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	// Collapse duplicate dates, keeping the later entry.
	dedup := sorted[:0]
	for _, r := range sorted {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(r.Date) {
			dedup[n-1] = r
			continue
		}
		dedup = append(dedup, r)
	}
	return &Table{rates: dedup}
}

// Len returns the number of distinct rate dates in the table.
func (t *Table) Len() int {
	return len(t.rates)
}

// All returns the rates in ascending date order. The returned slice is
// shared; callers must not modify it.
func (t *Table) All() []Rate {
	return t.rates
}

// AsOf returns the rate effective on the given date: the latest published
// rate with a date at or before it. The boolean is false when the table
// has no rate that early, which callers must treat as a lookup miss rather
// than a zero rate.
func (t *Table) AsOf(date time.Time) (decimal.Decimal, bool) {
	day := model.Midnight(date)

	// First index with rate date strictly after the requested day.
	idx := sort.Search(len(t.rates), func(i int) bool {
		return t.rates[i].Date.After(day)
	})
	if idx == 0 {
		return decimal.Decimal{}, false
	}
	return t.rates[idx-1].Value, true
}

// currencyNames maps ISO currency codes to the names the CBR uses in its
// xlsx export ("cdx" column).
var currencyNames = map[string]string{
	"USD": "Доллар США",
	"EUR": "Евро",
	"GBP": "Фунт стерлингов Соединенного королевства",
}

// currencyIDs maps ISO currency codes to the CBR internal currency
// identifiers used by the dynamics XML endpoint.
var currencyIDs = map[string]string{
	"USD": "R01235",
	"EUR": "R01239",
	"GBP": "R01035",
}

// CurrencyName returns the CBR display name for an ISO currency code.
func CurrencyName(code string) (string, error) {
	name, ok := currencyNames[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return "", fmt.Errorf("unsupported currency %q (supported: USD, EUR, GBP)", code)
	}
	return name, nil
}

// CurrencyID returns the CBR internal identifier for an ISO currency code.
func CurrencyID(code string) (string, error) {
	id, ok := currencyIDs[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return "", fmt.Errorf("unsupported currency %q (supported: USD, EUR, GBP)", code)
	}
	return id, nil
}

// ParseDecimal parses a numeric cell from the CBR export.
func ParseDecimal(raw string) (decimal.Decimal, error) {
	return model.ParseCellDecimal(raw)
}

// ParseDate parses a date cell and normalizes it to midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	ts, err := model.ParseCellDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	return model.Midnight(ts), nil
}
