package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Midnight truncates a timestamp to its calendar date in UTC. Rate dates
// and settlement dates are calendar dates; comparing full timestamps would
// shift as-of lookups across midnight.
func Midnight(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseCellDecimal parses a numeric cell from a CBR export or brokerage
// report. Both use a comma decimal separator and occasionally embed
// grouping spaces (regular or non-breaking), e.g. "1 234,56".
func ParseCellDecimal(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(raw, ",", ".")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', ' ', '\t':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty decimal value")
	}
	return decimal.NewFromString(s)
}

// dateLayouts are the date formats seen in CBR exports and broker reports,
// tried in order. Day-first layouts come first because that is what both
// sources use.
var dateLayouts = []string{
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01-02-06",
}

// ParseCellDate parses a date cell trying the known layouts, falling back
// to an Excel serial number (days since 1899-12-30) for cells that reach
// us unformatted. The result keeps the parsed clock time; callers that
// need calendar-date semantics apply Midnight.
func ParseCellDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date value")
	}

	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}

	// Excel serial date: whole days since the epoch 1899-12-30, with the
	// fraction carrying the time of day (ignored here).
	if serial, err := decimal.NewFromString(s); err == nil {
		days := serial.IntPart()
		if days > 0 {
			epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
			return epoch.AddDate(0, 0, int(days)), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}
