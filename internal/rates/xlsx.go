package rates

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/mkraev/freedom-calculator/internal/model"
)

// ratesSheet is the sheet name in the CBR xlsx export.
const ratesSheet = "RC"

// Column headers in the CBR export. The file also carries "nominal" and
// textual columns that are not needed for conversion.
const (
	colCurrencyName = "cdx"
	colDate         = "data"
	colValue        = "curs"
)

// LoadXLSX reads the CBR rates export and returns the rate table for the
// given ISO currency code. Rows for other currencies are skipped.
//
// The export carries every listed currency in one sheet, keyed by the
// display name in the "cdx" column; values use comma decimal separators.
func LoadXLSX(path, currency string) (*Table, error) {
	name, err := CurrencyName(currency)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitParseError, "invalid rates currency", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInputNotFound, "failed to open rates file", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(ratesSheet)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitParseError,
			fmt.Sprintf("rates file has no %q sheet", ratesSheet), err)
	}
	if len(rows) < 2 {
		return nil, model.NewCLIError(model.ExitParseError, "rates sheet is empty")
	}

	// Header row gives us column positions; the export's column order is
	// not guaranteed across CBR site revisions.
	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{colCurrencyName, colDate, colValue} {
		if _, ok := cols[required]; !ok {
			return nil, model.NewCLIError(model.ExitParseError,
				fmt.Sprintf("rates sheet is missing column %q", required))
		}
	}

	var rs []Rate
	for i, row := range rows[1:] {
		if cell(row, cols[colCurrencyName]) == "" {
			continue
		}
		if strings.TrimSpace(cell(row, cols[colCurrencyName])) != name {
			continue
		}

		date, err := ParseDate(cell(row, cols[colDate]))
		if err != nil {
			log.Warn().Int("row", i+2).Err(err).Msg("skipping rates row with bad date")
			continue
		}
		value, err := ParseDecimal(cell(row, cols[colValue]))
		if err != nil {
			log.Warn().Int("row", i+2).Err(err).Msg("skipping rates row with bad value")
			continue
		}
		rs = append(rs, Rate{Date: date, Value: value})
	}

	if len(rs) == 0 {
		return nil, model.NewCLIError(model.ExitParseError,
			fmt.Sprintf("rates sheet has no rows for %s (%s)", currency, name))
	}

	log.Info().Str("path", path).Str("currency", currency).Int("rates", len(rs)).
		Msg("loaded CBR rates")
	return NewTable(rs), nil
}

// cell returns the trimmed cell at index i, tolerating short rows —
// excelize drops trailing empty cells from GetRows output.
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
