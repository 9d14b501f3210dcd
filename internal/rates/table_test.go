package rates

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// TestTableAsOf verifies the backward as-of semantics: a settlement date
// that falls on a weekend or holiday resolves to the latest earlier
// publication, and dates before the first publication are a miss.
func TestTableAsOf(t *testing.T) {
	table := NewTable([]Rate{
		{Date: day(2023, 1, 13), Value: dec(t, "68.50")}, // Friday
		{Date: day(2023, 1, 10), Value: dec(t, "70.10")},
		{Date: day(2023, 1, 17), Value: dec(t, "67.90")},
	})

	// Exact publication date.
	got, ok := table.AsOf(day(2023, 1, 10))
	require.True(t, ok)
	assert.True(t, got.Equal(dec(t, "70.10")))

	// Weekend settlement resolves backward to Friday.
	got, ok = table.AsOf(day(2023, 1, 15))
	require.True(t, ok)
	assert.True(t, got.Equal(dec(t, "68.50")))

	// Intra-day timestamps compare by calendar date, not by clock time.
	got, ok = table.AsOf(time.Date(2023, 1, 13, 9, 30, 0, 0, time.UTC))
	require.True(t, ok)
	assert.True(t, got.Equal(dec(t, "68.50")))

	// Before the first publication: miss, not a zero rate.
	_, ok = table.AsOf(day(2023, 1, 9))
	assert.False(t, ok)
}

// TestTableDuplicateDates verifies that a republished rate for the same
// date replaces the earlier value.
func TestTableDuplicateDates(t *testing.T) {
	table := NewTable([]Rate{
		{Date: day(2023, 2, 1), Value: dec(t, "70.00")},
		{Date: day(2023, 2, 1), Value: dec(t, "70.25")},
	})

	require.Equal(t, 1, table.Len())
	got, ok := table.AsOf(day(2023, 2, 1))
	require.True(t, ok)
	assert.True(t, got.Equal(dec(t, "70.25")))
}

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"75,4571", "75.4571"},
		{"1 234,56", "1234.56"},
		{"68.50", "68.50"},
		{" 99,9 ", "99.9"},
	}
	for _, tc := range cases {
		got, err := ParseDecimal(tc.raw)
		require.NoError(t, err, "raw=%q", tc.raw)
		assert.True(t, got.Equal(dec(t, tc.want)), "raw=%q got=%s", tc.raw, got)
	}

	_, err := ParseDecimal("  ")
	assert.Error(t, err)
	_, err = ParseDecimal("abc")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("02.03.2022")
	require.NoError(t, err)
	assert.Equal(t, day(2022, 3, 2), got, "CBR dates are day-first")

	got, err = ParseDate("2022-03-02")
	require.NoError(t, err)
	assert.Equal(t, day(2022, 3, 2), got)

	// Excel serial number: 44927 is 2023-01-01.
	got, err = ParseDate("44927")
	require.NoError(t, err)
	assert.Equal(t, day(2023, 1, 1), got)

	_, err = ParseDate("not a date")
	assert.Error(t, err)
	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestCurrencyLookups(t *testing.T) {
	name, err := CurrencyName("usd")
	require.NoError(t, err)
	assert.Equal(t, "Доллар США", name)

	id, err := CurrencyID("USD")
	require.NoError(t, err)
	assert.Equal(t, "R01235", id)

	_, err = CurrencyName("JPY")
	assert.Error(t, err)
	_, err = CurrencyID("JPY")
	assert.Error(t, err)
}
