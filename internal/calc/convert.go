package calc

import (
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/mkraev/freedom-calculator/internal/model"
	"github.com/mkraev/freedom-calculator/internal/rates"
)

// FilterCurrency keeps only trades in the given currency. The broker mixes
// currencies in one sheet; each run processes exactly one.
func FilterCurrency(trades []model.Trade, currency string) []model.Trade {
	want := strings.ToUpper(strings.TrimSpace(currency))
	var out []model.Trade
	for _, t := range trades {
		if strings.ToUpper(strings.TrimSpace(t.Currency)) == want {
			out = append(out, t)
		}
	}
	return out
}

// Convert merges trades with the rate table and computes the rouble
// amounts. Trades whose settlement date precedes the first known rate
// stay unconverted (HasRate=false) and are handled by BackfillRates after
// coverage, or excluded from monetary sums.
func Convert(trades []model.Trade, table *rates.Table) []model.ProcessedTrade {
	out := make([]model.ProcessedTrade, 0, len(trades))
	for _, t := range trades {
		pt := model.ProcessedTrade{Trade: t}
		if rate, ok := table.AsOf(t.SettleDate); ok {
			applyRate(&pt, rate)
		} else {
			log.Warn().Str("ticker", t.Ticker).Time("settleDate", t.SettleDate).
				Msg("no rate at or before settlement date")
		}
		out = append(out, pt)
	}
	return out
}

// applyRate fills the rouble fields of a trade from the given rate.
//
// Sign convention: buys are money out (negative), sells are money in
// (positive). The commission always reduces the net.
func applyRate(pt *model.ProcessedTrade, rate decimal.Decimal) {
	amount := pt.Amount.Mul(rate)
	if pt.Operation.IsBuy() {
		amount = amount.Neg()
	}

	pt.Rate = rate
	pt.HasRate = true
	pt.AmountRUB = amount.Round(2)
	pt.FeeRUB = pt.Fee.Mul(rate).Round(2)
	pt.NetRUB = pt.AmountRUB.Sub(pt.FeeRUB).Round(2)
}

// BackfillRates converts the trades that are still missing a rate —
// coverage trades injected from a prior period, or trades settled before
// the table starts. Trades with no applicable rate at all get explicit
// zeroes so they appear in exports rather than silently vanishing.
func BackfillRates(processed []model.ProcessedTrade, table *rates.Table) {
	for i := range processed {
		pt := &processed[i]
		if pt.HasRate {
			continue
		}
		if rate, ok := table.AsOf(pt.SettleDate); ok {
			applyRate(pt, rate)
			log.Info().Str("ticker", pt.Ticker).Str("rate", rate.String()).
				Str("amountRub", pt.AmountRUB.String()).
				Msg("backfilled rate for prior-period trade")
			continue
		}

		log.Warn().Str("ticker", pt.Ticker).Time("settleDate", pt.SettleDate).
			Msg("no rate found for trade, recording zero rouble amounts")
		pt.Rate = decimal.Zero
		pt.HasRate = true
		pt.AmountRUB = decimal.Zero
		pt.FeeRUB = decimal.Zero
		pt.NetRUB = decimal.Zero
	}
}
