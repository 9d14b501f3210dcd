package calc

import (
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/mkraev/freedom-calculator/internal/model"
)

// FilterPreviousBuys keeps the prior-period trades usable for coverage:
// purchases in the given currency. "Открытие позиции" counts as a
// purchase here and only here; in the main report that label stays
// verbatim and reduces the balance.
func FilterPreviousBuys(previous []model.Trade, currency string) []model.Trade {
	var out []model.Trade
	for _, t := range FilterCurrency(previous, currency) {
		if t.Operation.IsBuy() || isOpening(t.Operation) {
			out = append(out, t)
		}
	}
	return out
}

func isOpening(op model.Operation) bool {
	return strings.Contains(strings.ToLower(op.String()), "открытие")
}

// SortPreviousTrades orders prior-period trades ascending by trade date.
// This is the presentation order for merged multi-file histories.
func SortPreviousTrades(previous []model.Trade) {
	sort.SliceStable(previous, func(i, j int) bool {
		return previous[i].TradeDate.Before(previous[j].TradeDate)
	})
}

// CoverNegativeBalances resolves tickers that were sold short of their
// bought quantity within the period by borrowing purchases from prior-
// period reports.
//
// For each negative-balance ticker, prior purchases are consumed newest
// first until the deficit is covered. A partially consumed purchase is
// pro-rated: amount and fee scale by the fraction of its quantity used.
// Injected trades carry OpPriorBuy and no rate — BackfillRates must run
// afterwards, followed by re-summarizing.
//
// The input slice is not modified; the result is processed plus any
// injected coverage trades.
func CoverNegativeBalances(processed []model.ProcessedTrade, summary []model.TickerSummary, previousBuys []model.Trade) []model.ProcessedTrade {
	var negative []model.TickerSummary
	for _, s := range summary {
		if s.Balance.IsNegative() {
			negative = append(negative, s)
		}
	}
	if len(negative) == 0 {
		return processed
	}

	// Newest purchases first: the deficit is covered from the most
	// recent prior-period buys.
	buys := make([]model.Trade, len(previousBuys))
	copy(buys, previousBuys)
	sort.SliceStable(buys, func(i, j int) bool {
		return buys[i].SettleDate.After(buys[j].SettleDate)
	})

	out := make([]model.ProcessedTrade, len(processed))
	copy(out, processed)

	for _, s := range negative {
		remaining := s.Balance.Abs()
		log.Info().Str("ticker", s.Ticker).Str("deficit", remaining.String()).
			Msg("covering negative balance from prior period")

		covered := false
		for _, buy := range buys {
			if buy.Ticker != s.Ticker {
				continue
			}
			if remaining.IsZero() {
				covered = true
				break
			}
			if buy.Quantity.IsZero() {
				continue
			}

			use := decimalMin(buy.Quantity, remaining)
			fraction := use.Div(buy.Quantity)

			injected := model.Trade{
				Ticker:      buy.Ticker,
				Operation:   model.OpPriorBuy,
				Quantity:    use,
				Price:       buy.Price,
				Currency:    buy.Currency,
				Amount:      buy.Amount.Mul(fraction).Round(2),
				Fee:         buy.Fee.Mul(fraction).Round(2),
				FeeCurrency: buy.FeeCurrency,
				TradeDate:   buy.TradeDate,
				SettleDate:  buy.SettleDate,
			}
			out = append(out, model.ProcessedTrade{Trade: injected})

			remaining = remaining.Sub(use)
			log.Info().Str("ticker", buy.Ticker).Str("used", use.String()).
				Time("boughtOn", buy.SettleDate).Msg("covered from prior purchase")
		}

		if !covered && remaining.IsPositive() {
			log.Warn().Str("ticker", s.Ticker).Str("uncovered", remaining.String()).
				Msg("prior-period purchases do not fully cover the deficit")
		}
	}

	return out
}

func decimalMin(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
