// Package algebra implements the ideal-portfolio algebra of spec §4.E:
// exclude/reweight/normalize are implemented as methods directly on
// portfolio.IdealPortfolio (see internal/rebalance/portfolio/models.go);
// this package adds reweight_to_present, which needs a historical+current
// price source and therefore doesn't belong on the pure data-model type.
package algebra

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/sentinel/internal/rebalance/portfolio"
)

// PriceSource is the minimal capability reweight_to_present needs from a
// broker adapter: historical and spot instrument prices.
type PriceSource interface {
	GetInstrumentPrice(ticker portfolio.Ticker, at *time.Time) (*decimal.Decimal, error)
}

// TickerReweightReport is the per-ticker detail returned by ReweightToPresent.
type TickerReweightReport struct {
	Ticker        portfolio.Ticker
	OriginalWeight decimal.Decimal
	NewWeight      decimal.Decimal
	OriginalPrice  *decimal.Decimal
	NewPrice       *decimal.Decimal
	Ratio          *decimal.Decimal
}

// imaginaryBase is the synthetic basis spec §4.E anchors share counts to.
var imaginaryBase = decimal.New(1_000_000, 0)

// ReweightToPresent re-anchors p's weights from p.SourceDate to today, per
// spec §4.E. For each holding: shares = base*w/p_hist, value_today =
// shares*p_now; new weight = value_today / sum(value_today). When either
// price is missing, the element's synthetic value is held at base*w
// instead of being dropped — this matches the corrected (non-shadowed)
// denominator behavior called out in spec §9 Open Question 2: the sum in
// the denominator is the sum across ALL valid tickers computed once, not a
// per-iteration re-read of a loop-shadowed name.
func ReweightToPresent(p *portfolio.IdealPortfolio, source PriceSource, today time.Time, log zerolog.Logger) []TickerReweightReport {
	values := make(map[portfolio.Ticker]decimal.Decimal, len(p.Holdings))
	reports := make([]TickerReweightReport, 0, len(p.Holdings))

	for _, h := range p.Holdings {
		sourceDate := p.SourceDate
		histPrice, err := source.GetInstrumentPrice(h.Ticker, &sourceDate)
		if err != nil {
			histPrice = nil
		}
		nowPrice, err := source.GetInstrumentPrice(h.Ticker, nil)
		if err != nil {
			nowPrice = nil
		}

		report := TickerReweightReport{Ticker: h.Ticker, OriginalWeight: h.Weight, OriginalPrice: histPrice, NewPrice: nowPrice}

		if histPrice == nil || nowPrice == nil || histPrice.IsZero() {
			values[h.Ticker] = imaginaryBase.Mul(h.Weight)
			reports = append(reports, report)
			continue
		}

		shares := imaginaryBase.Mul(h.Weight).Div(*histPrice)
		valueToday := shares.Mul(*nowPrice)
		values[h.Ticker] = valueToday

		ratio := nowPrice.Div(*histPrice)
		report.Ratio = &ratio
		reports = append(reports, report)
	}

	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}

	if !total.IsZero() {
		for i := range p.Holdings {
			newWeight := values[p.Holdings[i].Ticker].Div(total)
			p.Holdings[i].Weight = newWeight
		}
		for i := range reports {
			reports[i].NewWeight = values[reports[i].Ticker].Div(total)
		}
	}

	p.SourceDate = today
	p.Normalize()

	log.Info().
		Time("source_date", today).
		Int("tickers", len(reports)).
		Msg("reweighted ideal portfolio to present")

	return reports
}
