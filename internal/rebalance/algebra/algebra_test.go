package algebra

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/rebalance/portfolio"
)

type fixedPriceSource struct {
	historical map[portfolio.Ticker]decimal.Decimal
	current    map[portfolio.Ticker]decimal.Decimal
}

func (s fixedPriceSource) GetInstrumentPrice(ticker portfolio.Ticker, at *time.Time) (*decimal.Decimal, error) {
	var m map[portfolio.Ticker]decimal.Decimal
	if at == nil {
		m = s.current
	} else {
		m = s.historical
	}
	v, ok := m[ticker]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func TestReweightToPresentIncreasesWeightWhenPriceDoubles(t *testing.T) {
	sourceDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := portfolio.NewIdealPortfolio([]portfolio.IdealPortfolioElement{
		{Ticker: "AAA", Weight: decimal.NewFromFloat(0.5)},
		{Ticker: "BBB", Weight: decimal.NewFromFloat(0.5)},
	}, sourceDate)

	source := fixedPriceSource{
		historical: map[portfolio.Ticker]decimal.Decimal{"AAA": decimal.NewFromInt(10), "BBB": decimal.NewFromInt(10)},
		current:    map[portfolio.Ticker]decimal.Decimal{"AAA": decimal.NewFromInt(20), "BBB": decimal.NewFromInt(10)},
	}

	reports := ReweightToPresent(p, source, time.Now(), zerolog.Nop())
	require.Len(t, reports, 2)

	aaa, ok := p.GetHolding("AAA")
	require.True(t, ok)
	bbb, ok := p.GetHolding("BBB")
	require.True(t, ok)

	assert.True(t, aaa.Weight.GreaterThan(bbb.Weight))

	total := aaa.Weight.Add(bbb.Weight)
	assert.True(t, total.Sub(decimal.NewFromInt(1)).Abs().LessThan(decimal.NewFromFloat(0.0001)))
}

func TestReweightToPresentFallsBackToOriginalWeightWhenPriceMissing(t *testing.T) {
	sourceDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := portfolio.NewIdealPortfolio([]portfolio.IdealPortfolioElement{
		{Ticker: "AAA", Weight: decimal.NewFromFloat(1)},
	}, sourceDate)

	source := fixedPriceSource{
		historical: map[portfolio.Ticker]decimal.Decimal{},
		current:    map[portfolio.Ticker]decimal.Decimal{},
	}

	reports := ReweightToPresent(p, source, time.Now(), zerolog.Nop())
	require.Len(t, reports, 1)
	assert.Nil(t, reports[0].Ratio)
}
