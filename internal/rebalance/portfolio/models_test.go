package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/money"
)

func TestNormalizeRescalesAndSorts(t *testing.T) {
	p := NewIdealPortfolio([]IdealPortfolioElement{
		{Ticker: "AAA", Weight: decimal.NewFromFloat(0.1)},
		{Ticker: "BBB", Weight: decimal.NewFromFloat(0.3)},
	}, time.Time{})
	p.Normalize()

	total := decimal.Zero
	for _, h := range p.Holdings {
		total = total.Add(h.Weight)
	}
	assert.True(t, total.Sub(decimal.NewFromInt(1)).Abs().LessThan(decimal.NewFromFloat(0.0001)))
	assert.Equal(t, Ticker("BBB"), p.Holdings[0].Ticker)
}

func TestExcludeRemovesAndRenormalizes(t *testing.T) {
	p := NewIdealPortfolio([]IdealPortfolioElement{
		{Ticker: "AAA", Weight: decimal.NewFromFloat(0.5)},
		{Ticker: "BBB", Weight: decimal.NewFromFloat(0.5)},
	}, time.Time{})

	result := p.Exclude([]Ticker{"AAA"})
	assert.Equal(t, []Ticker{"AAA"}, result.RemovedTickers)
	assert.False(t, p.Contains("AAA"))
	require.Len(t, p.Holdings, 1)
	assert.True(t, p.Holdings[0].Weight.Equal(decimal.NewFromInt(1)))
}

func TestReweightInsertsMissingTicker(t *testing.T) {
	p := NewIdealPortfolio([]IdealPortfolioElement{
		{Ticker: "AAA", Weight: decimal.NewFromInt(1)},
	}, time.Time{})

	p.Reweight([]Ticker{"BBB"}, decimal.NewFromInt(2), decimal.NewFromFloat(0.05))
	assert.True(t, p.Contains("BBB"))
}

func TestRealPortfolioReweightsOnAdd(t *testing.T) {
	p := NewRealPortfolio(nil, money.New(100, money.USD), nil)
	p.AddHolding(RealPortfolioElement{Ticker: "AAA", Value: money.New(100, money.USD)})

	h, ok := p.GetHolding("AAA")
	require.True(t, ok)
	assert.True(t, h.Weight.Equal(decimal.NewFromFloat(0.5)))
	assert.True(t, p.Value().Equal(money.New(200, money.USD)))
}

func TestRealPortfolioMerge(t *testing.T) {
	a := NewRealPortfolio([]RealPortfolioElement{{Ticker: "AAA", Units: decimal.NewFromInt(1), Value: money.New(10, money.USD)}}, money.Zero(money.USD), nil)
	b := NewRealPortfolio([]RealPortfolioElement{{Ticker: "AAA", Units: decimal.NewFromInt(2), Value: money.New(20, money.USD)}}, money.Zero(money.USD), nil)

	a.Merge(b)
	h, ok := a.GetHolding("AAA")
	require.True(t, ok)
	assert.True(t, h.Units.Equal(decimal.NewFromInt(3)))
	assert.True(t, h.Value.Equal(money.New(30, money.USD)))
}
