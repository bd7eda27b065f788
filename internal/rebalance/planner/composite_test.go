package planner

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/money"
	"github.com/aristath/sentinel/internal/rebalance/broker/local"
	"github.com/aristath/sentinel/internal/rebalance/portfolio"
)

func priceFetcherFor(p *local.Provider) PriceFetcher {
	return func(tickers []portfolio.Ticker) (map[portfolio.Ticker]*decimal.Decimal, error) {
		return p.GetInstrumentPrices(context.Background(), tickers, nil)
	}
}

func TestGenerateCompositeOrderPlanDistributesAcrossProviders(t *testing.T) {
	ideal := portfolio.NewIdealPortfolio([]portfolio.IdealPortfolioElement{
		{Ticker: "AAA", Weight: decimal.NewFromFloat(0.5)},
		{Ticker: "BBB", Weight: decimal.NewFromFloat(0.5)},
	}, time.Time{})

	prices := map[portfolio.Ticker]decimal.Decimal{"AAA": decimal.NewFromInt(10), "BBB": decimal.NewFromInt(10)}
	providerA := local.New(nil, money.New(500, money.USD), prices, local.FixedGenerator{Value: decimal.NewFromInt(10)})
	providerB := local.NewNoPartial(nil, money.New(500, money.USD), prices, local.FixedGenerator{Value: decimal.NewFromInt(10)})

	realA, _ := providerA.GetHoldings(context.Background())
	realB, _ := providerB.GetHoldings(context.Background())
	composite := portfolio.NewCompositePortfolio([]*portfolio.RealPortfolio{realA, realB})

	plan, err := GenerateCompositeOrderPlan(context.Background(), composite, ideal, []ProviderPlan{
		{Adapter: providerA, PriceFetcher: priceFetcherFor(providerA)},
		{Adapter: providerB, PriceFetcher: priceFetcherFor(providerB)},
	}, CompositeOptions{Strategy: LargestDiffFirst, Log: zerolog.Nop()})

	require.NoError(t, err)

	seen := map[portfolio.ProviderID]bool{}
	for providerID, sub := range plan {
		for _, o := range sub.ToBuy {
			require.NotNil(t, o.Provider)
			assert.Equal(t, providerID, *o.Provider)
			seen[*o.Provider] = true
		}
	}
	assert.True(t, len(seen) >= 1)
}

func TestGenerateCompositeOrderPlanOrdersIntegerShareProvidersFirst(t *testing.T) {
	ideal := portfolio.NewIdealPortfolio([]portfolio.IdealPortfolioElement{{Ticker: "AAA", Weight: decimal.NewFromFloat(1)}}, time.Time{})
	prices := map[portfolio.Ticker]decimal.Decimal{"AAA": decimal.NewFromInt(10)}

	fractional := local.New(nil, money.New(1000, money.USD), prices, nil)
	integerOnly := local.NewNoPartial(nil, money.New(10, money.USD), prices, nil)

	realFractional, _ := fractional.GetHoldings(context.Background())
	realInteger, _ := integerOnly.GetHoldings(context.Background())
	composite := portfolio.NewCompositePortfolio([]*portfolio.RealPortfolio{realFractional, realInteger})

	plan, err := GenerateCompositeOrderPlan(context.Background(), composite, ideal, []ProviderPlan{
		{Adapter: fractional, PriceFetcher: priceFetcherFor(fractional)},
		{Adapter: integerOnly, PriceFetcher: priceFetcherFor(integerOnly)},
	}, CompositeOptions{Strategy: LargestDiffFirst, Log: zerolog.Nop()})

	require.NoError(t, err)
	// the non-fractional provider sorts first and has only $10 of cash, so
	// it gets its own entry in the per-provider plan with an integer qty
	// order, kept separate from the fractional provider's entry for the
	// same ticker rather than merged into one.
	require.Contains(t, plan, portfolio.LocalDictNoPartial)
	require.NotEmpty(t, plan[portfolio.LocalDictNoPartial].ToBuy)
	integerOrder := plan[portfolio.LocalDictNoPartial].ToBuy[0]
	assert.NotNil(t, integerOrder.Qty)
	assert.Nil(t, integerOrder.Value)

	require.Contains(t, plan, portfolio.LocalDict)
	require.NotEmpty(t, plan[portfolio.LocalDict].ToBuy)
}
