package local

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/money"
	"github.com/aristath/sentinel/internal/rebalance/portfolio"
)

func TestFixedGeneratorAlwaysReturnsSameValue(t *testing.T) {
	gen := FixedGenerator{Value: decimal.NewFromFloat(12.5)}
	assert.True(t, gen.Next("AAA").Equal(decimal.NewFromFloat(12.5)))
	assert.True(t, gen.Next("BBB").Equal(decimal.NewFromFloat(12.5)))
}

func TestProviderBuyThenSellRoundTrips(t *testing.T) {
	p := New(nil, money.New(1000, money.USD), map[portfolio.Ticker]decimal.Decimal{"AAA": decimal.NewFromInt(10)}, nil)
	ctx := context.Background()

	qty := decimal.NewFromInt(5)
	ok, err := p.BuyInstrument(ctx, "AAA", &qty, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	holding, found := p.portfolio.GetHolding("AAA")
	require.True(t, found)
	assert.True(t, holding.Units.Equal(decimal.NewFromInt(5)))

	ok, err = p.SellInstrument(ctx, "AAA", &qty, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	holding, found = p.portfolio.GetHolding("AAA")
	require.True(t, found)
	assert.True(t, holding.Units.IsZero())
}

func TestNoPartialProviderReportsNonFractional(t *testing.T) {
	p := NewNoPartial(nil, money.New(100, money.USD), nil, nil)
	assert.False(t, p.Capabilities().SupportsFractionalShares)
	assert.Equal(t, portfolio.LocalDictNoPartial, p.ID())
}

func TestUnsettledAlwaysEmpty(t *testing.T) {
	p := New(nil, money.New(100, money.USD), nil, nil)
	unsettled, err := p.GetUnsettledInstruments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, unsettled)
}
