package executor

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

func TestPurchaseCompositeOrderPlanSubmitsBuyOrders(t *testing.T) {
	provider := local.New(nil, money.New(100, money.USD), map[portfolio.Ticker]decimal.Decimal{"AAA": decimal.NewFromInt(10)}, nil)
	qty := decimal.NewFromInt(1)

	result := PurchaseCompositeOrderPlan(context.Background(), []ProviderOrders{
		{Adapter: provider, Orders: []portfolio.OrderElement{{Ticker: "AAA", OrderType: portfolio.Buy, Qty: &qty}}},
	}, Options{Log: zerolog.Nop()})

	require.Len(t, result.Submitted, 1)
	assert.Empty(t, result.Failed)
}

func TestPurchaseCompositeOrderPlanSkipsSellsByDefault(t *testing.T) {
	provider := local.New(nil, money.New(100, money.USD), map[portfolio.Ticker]decimal.Decimal{"AAA": decimal.NewFromInt(10)}, nil)
	qty := decimal.NewFromInt(1)

	result := PurchaseCompositeOrderPlan(context.Background(), []ProviderOrders{
		{Adapter: provider, Orders: []portfolio.OrderElement{{Ticker: "AAA", OrderType: portfolio.Sell, Qty: &qty}}},
	}, Options{Log: zerolog.Nop()})

	assert.Empty(t, result.Submitted)
	require.Len(t, result.Skipped, 1)
}

// unsettledAdapter wraps a local.Provider to report a fixed unsettled set,
// since the local adapter itself always settles instantly.
type unsettledAdapter struct {
	*local.Provider
	unsettled map[portfolio.Ticker]bool
}

func (a unsettledAdapter) GetUnsettledInstruments(context.Context) (map[portfolio.Ticker]bool, error) {
	return a.unsettled, nil
}

func TestPurchaseCompositeOrderPlanSkipsUnsettledWhenIgnored(t *testing.T) {
	provider := unsettledAdapter{
		Provider:  local.New(nil, money.New(100, money.USD), map[portfolio.Ticker]decimal.Decimal{"AAA": decimal.NewFromInt(10), "BBB": decimal.NewFromInt(10)}, nil),
		unsettled: map[portfolio.Ticker]bool{"AAA": true},
	}
	qtyA := decimal.NewFromInt(1)
	qtyB := decimal.NewFromInt(1)

	result := PurchaseCompositeOrderPlan(context.Background(), []ProviderOrders{
		{Adapter: provider, Orders: []portfolio.OrderElement{
			{Ticker: "AAA", OrderType: portfolio.Buy, Qty: &qtyA},
			{Ticker: "BBB", OrderType: portfolio.Buy, Qty: &qtyB},
		}},
	}, Options{IgnoreUnsettled: true, Log: zerolog.Nop()})

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, portfolio.Ticker("AAA"), result.Skipped[0].Ticker)
	require.Len(t, result.Submitted, 1)
	assert.Equal(t, portfolio.Ticker("BBB"), result.Submitted[0].Ticker)
}

func TestSubmitWithRetrySucceedsWhenNotThrottled(t *testing.T) {
	provider := local.New(nil, money.Zero(money.USD), nil, nil)
	qty := decimal.NewFromInt(1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := submitWithRetry(ctx, provider, portfolio.OrderElement{Ticker: "AAA", OrderType: portfolio.Buy, Qty: &qty}, 0, zerolog.Nop())
	assert.NoError(t, err) // local provider never throttles, always settles
}
