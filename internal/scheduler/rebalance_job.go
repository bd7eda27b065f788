package scheduler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/rebalance/executor"
	"github.com/aristath/sentinel/internal/rebalance/planner"
	"github.com/aristath/sentinel/internal/rebalance/portfolio"
)

// RebalanceJob runs GenerateCompositeOrderPlan against the current ideal
// portfolio and, if Submit is true, executes the resulting plan. It
// implements Job so it can be registered on the Scheduler's cron loop.
type RebalanceJob struct {
	Name_ string

	Composite *portfolio.CompositePortfolio
	Ideal     *portfolio.IdealPortfolio
	Providers []planner.ProviderPlan
	Options   planner.CompositeOptions

	Submit            bool
	IncludeSellOrders bool

	Log zerolog.Logger

	// LastPlan records the most recent plan, keyed per provider per spec
	// §4.G step 6, for the diagnostic HTTP surface (cmd/planner --serve)
	// to read without recomputing.
	LastPlan map[portfolio.ProviderID]portfolio.OrderPlan
}

func (j *RebalanceJob) Name() string {
	if j.Name_ != "" {
		return j.Name_
	}
	return "rebalance"
}

func (j *RebalanceJob) Run() error {
	ctx := context.Background()

	plan, err := planner.GenerateCompositeOrderPlan(ctx, j.Composite, j.Ideal, j.Providers, j.Options)
	if err != nil {
		return err
	}
	j.LastPlan = plan

	buyCount, sellCount := 0, 0
	for _, sub := range plan {
		buyCount += len(sub.ToBuy)
		sellCount += len(sub.ToSell)
	}
	j.Log.Info().
		Int("buy_orders", buyCount).
		Int("sell_orders", sellCount).
		Msg("order plan generated")

	if !j.Submit {
		return nil
	}

	providerOrders := groupByProvider(j.Providers, plan)
	result := executor.PurchaseCompositeOrderPlan(ctx, providerOrders, executor.Options{
		IncludeSellOrders: j.IncludeSellOrders,
		SkipErroredStocks: true,
		Log:               j.Log,
	})

	j.Log.Info().
		Int("submitted", len(result.Submitted)).
		Int("skipped", len(result.Skipped)).
		Int("failed", len(result.Failed)).
		Msg("order plan executed")

	return nil
}

// groupByProvider turns the per-provider plan map into the adapter+orders
// pairs PurchaseCompositeOrderPlan expects, preserving each provider's own
// order list rather than re-deriving it from a flattened plan.
func groupByProvider(providers []planner.ProviderPlan, plan map[portfolio.ProviderID]portfolio.OrderPlan) []executor.ProviderOrders {
	out := make([]executor.ProviderOrders, 0, len(providers))
	for _, pp := range providers {
		sub, ok := plan[pp.Adapter.ID()]
		if !ok {
			continue
		}
		orders := sub.AllOrders()
		if len(orders) == 0 {
			continue
		}
		out = append(out, executor.ProviderOrders{Adapter: pp.Adapter, Orders: orders})
	}
	return out
}
