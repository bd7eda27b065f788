package planner

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/sentinel/internal/money"
	"github.com/aristath/sentinel/internal/rebalance/broker"
	"github.com/aristath/sentinel/internal/rebalance/portfolio"
)

// ProviderAdapter is an alias of the full broker.Adapter interface. The
// composite planner uses its identity, capability introspection and
// unsettled-instrument lookup; prices come from a per-provider price
// fetcher built elsewhere (e.g. from a pricecache.Cache).
type ProviderAdapter = broker.Adapter

// CompositeOptions carries generate_composite_order_plan's inputs beyond
// the composite portfolio and ideal target (spec §4.G).
type CompositeOptions struct {
	Strategy          PurchaseStrategy
	TargetSize        *money.Money
	TargetOrderSize   *money.Money // when set, one total budget split across providers in planning order instead of full cash
	MinOrderValue     *money.Money
	SafetyThreshold   decimal.Decimal // fraction of each provider's cash usable, default 1
	IncludeSellOrders bool
	SkipInvalid       *bool
	Log               zerolog.Logger
}

// ProviderPlan pairs an adapter with its per-ticker price fetcher, built by
// the caller (typically from a pricecache.Cache per provider).
type ProviderPlan struct {
	Adapter      ProviderAdapter
	PriceFetcher PriceFetcher
}

// GenerateCompositeOrderPlan is generate_composite_order_plan from spec
// §4.G: distributes purchase power across providers in
// (supports_fractional_shares, cash) ascending order, threading orders
// already planned for a ticker on an earlier provider into the next
// provider's existing_orders so the composite never double-buys.
//
// The result is keyed per provider, per spec step 6 ("Return {ProviderId →
// OrderPlan}") — callers must not flatten it into one OrderPlan by merging
// same-ticker elements across providers: doing so loses one provider's ID
// and can turn an integer-qty order into a value order routed to the wrong
// adapter.
func GenerateCompositeOrderPlan(ctx context.Context, composite *portfolio.CompositePortfolio, ideal *portfolio.IdealPortfolio, providers []ProviderPlan, opts CompositeOptions) (map[portfolio.ProviderID]portfolio.OrderPlan, error) {
	safety := opts.SafetyThreshold
	if safety.IsZero() {
		safety = decimal.NewFromInt(1)
	}

	skipTickers := map[portfolio.Ticker]bool{}
	for _, pp := range providers {
		unsettled, err := pp.Adapter.GetUnsettledInstruments(ctx)
		if err != nil {
			return nil, err
		}
		for t, v := range unsettled {
			if v {
				skipTickers[t] = true
			}
		}
	}

	ordered := make([]ProviderPlan, len(providers))
	copy(ordered, providers)
	sort.SliceStable(ordered, func(i, j int) bool {
		ci := ordered[i].Adapter.Capabilities()
		cj := ordered[j].Adapter.Capabilities()
		if ci.SupportsFractionalShares != cj.SupportsFractionalShares {
			return !ci.SupportsFractionalShares // non-fractional (integer-share) providers first
		}
		pi, _ := composite.ByProvider(ordered[i].Adapter.ID())
		pj, _ := composite.ByProvider(ordered[j].Adapter.ID())
		return providerCash(pi).LessThan(providerCash(pj))
	})

	// Pre-assign each provider min(cash, remaining target_order_size) and
	// decrement the remainder by the assignment itself, not by what a
	// provider actually ends up spending — walked in the same order used
	// for planning below, since the assignment order is unspecified but
	// the result is order-dependent whenever the target order size doesn't
	// cover every provider's cash.
	assignedPower := make(map[portfolio.ProviderID]money.Money, len(ordered))
	if opts.TargetOrderSize != nil {
		remaining := *opts.TargetOrderSize
		for _, pp := range ordered {
			id := pp.Adapter.ID()
			real, ok := composite.ByProvider(id)
			if !ok {
				continue
			}
			local := money.Min(real.Cash, remaining)
			assignedPower[id] = local
			remaining = remaining.MustSub(local)
		}
	} else {
		for _, pp := range ordered {
			id := pp.Adapter.ID()
			real, ok := composite.ByProvider(id)
			if !ok {
				continue
			}
			assignedPower[id] = real.Cash
		}
	}

	output := make(map[portfolio.ProviderID]portfolio.OrderPlan, len(ordered))
	var existing []portfolio.OrderElement

	for _, pp := range ordered {
		id := pp.Adapter.ID()
		real, ok := composite.ByProvider(id)
		if !ok {
			continue
		}

		localMaxSpend := real.Cash.MulDecimal(safety)
		purchasePower := money.Min(assignedPower[id], localMaxSpend)

		providerID := id
		sub, err := GenerateOrderPlan(real, ideal, pp.PriceFetcher, Options{
			Strategy:          opts.Strategy,
			TargetSize:        opts.TargetSize,
			PurchasePower:     &purchasePower,
			MinOrderValue:     opts.MinOrderValue,
			SkipTickers:       skipTickers,
			FractionalShares:  pp.Adapter.Capabilities().SupportsFractionalShares,
			Provider:          &providerID,
			ExistingOrders:    existing,
			SkipInvalid:       opts.SkipInvalid,
			IncludeSellOrders: opts.IncludeSellOrders,
			Log:               opts.Log,
		})
		if err != nil {
			return nil, err
		}

		output[id] = sub
		existing = append(existing, sub.AllOrders()...)
	}

	return output, nil
}

func providerCash(p *portfolio.RealPortfolio) money.Money {
	if p == nil {
		return money.Money{}
	}
	return p.Cash
}
