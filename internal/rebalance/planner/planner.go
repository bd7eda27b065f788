// Package planner implements the single-broker order plan generator
// (spec §4.F, generate_order_plan) and the composite orchestrator
// (spec §4.G, generate_composite_order_plan), grounded directly in
// py_portfolio_index/operators.py. The planner is pure: it never submits
// orders, only computes them (spec §5, §7 propagation policy).
package planner

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/sentinel/internal/money"
	"github.com/aristath/sentinel/internal/rebalance/portfolio"
	"github.com/aristath/sentinel/internal/rebalance/rerrors"
)

// DefaultMinOrderValue is the default floor on any emitted order (spec §4.F).
var DefaultMinOrderValue = money.New(2, money.USD)

// PriceFetcher is the batch price-lookup signature the planner calls
// exactly once per generate_order_plan invocation (spec §4.F step 3). It
// is typically backed by a pricecache.Cache.GetPrices.
type PriceFetcher func(tickers []portfolio.Ticker) (map[portfolio.Ticker]*decimal.Decimal, error)

// comparisonResult is the per-ticker row of the comparison table built in
// step 1 of generate_order_plan.
type comparisonResult struct {
	ticker     portfolio.Ticker
	modelWeight decimal.Decimal
	pct         decimal.Decimal
	actual      money.Money
}

func (c comparisonResult) diff() decimal.Decimal {
	return c.modelWeight.Sub(c.pct)
}

// Options carries every generate_order_plan input beyond real/ideal/fetcher.
type Options struct {
	Strategy          PurchaseStrategy
	TargetSize        *money.Money
	PurchasePower     *money.Money
	MinOrderValue     *money.Money
	SkipTickers       map[portfolio.Ticker]bool
	FractionalShares  bool
	Provider          *portfolio.ProviderID
	ExistingOrders    []portfolio.OrderElement
	SkipInvalid       *bool // default true
	IncludeSellOrders bool
	Log               zerolog.Logger
}

func boolDefault(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// GenerateOrderPlan is generate_order_plan from spec §4.F. real may be a
// *portfolio.RealPortfolio or *portfolio.CompositePortfolio (anything
// satisfying portfolio.PortfolioLike).
func GenerateOrderPlan(real portfolio.PortfolioLike, ideal *portfolio.IdealPortfolio, fetch PriceFetcher, opts Options) (portfolio.OrderPlan, error) {
	skipInvalid := boolDefault(opts.SkipInvalid, true)
	minOrderValue := DefaultMinOrderValue
	if opts.MinOrderValue != nil {
		minOrderValue = *opts.MinOrderValue
	}
	targetValue := real.Value()
	if opts.TargetSize != nil {
		targetValue = *opts.TargetSize
	}
	purchasePower := targetValue
	if opts.PurchasePower != nil {
		purchasePower = *opts.PurchasePower
	}

	// existing_orders value map, keyed by ticker (sum of inferred values).
	existingByTicker := map[portfolio.Ticker]money.Money{}
	for _, o := range opts.ExistingOrders {
		v := o.InferredValue()
		if cur, ok := existingByTicker[o.Ticker]; ok {
			existingByTicker[o.Ticker] = cur.MustAdd(v)
		} else {
			existingByTicker[o.Ticker] = v
		}
	}

	currentlyHeld := money.Zero(targetValue.Currency())
	results := make(map[portfolio.Ticker]comparisonResult)
	var order []portfolio.Ticker // preserves ideal.Holdings order for stable sorts

	for _, h := range ideal.Holdings {
		if opts.SkipTickers[h.Ticker] {
			continue
		}
		actualValue := money.Zero(targetValue.Currency())
		if held, ok := real.GetHolding(h.Ticker); ok {
			actualValue = held.Value
		}
		if extra, ok := existingByTicker[h.Ticker]; ok {
			actualValue = actualValue.MustAdd(extra)
		}

		var pct decimal.Decimal
		if !actualValue.IsZero() {
			var err error
			pct, err = actualValue.DivMoney(targetValue)
			if err != nil {
				return portfolio.OrderPlan{}, err
			}
		}

		currentlyHeld = currentlyHeld.MustAdd(actualValue)
		results[h.Ticker] = comparisonResult{ticker: h.Ticker, modelWeight: h.Weight, pct: pct, actual: actualValue}
		order = append(order, h.Ticker)
	}

	scaling, diffOrder := orderAndScale(opts.Strategy, results, order, purchasePower, targetValue, currentlyHeld)

	prices, err := fetch(diffOrder)
	if err != nil {
		if pf, ok := err.(rerrors.PriceFetch); ok {
			if !skipInvalid {
				return portfolio.OrderPlan{}, err
			}
			newSkip := map[portfolio.Ticker]bool{}
			for k, v := range opts.SkipTickers {
				newSkip[k] = v
			}
			for _, t := range pf.Tickers {
				newSkip[portfolio.Ticker(t)] = true
			}
			opts.SkipTickers = newSkip
			opts.Log.Info().Strs("tickers", pf.Tickers).Msg("could not fetch prices, retrying with tickers skipped")
			return GenerateOrderPlan(real, ideal, fetch, opts)
		}
		return portfolio.OrderPlan{}, err
	}

	var toSell []portfolio.OrderElement
	if opts.IncludeSellOrders {
		for _, t := range diffOrder {
			r := results[t]
			if so := generateSellOrder(r, targetValue, prices[t], scaling, opts.Strategy, minOrderValue, opts.FractionalShares, opts.Provider); so != nil {
				toSell = append(toSell, *so)
			}
		}
	}

	var toBuy []portfolio.OrderElement
	remainingPower := purchasePower
	for _, t := range diffOrder {
		if remainingPower.LTE(money.Zero(remainingPower.Currency())) {
			break
		}
		r := results[t]
		bo := generateBuyOrder(r, targetValue, remainingPower, prices[t], scaling, opts.Strategy, minOrderValue, opts.FractionalShares, opts.Provider)
		if bo == nil {
			continue
		}
		if bo.Value != nil {
			remainingPower = remainingPower.MustSub(*bo.Value)
		} else if bo.Qty != nil && prices[t] != nil {
			cost := money.NewFromDecimal(prices[t].Mul(*bo.Qty), targetValue.Currency())
			remainingPower = remainingPower.MustSub(cost)
		}
		toBuy = append(toBuy, *bo)
	}

	return portfolio.OrderPlan{ToBuy: toBuy, ToSell: toSell}, nil
}

// orderAndScale implements gen_diff_and_scaling: sorts tickers per strategy
// and, for PeanutButter, computes the scaling factor that spreads
// purchasePower across the remaining gap (target - currentlyHeld).
func orderAndScale(strategy PurchaseStrategy, results map[portfolio.Ticker]comparisonResult, tickers []portfolio.Ticker, purchasePower, target, currentlyHeld money.Money) (decimal.Decimal, []portfolio.Ticker) {
	out := make([]portfolio.Ticker, len(tickers))
	copy(out, tickers)

	switch strategy {
	case LargestDiffFirst:
		sort.SliceStable(out, func(i, j int) bool {
			return results[out[i]].diff().Abs().GreaterThan(results[out[j]].diff().Abs())
		})
		return decimal.NewFromInt(1), out
	case CheapestFirst:
		sort.SliceStable(out, func(i, j int) bool {
			return results[out[i]].diff().Abs().LessThan(results[out[j]].diff().Abs())
		})
		return decimal.NewFromInt(1), out
	case PeanutButter:
		sort.SliceStable(out, func(i, j int) bool {
			return results[out[i]].diff().Abs().LessThan(results[out[j]].diff().Abs())
		})
		gap, err := target.Sub(currentlyHeld)
		if err != nil {
			return decimal.NewFromInt(1), out
		}
		if gap.IsZero() {
			return decimal.NewFromInt(1), out
		}
		scaling, err := purchasePower.DivMoney(gap)
		if err != nil {
			return decimal.NewFromInt(1), out
		}
		return scaling, out
	default:
		return decimal.NewFromInt(1), out
	}
}

func generateSellOrder(r comparisonResult, target money.Money, price *decimal.Decimal, scaling decimal.Decimal, strategy PurchaseStrategy, minOrderValue money.Money, fractional bool, provider *portfolio.ProviderID) *portfolio.OrderElement {
	d := r.diff()
	if d.Round(4).IsZero() || d.GreaterThanOrEqual(decimal.Zero) {
		return nil
	}
	if price == nil {
		return nil
	}
	sellTarget := target.MulDecimal(r.pct).MustSub(target.MulDecimal(r.modelWeight))
	if strategy == PeanutButter {
		sellTarget = sellTarget.MulDecimal(scaling)
	}
	sellTarget = money.Max(sellTarget, minOrderValue)

	p := money.NewFromDecimal(*price, target.Currency())

	if !fractional {
		qty := sellTarget.Decimal().DivRound(*price, 8).Truncate(0)
		if qty.IsZero() {
			return nil
		}
		q := qty
		return &portfolio.OrderElement{Ticker: r.ticker, OrderType: portfolio.Sell, Qty: &q, Price: &p, Provider: provider}
	}

	v := sellTarget
	return &portfolio.OrderElement{Ticker: r.ticker, OrderType: portfolio.Sell, Value: &v, Price: &p, Provider: provider}
}

func generateBuyOrder(r comparisonResult, target, purchasePower money.Money, price *decimal.Decimal, scaling decimal.Decimal, strategy PurchaseStrategy, minOrderValue money.Money, fractional bool, provider *portfolio.ProviderID) *portfolio.OrderElement {
	if purchasePower.LTE(money.Zero(purchasePower.Currency())) {
		return nil
	}
	d := r.diff()
	if d.Round(4).IsZero() || d.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	if price == nil {
		return nil
	}

	underweightValue := target.MulDecimal(r.modelWeight).MustSub(target.MulDecimal(r.pct))
	raw := money.Min(underweightValue, purchasePower)

	if strategy == PeanutButter && raw.GreaterThan(money.Zero(raw.Currency())) {
		scaled := raw.MulDecimal(scaling)
		raw = money.Max(scaled, money.New(1, raw.Currency()))
	}
	raw = money.Max(raw, minOrderValue)

	p := money.NewFromDecimal(*price, target.Currency())

	if !fractional {
		qty := raw.Decimal().DivRound(*price, 8).Truncate(0)
		if qty.IsZero() {
			return nil
		}
		q := qty
		return &portfolio.OrderElement{Ticker: r.ticker, OrderType: portfolio.Buy, Qty: &q, Price: &p, Provider: provider}
	}

	v := raw
	return &portfolio.OrderElement{Ticker: r.ticker, OrderType: portfolio.Buy, Value: &v, Price: &p, Provider: provider}
}

// CompareResult is the purely informational output of ComparePortfolios:
// per-ticker notional to buy or sell to reach target.
type CompareResult struct {
	ToBuy  map[portfolio.Ticker]money.Money
	ToSell map[portfolio.Ticker]money.Money
}

// ComparePortfolios is compare_portfolios from spec §6: a side-effect-free
// snapshot of what buying/selling would be needed to hit the ideal
// allocation, independent of price availability or purchase power.
func ComparePortfolios(real portfolio.PortfolioLike, ideal *portfolio.IdealPortfolio, strategy PurchaseStrategy, targetSize *money.Money) CompareResult {
	target := real.Value()
	if targetSize != nil {
		target = *targetSize
	}

	toBuy := map[portfolio.Ticker]money.Money{}
	toSell := map[portfolio.Ticker]money.Money{}

	for _, h := range ideal.Holdings {
		actual := money.Zero(target.Currency())
		if held, ok := real.GetHolding(h.Ticker); ok {
			actual = held.Value
		}
		var pct decimal.Decimal
		if !actual.IsZero() {
			pct, _ = actual.DivMoney(target)
		}
		diff := h.Weight.Sub(pct)
		if diff.IsZero() {
			continue
		}
		if diff.LessThan(decimal.Zero) {
			toSell[h.Ticker] = target.MulDecimal(pct).MustSub(target.MulDecimal(h.Weight))
		} else {
			toBuy[h.Ticker] = target.MulDecimal(h.Weight).MustSub(target.MulDecimal(pct))
		}
	}
	return CompareResult{ToBuy: toBuy, ToSell: toSell}
}

// GenerateAutoTargetSize is generate_auto_target_size from spec §6: sum of
// real holding values whose ticker is in the ideal, plus total cash across
// constituent portfolios.
func GenerateAutoTargetSize(composite *portfolio.CompositePortfolio, ideal *portfolio.IdealPortfolio) money.Money {
	total := composite.Cash()
	for _, h := range ideal.Holdings {
		if held, ok := composite.GetHolding(h.Ticker); ok {
			total = total.MustAdd(held.Value)
		}
	}
	return total
}
