// Package executor implements purchase_composite_order_plan (spec §4.H):
// walking an already-computed portfolio.OrderPlan per provider and
// submitting it through broker.Adapter, handling throttling and, when
// SkipErroredStocks is set, continuing past per-ticker failures.
package executor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/rebalance/broker"
	"github.com/aristath/sentinel/internal/rebalance/portfolio"
	"github.com/aristath/sentinel/internal/rebalance/rerrors"
)

// DefaultThrottleRetryInterval is the fixed backoff the executor sleeps
// before resubmitting an order that came back rerrors.Throttled, per
// spec §4.H ("fixed interval, not exponential").
const DefaultThrottleRetryInterval = 60 * time.Second

// Options controls PurchaseCompositeOrderPlan's submission behavior.
type Options struct {
	IncludeSellOrders bool
	// IgnoreUnsettled skips any order whose ticker is in the provider's
	// GetUnsettledInstruments set, per spec §4.H, instead of submitting it.
	IgnoreUnsettled    bool
	SkipErroredStocks  bool // true: one ticker's failure doesn't abort the run; false (the zero value) stops at the first failure
	MaxThrottleRetries int  // default 1
	Log                zerolog.Logger
}

// Result tallies what happened to each submitted order.
type Result struct {
	Submitted []portfolio.OrderElement
	Skipped   []portfolio.OrderElement
	Failed    map[portfolio.Ticker]error
}

// ProviderOrders pairs an adapter with the slice of orders routed to it —
// normally that provider's OrderPlan from GenerateCompositeOrderPlan, buys
// and sells together (OrderPlan.AllOrders).
type ProviderOrders struct {
	Adapter broker.Adapter
	Orders  []portfolio.OrderElement
}

// PurchaseCompositeOrderPlan is purchase_composite_order_plan from spec
// §4.H: submits every provider's orders, retrying a throttled order a
// bounded number of times at a fixed interval, and — unless
// SkipErroredStocks is false — continuing past any single ticker's
// failure so one bad order never blocks the rest of the plan.
func PurchaseCompositeOrderPlan(ctx context.Context, providerOrders []ProviderOrders, opts Options) Result {
	skipErrored := opts.SkipErroredStocks
	maxRetries := opts.MaxThrottleRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	result := Result{Failed: map[portfolio.Ticker]error{}}

	for _, po := range providerOrders {
		var unsettled map[portfolio.Ticker]bool
		if opts.IgnoreUnsettled {
			var err error
			unsettled, err = po.Adapter.GetUnsettledInstruments(ctx)
			if err != nil {
				opts.Log.Error().Err(err).Str("provider", string(po.Adapter.ID())).Msg("failed to fetch unsettled instruments")
				unsettled = nil
			}
		}

		for _, order := range po.Orders {
			if order.OrderType == portfolio.Sell && !opts.IncludeSellOrders {
				result.Skipped = append(result.Skipped, order)
				continue
			}

			if opts.IgnoreUnsettled && unsettled[order.Ticker] {
				result.Skipped = append(result.Skipped, order)
				opts.Log.Debug().Str("ticker", string(order.Ticker)).Str("provider", string(po.Adapter.ID())).Msg("skipping unsettled ticker")
				continue
			}

			err := submitWithRetry(ctx, po.Adapter, order, maxRetries, opts.Log)
			if err != nil {
				result.Failed[order.Ticker] = err
				opts.Log.Error().Err(err).Str("ticker", string(order.Ticker)).Str("provider", string(po.Adapter.ID())).Msg("order submission failed")
				if !skipErrored {
					return result
				}
				continue
			}
			result.Submitted = append(result.Submitted, order)
		}
	}

	return result
}

func submitWithRetry(ctx context.Context, adapter broker.Adapter, order portfolio.OrderElement, maxRetries int, log zerolog.Logger) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		var ok bool
		var err error
		if order.OrderType == portfolio.Buy {
			ok, err = adapter.BuyInstrument(ctx, order.Ticker, order.Qty, order.Value)
		} else {
			ok, err = adapter.SellInstrument(ctx, order.Ticker, order.Qty, order.Value)
		}
		if err == nil {
			if !ok {
				return rerrors.Order{Message: "adapter declined order for " + string(order.Ticker)}
			}
			return nil
		}

		if throttle, isThrottle := err.(rerrors.Throttled); isThrottle {
			lastErr = throttle
			wait := DefaultThrottleRetryInterval
			if throttle.RetryAfterSeconds > 0 {
				wait = time.Duration(throttle.RetryAfterSeconds) * time.Second
			}
			log.Warn().Str("ticker", string(order.Ticker)).Dur("retry_after", wait).Msg("order throttled, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		return err
	}
	return lastErr
}
