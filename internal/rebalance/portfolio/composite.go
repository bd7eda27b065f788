package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/sentinel/internal/money"
)

// CompositePortfolio is a read-through aggregate of N RealPortfolios,
// exposing the union of holdings (merged by ticker for comparison
// purposes), total cash, total value, and lookup by provider identity.
//
// Rebuilding the merged cache is idempotent and is required after any
// constituent RealPortfolio changes — callers mutate a constituent then
// call Rebuild.
type CompositePortfolio struct {
	Portfolios []*RealPortfolio

	merged      map[Ticker]RealPortfolioElement
	byProvider  map[ProviderID]*RealPortfolio
	mergedOrder []Ticker
}

// NewCompositePortfolio builds a CompositePortfolio over the given
// constituents and builds its merged cache.
func NewCompositePortfolio(portfolios []*RealPortfolio) *CompositePortfolio {
	c := &CompositePortfolio{Portfolios: portfolios}
	c.Rebuild()
	return c
}

// Rebuild recomputes the merged-holdings cache and provider index. Must be
// called after any constituent portfolio is mutated.
func (c *CompositePortfolio) Rebuild() {
	c.merged = make(map[Ticker]RealPortfolioElement)
	c.byProvider = make(map[ProviderID]*RealPortfolio)
	c.mergedOrder = nil
	for _, p := range c.Portfolios {
		if p.Provider != nil {
			c.byProvider[p.Provider.ID()] = p
		}
		for _, h := range p.Holdings() {
			if existing, ok := c.merged[h.Ticker]; ok {
				c.merged[h.Ticker] = existing.Add(h)
			} else {
				c.merged[h.Ticker] = h
				c.mergedOrder = append(c.mergedOrder, h.Ticker)
			}
		}
	}
}

// Holdings returns the union of holdings across constituents, same-ticker
// holdings merged, in first-seen order.
func (c *CompositePortfolio) Holdings() []RealPortfolioElement {
	out := make([]RealPortfolioElement, 0, len(c.mergedOrder))
	for _, t := range c.mergedOrder {
		out = append(out, c.merged[t])
	}
	return out
}

// GetHolding returns the merged element for ticker, if any constituent
// holds it.
func (c *CompositePortfolio) GetHolding(ticker Ticker) (*RealPortfolioElement, bool) {
	h, ok := c.merged[ticker]
	if !ok {
		return nil, false
	}
	return &h, true
}

// ByProvider returns the constituent RealPortfolio for a given provider, if
// present.
func (c *CompositePortfolio) ByProvider(id ProviderID) (*RealPortfolio, bool) {
	p, ok := c.byProvider[id]
	return p, ok
}

// Cash returns the total cash across all constituents.
func (c *CompositePortfolio) Cash() money.Money {
	total := money.Money{}
	for _, p := range c.Portfolios {
		total = total.MustAdd(p.Cash)
	}
	return total
}

// Value returns total value: sum of constituent values (which each already
// include their own cash).
func (c *CompositePortfolio) Value() money.Money {
	total := money.Money{}
	for _, p := range c.Portfolios {
		total = total.MustAdd(p.Value())
	}
	return total
}

var _ PortfolioLike = (*CompositePortfolio)(nil)

// OrderElement is a single planned BUY or SELL. Exactly one of Value or Qty
// is set at plan time; Price is optional and informational except when
// used to derive notional from Qty.
type OrderElement struct {
	Ticker    Ticker
	OrderType OrderType
	Value     *money.Money
	Qty       *decimal.Decimal
	Price     *money.Money
	Provider  *ProviderID
}

// InferredValue returns Value if set, else Qty*Price. Returns the zero
// Money (no currency tag) if neither can be derived.
func (o OrderElement) InferredValue() money.Money {
	if o.Value != nil {
		return *o.Value
	}
	if o.Qty != nil && o.Price != nil {
		return o.Price.MulDecimal(*o.Qty)
	}
	return money.Money{}
}

// Add merges two OrderElements of the same (ticker, order_type), summing
// whichever of Value/Qty is populated. When one side is a share count and
// the other a notional (e.g. two providers with different fractional-share
// support both bought the same ticker), the merge falls back to notional
// value via InferredValue rather than mixing units. Panics only on
// ticker/type mismatch — callers are expected to only merge elements
// produced by the same planner run.
func (o OrderElement) Add(other OrderElement) OrderElement {
	if o.Ticker != other.Ticker || o.OrderType != other.OrderType {
		panic("portfolio: cannot merge OrderElement of different ticker/type")
	}
	result := o
	switch {
	case o.Value != nil && other.Value != nil:
		v := o.Value.MustAdd(*other.Value)
		result.Value = &v
	case o.Qty != nil && other.Qty != nil:
		q := o.Qty.Add(*other.Qty)
		result.Qty = &q
	case o.Value == nil && o.Qty == nil:
		result = other
	case other.Value == nil && other.Qty == nil:
		// other contributes nothing additional
	default:
		v := o.InferredValue().MustAdd(other.InferredValue())
		result.Value = &v
		result.Qty = nil
	}
	if result.Price == nil {
		result.Price = other.Price
	}
	return result
}

// OrderPlan pairs the buy and sell order lists produced by a planner run.
type OrderPlan struct {
	ToBuy  []OrderElement
	ToSell []OrderElement
}

// AllOrders returns ToBuy followed by ToSell, useful for threading
// existing_orders into a subsequent planner call.
func (p OrderPlan) AllOrders() []OrderElement {
	out := make([]OrderElement, 0, len(p.ToBuy)+len(p.ToSell))
	out = append(out, p.ToBuy...)
	out = append(out, p.ToSell...)
	return out
}

// Add merges two OrderPlans, summing per-ticker-and-type within each side.
func (p OrderPlan) Add(other OrderPlan) OrderPlan {
	return OrderPlan{
		ToBuy:  mergeElements(p.ToBuy, other.ToBuy),
		ToSell: mergeElements(p.ToSell, other.ToSell),
	}
}

func mergeElements(a, b []OrderElement) []OrderElement {
	index := make(map[Ticker]int, len(a))
	out := make([]OrderElement, len(a))
	copy(out, a)
	for i, e := range out {
		index[e.Ticker] = i
	}
	for _, e := range b {
		if i, ok := index[e.Ticker]; ok {
			out[i] = out[i].Add(e)
		} else {
			index[e.Ticker] = len(out)
			out = append(out, e)
		}
	}
	return out
}
