// Package portfolio holds the core portfolio data model: ideal and real
// portfolios, the composite read-through aggregate, order elements/plans,
// and the profit model. These are pure value types with no broker or I/O
// dependency: business types live here, infrastructure plugs into them
// from the outside.
package portfolio

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/sentinel/internal/money"
)

// Ticker is an opaque uppercase alphanumeric symbol. Validity is a broker
// concern; this package treats it as a bare comparable identifier.
type Ticker string

// ProviderID is the closed enumeration of broker providers a plan can route
// orders to.
type ProviderID string

const (
	Alpaca              ProviderID = "ALPACA"
	AlpacaPaper         ProviderID = "ALPACA_PAPER"
	Robinhood           ProviderID = "ROBINHOOD"
	Webull              ProviderID = "WEBULL"
	WebullPaper         ProviderID = "WEBULL_PAPER"
	MooMoo              ProviderID = "MOOMOO"
	Schwab              ProviderID = "SCHWAB"
	LocalDict           ProviderID = "LOCAL_DICT"
	LocalDictNoPartial  ProviderID = "LOCAL_DICT_NO_PARTIAL"
	Dummy               ProviderID = "DUMMY"
)

// OrderType distinguishes buy and sell order elements.
type OrderType string

const (
	Buy  OrderType = "BUY"
	Sell OrderType = "SELL"
)

// IdealPortfolioElement is a single weighted-ticker target.
type IdealPortfolioElement struct {
	Ticker Ticker
	Weight decimal.Decimal
}

// IdealPortfolio is the desired allocation: weighted tickers that should sum
// to 1 after Normalize. Holdings are kept sorted by weight descending as an
// invariant of Normalize.
type IdealPortfolio struct {
	Holdings   []IdealPortfolioElement
	SourceDate time.Time
}

// NewIdealPortfolio builds an IdealPortfolio from elements, defaulting
// SourceDate to today if zero.
func NewIdealPortfolio(holdings []IdealPortfolioElement, sourceDate time.Time) *IdealPortfolio {
	if sourceDate.IsZero() {
		sourceDate = time.Now().UTC()
	}
	cp := make([]IdealPortfolioElement, len(holdings))
	copy(cp, holdings)
	return &IdealPortfolio{Holdings: cp, SourceDate: sourceDate}
}

// GetHolding returns the element for ticker, if present.
func (p *IdealPortfolio) GetHolding(ticker Ticker) (*IdealPortfolioElement, bool) {
	for i := range p.Holdings {
		if p.Holdings[i].Ticker == ticker {
			return &p.Holdings[i], true
		}
	}
	return nil, false
}

// Contains reports whether ticker is present in the portfolio.
func (p *IdealPortfolio) Contains(ticker Ticker) bool {
	_, ok := p.GetHolding(ticker)
	return ok
}

// Normalize rescales weights so they sum to 1, then sorts holdings by
// weight descending. A no-op (returns unchanged) when total weight is zero.
func (p *IdealPortfolio) Normalize() *IdealPortfolio {
	total := decimal.Zero
	for _, h := range p.Holdings {
		total = total.Add(h.Weight)
	}
	if !total.IsZero() {
		scale := decimal.NewFromInt(1).DivRound(total, 16)
		for i := range p.Holdings {
			p.Holdings[i].Weight = p.Holdings[i].Weight.Mul(scale)
		}
	}
	sort.SliceStable(p.Holdings, func(i, j int) bool {
		return p.Holdings[i].Weight.GreaterThan(p.Holdings[j].Weight)
	})
	return p
}

// AddStock inserts (or overwrites) a single holding at the given weight and
// normalizes.
func (p *IdealPortfolio) AddStock(ticker Ticker, weight decimal.Decimal) *IdealPortfolio {
	if existing, ok := p.GetHolding(ticker); ok {
		existing.Weight = weight
	} else {
		p.Holdings = append(p.Holdings, IdealPortfolioElement{Ticker: ticker, Weight: weight})
	}
	return p.Normalize()
}

// ExcludeResult reports the total weight removed by Exclude, for logging.
type ExcludeResult struct {
	RemovedTickers []Ticker
	RemovedWeight  decimal.Decimal
}

// Exclude removes any holding whose ticker is in tickers, then normalizes.
// Returns the tally of what was removed.
func (p *IdealPortfolio) Exclude(tickers []Ticker) ExcludeResult {
	excludeSet := make(map[Ticker]bool, len(tickers))
	for _, t := range tickers {
		excludeSet[t] = true
	}
	removed := decimal.Zero
	var removedTickers []Ticker
	kept := p.Holdings[:0:0]
	for _, h := range p.Holdings {
		if excludeSet[h.Ticker] {
			removed = removed.Add(h.Weight)
			removedTickers = append(removedTickers, h.Ticker)
			continue
		}
		kept = append(kept, h)
	}
	p.Holdings = kept
	p.Normalize()
	return ExcludeResult{RemovedTickers: removedTickers, RemovedWeight: removed}
}

// Reweight multiplies the weight of each ticker in tickers by factor; any
// ticker absent from the portfolio is inserted at minWeight. Then
// normalizes.
func (p *IdealPortfolio) Reweight(tickers []Ticker, factor decimal.Decimal, minWeight decimal.Decimal) *IdealPortfolio {
	for _, t := range tickers {
		if existing, ok := p.GetHolding(t); ok {
			existing.Weight = existing.Weight.Mul(factor)
		} else {
			p.Holdings = append(p.Holdings, IdealPortfolioElement{Ticker: t, Weight: minWeight})
		}
	}
	return p.Normalize()
}

// RealPortfolioElement is a single holding in a broker account.
type RealPortfolioElement struct {
	Ticker       Ticker
	Units        decimal.Decimal
	Value        money.Money
	Weight       decimal.Decimal
	Unsettled    bool
	Dividends    money.Money
	Appreciation money.Money
}

// Add merges two elements of the same ticker, summing units, value,
// dividends and appreciation. Panics if tickers differ — callers must check
// first (see RealPortfolio.AddHolding, which only ever merges same-ticker).
func (e RealPortfolioElement) Add(other RealPortfolioElement) RealPortfolioElement {
	if e.Ticker != other.Ticker {
		panic("portfolio: cannot merge RealPortfolioElement of different tickers")
	}
	return RealPortfolioElement{
		Ticker:       e.Ticker,
		Units:        e.Units.Add(other.Units),
		Value:        e.Value.MustAdd(other.Value),
		Unsettled:    e.Unsettled || other.Unsettled,
		Dividends:    e.Dividends.MustAdd(other.Dividends),
		Appreciation: e.Appreciation.MustAdd(other.Appreciation),
	}
}

// ProfitModel tallies appreciation and dividends, e.g. per-ticker P&L.
type ProfitModel struct {
	Appreciation money.Money
	Dividends    money.Money
}

// Add returns the componentwise sum of two ProfitModels.
func (p ProfitModel) Add(other ProfitModel) ProfitModel {
	return ProfitModel{
		Appreciation: p.Appreciation.MustAdd(other.Appreciation),
		Dividends:    p.Dividends.MustAdd(other.Dividends),
	}
}

// BrokerIdentity is the minimal broker identity a RealPortfolio tracks —
// just enough for the composite orchestrator to route by ProviderID without
// depending on the full broker.Adapter interface (avoids an import cycle
// between portfolio and broker).
type BrokerIdentity interface {
	ID() ProviderID
}

// PortfolioLike is shared by RealPortfolio and CompositePortfolio so the
// planner (§4.F) can accept either. Per Design Notes, this promotes the
// source's duck-typed PortfolioProtocol to an explicit interface.
type PortfolioLike interface {
	Value() money.Money
	Holdings() []RealPortfolioElement
	GetHolding(ticker Ticker) (*RealPortfolioElement, bool)
}

// RealPortfolio is a single broker account's snapshot: holdings, cash, and
// optionally the adapter that produced it and its profit-and-loss model.
type RealPortfolio struct {
	holdings        []RealPortfolioElement
	Cash            money.Money
	Provider        BrokerIdentity
	ProfitAndLoss   *ProfitModel
	currencyDefault money.Currency
}

// NewRealPortfolio builds a RealPortfolio, reweighting on construction.
func NewRealPortfolio(holdings []RealPortfolioElement, cash money.Money, provider BrokerIdentity) *RealPortfolio {
	cp := make([]RealPortfolioElement, len(holdings))
	copy(cp, holdings)
	p := &RealPortfolio{holdings: cp, Cash: cash, Provider: provider, currencyDefault: cash.Currency()}
	p.reweight()
	return p
}

// Holdings returns the portfolio's holdings.
func (p *RealPortfolio) Holdings() []RealPortfolioElement { return p.holdings }

// GetHolding returns the element for ticker, if present.
func (p *RealPortfolio) GetHolding(ticker Ticker) (*RealPortfolioElement, bool) {
	for i := range p.holdings {
		if p.holdings[i].Ticker == ticker {
			return &p.holdings[i], true
		}
	}
	return nil, false
}

// Value returns the sum of all holding values plus cash.
func (p *RealPortfolio) Value() money.Money {
	total := p.Cash
	for _, h := range p.holdings {
		total = total.MustAdd(h.Value)
	}
	return total
}

// reweight recomputes each holding's weight from value/total. Skipped (left
// unchanged) if total value is zero.
func (p *RealPortfolio) reweight() {
	total := p.Value()
	if total.IsZero() {
		return
	}
	for i := range p.holdings {
		w, err := p.holdings[i].Value.DivMoney(total)
		if err == nil {
			p.holdings[i].Weight = w
		}
	}
}

// AddHolding merges holding into the portfolio by ticker and reweights.
func (p *RealPortfolio) AddHolding(holding RealPortfolioElement) *RealPortfolio {
	if existing, ok := p.GetHolding(holding.Ticker); ok {
		*existing = existing.Add(holding)
	} else {
		p.holdings = append(p.holdings, holding)
	}
	p.reweight()
	return p
}

// Merge folds another RealPortfolio's holdings into this one, reweighting
// once at the end (mirrors the source's RealPortfolio.__add__).
func (p *RealPortfolio) Merge(other *RealPortfolio) *RealPortfolio {
	for _, h := range other.holdings {
		if existing, ok := p.GetHolding(h.Ticker); ok {
			*existing = existing.Add(h)
		} else {
			p.holdings = append(p.holdings, h)
		}
	}
	p.reweight()
	return p
}

var _ PortfolioLike = (*RealPortfolio)(nil)
