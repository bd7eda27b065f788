// Package local provides an in-memory broker adapter used for tests and CLI
// dry-runs, grounded directly in the original LocalDictProvider /
// LocalDictNoPartialProvider (py_portfolio_index/portfolio_providers/local_dict.py).
// It settles orders immediately and synthesizes prices for unknown tickers
// via a pluggable generator, so planner scenarios can run without a live
// broker connection.
package local

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/sentinel/internal/money"
	"github.com/aristath/sentinel/internal/rebalance/broker"
	"github.com/aristath/sentinel/internal/rebalance/portfolio"
)

// PriceGenerator synthesizes a price for a ticker with no configured price.
type PriceGenerator interface {
	Next(ticker portfolio.Ticker) decimal.Decimal
}

// FixedGenerator always returns the same price, mirroring the source's
// FixedGen.
type FixedGenerator struct{ Value decimal.Decimal }

func (g FixedGenerator) Next(portfolio.Ticker) decimal.Decimal { return g.Value }

// RandomGenerator returns a pseudo-random price in [1.50, 100.00], mirroring
// the source's RandGen (random.randint(150, 10000) / 100).
type RandomGenerator struct {
	rnd *rand.Rand
}

// NewRandomGenerator seeds a RandomGenerator. seed == 0 uses a time-based seed.
func NewRandomGenerator(seed int64) *RandomGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomGenerator{rnd: rand.New(rand.NewSource(seed))}
}

func (g *RandomGenerator) Next(portfolio.Ticker) decimal.Decimal {
	cents := g.rnd.Intn(10000-150+1) + 150
	return decimal.New(int64(cents), -2)
}

// Provider is the in-memory broker adapter. It supports fractional shares
// by default; construct with Fractional=false for the
// LOCAL_DICT_NO_PARTIAL variant.
type Provider struct {
	id         portfolio.ProviderID
	Fractional bool

	mu        sync.Mutex
	prices    map[portfolio.Ticker]decimal.Decimal
	generator PriceGenerator
	portfolio *portfolio.RealPortfolio
}

// New builds a LOCAL_DICT provider seeded with holdings, cash, and an
// optional fixed price dict (nil uses the generator for every ticker).
func New(holdings []portfolio.RealPortfolioElement, cash money.Money, prices map[portfolio.Ticker]decimal.Decimal, gen PriceGenerator) *Provider {
	if gen == nil {
		gen = NewRandomGenerator(0)
	}
	if prices == nil {
		prices = map[portfolio.Ticker]decimal.Decimal{}
	}
	p := &Provider{
		id:         portfolio.LocalDict,
		Fractional: true,
		prices:     prices,
		generator:  gen,
	}
	p.portfolio = portfolio.NewRealPortfolio(holdings, cash, p)
	return p
}

// NewNoPartial builds a LOCAL_DICT_NO_PARTIAL provider (integer shares only).
func NewNoPartial(holdings []portfolio.RealPortfolioElement, cash money.Money, prices map[portfolio.Ticker]decimal.Decimal, gen PriceGenerator) *Provider {
	p := New(holdings, cash, prices, gen)
	p.id = portfolio.LocalDictNoPartial
	p.Fractional = false
	return p
}

// NewDummy builds a DUMMY provider: same in-memory behavior as LOCAL_DICT,
// tagged with the placeholder ProviderID used in smoke tests and examples
// where the specific routing identity doesn't matter.
func NewDummy(holdings []portfolio.RealPortfolioElement, cash money.Money, prices map[portfolio.Ticker]decimal.Decimal, gen PriceGenerator) *Provider {
	p := New(holdings, cash, prices, gen)
	p.id = portfolio.Dummy
	return p
}

func (p *Provider) ID() portfolio.ProviderID { return p.id }

func (p *Provider) Capabilities() broker.Capabilities {
	return broker.Capabilities{
		SupportsFractionalShares: p.Fractional,
		SupportsBatchHistory:     50,
		MinOrderValue:            money.New(2, money.USD),
		MaxOrderDecimals:         4,
	}
}

func (p *Provider) priceFor(ticker portfolio.Ticker) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.prices[ticker]; ok {
		return v
	}
	v := p.generator.Next(ticker)
	p.prices[ticker] = v
	return v
}

func (p *Provider) GetHoldings(context.Context) (*portfolio.RealPortfolio, error) {
	return p.portfolio, nil
}

func (p *Provider) GetInstrumentPrice(_ context.Context, ticker portfolio.Ticker, _ *time.Time) (*decimal.Decimal, error) {
	v := p.priceFor(ticker)
	return &v, nil
}

func (p *Provider) GetInstrumentPrices(ctx context.Context, tickers []portfolio.Ticker, at *time.Time) (map[portfolio.Ticker]*decimal.Decimal, error) {
	out := make(map[portfolio.Ticker]*decimal.Decimal, len(tickers))
	for _, t := range tickers {
		out[t], _ = p.GetInstrumentPrice(ctx, t, at)
	}
	return out, nil
}

func (p *Provider) BuyInstrument(_ context.Context, ticker portfolio.Ticker, qty *decimal.Decimal, value *money.Money) (bool, error) {
	price := p.priceFor(ticker)
	var resolvedQty decimal.Decimal
	var delta money.Money
	if value != nil {
		resolvedQty = value.Decimal().Div(price)
		delta = *value
	} else if qty != nil {
		resolvedQty = *qty
		delta = money.NewFromDecimal(price.Mul(*qty), money.USD)
	}
	p.mu.Lock()
	p.portfolio.AddHolding(portfolio.RealPortfolioElement{Ticker: ticker, Units: resolvedQty, Value: delta})
	p.mu.Unlock()
	return true, nil
}

func (p *Provider) SellInstrument(_ context.Context, ticker portfolio.Ticker, qty *decimal.Decimal, value *money.Money) (bool, error) {
	price := p.priceFor(ticker)
	var resolvedQty decimal.Decimal
	var delta money.Money
	if value != nil {
		resolvedQty = value.Decimal().Div(price).Neg()
		delta = value.MulDecimal(decimal.NewFromInt(-1))
	} else if qty != nil {
		resolvedQty = qty.Neg()
		delta = money.NewFromDecimal(price.Mul(*qty).Neg(), money.USD)
	}
	p.mu.Lock()
	p.portfolio.AddHolding(portfolio.RealPortfolioElement{Ticker: ticker, Units: resolvedQty, Value: delta})
	p.mu.Unlock()
	return true, nil
}

// GetUnsettledInstruments always returns empty: the local adapter settles
// immediately, matching the source's "we settle right away" comment.
func (p *Provider) GetUnsettledInstruments(context.Context) (map[portfolio.Ticker]bool, error) {
	return map[portfolio.Ticker]bool{}, nil
}

func (p *Provider) GetPerTickerProfitOrLoss(context.Context) (map[portfolio.Ticker]portfolio.ProfitModel, error) {
	return map[portfolio.Ticker]portfolio.ProfitModel{}, nil
}

func (p *Provider) GetDividendHistory(context.Context) (map[portfolio.Ticker]money.Money, error) {
	return map[portfolio.Ticker]money.Money{}, nil
}

func (p *Provider) GetStockInfo(_ context.Context, ticker portfolio.Ticker) (broker.StockInfo, error) {
	return broker.StockInfo{Ticker: ticker}, nil
}

var _ broker.Adapter = (*Provider)(nil)
