// Package broker defines the broker adapter contract (spec §4.D) that
// insulates the rebalancing planner from brokerage SDKs, plus the shared
// object cache (§4.I) adapters use to memoise positions/accounts/orders.
package broker

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/sentinel/internal/money"
	"github.com/aristath/sentinel/internal/rebalance/portfolio"
)

// Capabilities declares what an adapter supports, per spec §4.D.
type Capabilities struct {
	SupportsFractionalShares bool
	// SupportsBatchHistory is the max tickers per batch call; 0 means no
	// batch history support.
	SupportsBatchHistory int
	MinOrderValue        money.Money
	MaxOrderDecimals     int32
}

// StockInfo is the canonical, broker-agnostic instrument metadata record
// (spec §6). All fields are optional except Ticker.
type StockInfo struct {
	Ticker         portfolio.Ticker
	Name           string
	Country        string
	Currency       string
	Exchange       string
	Industry       string
	Sector         string
	Location       string
	CUSIP          string
	CIK            string
	SICNum         string
	SICDescription string
	Description    string
	Website        string
	Category       string
	Tradable       bool
	Tags           []string
	Indexes        []string
}

// Adapter is the broker-agnostic contract the planner and executor operate
// against. Implementations insulate the core from brokerage-specific
// SDKs/REST calls (out of scope per spec §1).
type Adapter interface {
	ID() portfolio.ProviderID
	Capabilities() Capabilities

	GetHoldings(ctx context.Context) (*portfolio.RealPortfolio, error)
	GetInstrumentPrice(ctx context.Context, ticker portfolio.Ticker, at *time.Time) (*decimal.Decimal, error)
	GetInstrumentPrices(ctx context.Context, tickers []portfolio.Ticker, at *time.Time) (map[portfolio.Ticker]*decimal.Decimal, error)

	BuyInstrument(ctx context.Context, ticker portfolio.Ticker, qty *decimal.Decimal, value *money.Money) (bool, error)
	SellInstrument(ctx context.Context, ticker portfolio.Ticker, qty *decimal.Decimal, value *money.Money) (bool, error)

	GetUnsettledInstruments(ctx context.Context) (map[portfolio.Ticker]bool, error)
	GetPerTickerProfitOrLoss(ctx context.Context) (map[portfolio.Ticker]portfolio.ProfitModel, error)
	GetDividendHistory(ctx context.Context) (map[portfolio.Ticker]money.Money, error)
	GetStockInfo(ctx context.Context, ticker portfolio.Ticker) (StockInfo, error)
}

// Compile-time assertion that portfolio.BrokerIdentity is satisfied by any
// Adapter — RealPortfolio.Provider only needs the ID() method, so any
// Adapter can be stored there directly.
var _ portfolio.BrokerIdentity = Adapter(nil)
