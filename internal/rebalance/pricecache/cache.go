// Package pricecache implements the memoising, TTL-bounded price fetcher
// that sits between the planner and a broker adapter's quote endpoints
// (spec §4.C). It wraps two pluggable fetchers — a batch fetcher and an
// optional single-ticker fetcher — and never returns a value newer than
// the call that produced it (spec §5 ordering guarantees).
package pricecache

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/sentinel/internal/rebalance/portfolio"
	"github.com/aristath/sentinel/internal/rebalance/rerrors"
)

// instantLabel is the cache label used for spot quotes (date == nil).
const instantLabel = "INSTANT"

// DefaultTTL is the default freshness window for INSTANT entries.
const DefaultTTL = 3600 * time.Second

// BatchFetcher fetches prices for a batch of tickers as of an optional
// date (nil date means "spot/current").
type BatchFetcher func(tickers []portfolio.Ticker, at *time.Time) (map[portfolio.Ticker]*decimal.Decimal, error)

// SingleFetcher fetches a single ticker's price. Optional: a cache can be
// constructed with a nil SingleFetcher, in which case single lookups fall
// back to a batch-of-one call.
type SingleFetcher func(ticker portfolio.Ticker, at *time.Time) (*decimal.Decimal, error)

type entry struct {
	price    *decimal.Decimal
	fetchedAt time.Time
}

// Cache is a per-adapter price cache. Not safe for sharing across adapter
// instances (spec §5 shared-resource policy); safe for concurrent use
// within a single adapter's lifetime.
type Cache struct {
	batch  BatchFetcher
	single SingleFetcher
	ttl    time.Duration
	log    zerolog.Logger

	mu    sync.Mutex
	store map[string]map[portfolio.Ticker]entry
}

// New builds a Cache. ttl <= 0 uses DefaultTTL.
func New(batch BatchFetcher, single SingleFetcher, ttl time.Duration, log zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		batch:  batch,
		single: single,
		ttl:    ttl,
		log:    log.With().Str("component", "price_cache").Logger(),
		store:  make(map[string]map[portfolio.Ticker]entry),
	}
}

func label(at *time.Time) string {
	if at == nil {
		return instantLabel
	}
	return at.Format("2006-01-02")
}

// GetPrice returns the price for ticker as of at (nil = spot). Cached fresh
// hits (including a cached "not available" nil) are returned without
// re-fetching; a stale INSTANT entry is evicted lazily and re-fetched.
func (c *Cache) GetPrice(ticker portfolio.Ticker, at *time.Time) (*decimal.Decimal, error) {
	lbl := label(at)

	c.mu.Lock()
	byTicker, ok := c.store[lbl]
	if ok {
		if e, found := byTicker[ticker]; found {
			if lbl != instantLabel || time.Since(e.fetchedAt) <= c.ttl {
				c.mu.Unlock()
				return e.price, nil
			}
			delete(byTicker, ticker)
		}
	}
	c.mu.Unlock()

	var price *decimal.Decimal
	var err error
	if c.single != nil {
		price, err = c.single(ticker, at)
	} else {
		prices, berr := c.batch([]portfolio.Ticker{ticker}, at)
		err = berr
		if berr == nil {
			price = prices[ticker]
		}
	}
	if err != nil {
		return nil, rerrors.PriceFetch{Tickers: []string{string(ticker)}, Cause: err}
	}

	c.store1(lbl, ticker, price)
	return price, nil
}

func (c *Cache) store1(lbl string, ticker portfolio.Ticker, price *decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store[lbl] == nil {
		c.store[lbl] = make(map[portfolio.Ticker]entry)
	}
	c.store[lbl][ticker] = entry{price: price, fetchedAt: time.Now()}
}

// GetPrices returns cached hits for tickers, then calls the batch fetcher
// exactly once for the misses, merges, and returns the full map.
func (c *Cache) GetPrices(tickers []portfolio.Ticker, at *time.Time) (map[portfolio.Ticker]*decimal.Decimal, error) {
	lbl := label(at)
	result := make(map[portfolio.Ticker]*decimal.Decimal, len(tickers))
	var misses []portfolio.Ticker

	c.mu.Lock()
	byTicker := c.store[lbl]
	for _, t := range tickers {
		if byTicker != nil {
			if e, found := byTicker[t]; found {
				if lbl != instantLabel || time.Since(e.fetchedAt) <= c.ttl {
					result[t] = e.price
					continue
				}
				delete(byTicker, t)
			}
		}
		misses = append(misses, t)
	}
	c.mu.Unlock()

	if len(misses) == 0 {
		return result, nil
	}

	fetched, err := c.batch(misses, at)
	if err != nil {
		missing := make([]string, len(misses))
		for i, t := range misses {
			missing[i] = string(t)
		}
		return nil, rerrors.PriceFetch{Tickers: missing, Cause: err}
	}

	c.mu.Lock()
	if c.store[lbl] == nil {
		c.store[lbl] = make(map[portfolio.Ticker]entry)
	}
	now := time.Now()
	for _, t := range misses {
		p := fetched[t]
		c.store[lbl][t] = entry{price: p, fetchedAt: now}
		result[t] = p
	}
	c.mu.Unlock()

	return result, nil
}

// Clear empties the cache, e.g. after TTL-unrelated invalidation events.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]map[portfolio.Ticker]entry)
}
