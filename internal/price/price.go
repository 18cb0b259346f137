package price

import (
	"coinpaprika-alert-bot/internal/alert"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// PriceInfo represents the pricing details of a cryptocurrency
type PriceInfo struct {
	ID             string
	Name           string
	Symbol         string
	Rank           int64
	PriceUSD       float64
	MarketCap      float64
	PriceChange24h float64
	UpdatedAt      time.Time
}

// TickerLister lists all coinpaprika tickers.
type TickerLister interface {
	List(options *coinpaprika.TickersOptions) ([]*coinpaprika.Ticker, error)
}

type clientLister struct {
	client *coinpaprika.Client
}

func (c clientLister) List(options *coinpaprika.TickersOptions) ([]*coinpaprika.Ticker, error) {
	return c.client.Tickers.List(options)
}

// Service keeps USD prices of all listed coins in memory, keyed by symbol.
// It implements alert.PriceSource.
type Service struct {
	lister TickerLister
	maxAge time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	prices    map[string]PriceInfo
	fetchedAt time.Time

	refreshMu sync.Mutex
}

// NewService uses the tickers endpoint of client. Prices older than maxAge
// are refreshed on demand.
func NewService(client *coinpaprika.Client, maxAge time.Duration) *Service {
	return newService(clientLister{client: client}, maxAge)
}

func newService(lister TickerLister, maxAge time.Duration) *Service {
	return &Service{
		lister: lister,
		maxAge: maxAge,
		now:    time.Now,
		prices: make(map[string]PriceInfo),
	}
}

// Start refreshes prices every interval until ctx is done.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if err := s.Refresh(ctx); err != nil {
				log.Errorf("❌ Failed to fetch cryptocurrency prices: %v", err)
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	log.Info("🚀 Price updater started.")
}

// Refresh downloads all tickers. Concurrent callers share one download.
func (s *Service) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// another caller may have refreshed while we waited
	if s.fresh() {
		return nil
	}

	type result struct {
		tickers []*coinpaprika.Ticker
		err     error
	}
	done := make(chan result, 1)
	go func() {
		tickers, err := s.lister.List(&coinpaprika.TickersOptions{Quotes: "USD"})
		done <- result{tickers, err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "tickers request")
	case r = <-done:
	}
	if r.err != nil {
		return errors.Wrap(r.err, "could not list tickers")
	}

	now := s.now()
	prices := make(map[string]PriceInfo, len(r.tickers))
	for _, t := range r.tickers {
		info, ok := toPriceInfo(t, now)
		if !ok {
			continue
		}
		// symbols are not unique, the best ranked coin wins
		if existing, found := prices[info.Symbol]; found && betterRank(existing.Rank, info.Rank) {
			continue
		}
		prices[info.Symbol] = info
	}

	s.mu.Lock()
	s.prices = prices
	s.fetchedAt = now
	s.mu.Unlock()

	log.Debugf("✅ Cryptocurrency prices updated successfully: %d symbols", len(prices))
	return nil
}

// CurrentPrice returns the USD price for a coin symbol.
func (s *Service) CurrentPrice(ctx context.Context, coin string) (float64, error) {
	if !s.fresh() {
		if err := s.Refresh(ctx); err != nil {
			return 0, errors.Wrap(alert.ErrUnavailable, err.Error())
		}
	}

	info, ok := s.GetPrice(coin)
	if !ok {
		return 0, errors.Wrapf(alert.ErrUnavailable, "unknown coin %s", coin)
	}
	return info.PriceUSD, nil
}

// GetPrice retrieves the cached price information for a symbol
func (s *Service) GetPrice(symbol string) (PriceInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, exists := s.prices[strings.ToUpper(strings.TrimSpace(symbol))]
	return info, exists
}

// GetAllPrices returns a copy of all cached prices
func (s *Service) GetAllPrices() map[string]PriceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prices := make(map[string]PriceInfo, len(s.prices))
	for k, v := range s.prices {
		prices[k] = v
	}
	return prices
}

func (s *Service) fresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.fetchedAt.IsZero() && s.now().Sub(s.fetchedAt) < s.maxAge
}

func toPriceInfo(t *coinpaprika.Ticker, now time.Time) (PriceInfo, bool) {
	if t == nil || t.ID == nil || t.Symbol == nil {
		return PriceInfo{}, false
	}
	usd, ok := t.Quotes["USD"]
	if !ok || usd.Price == nil {
		return PriceInfo{}, false
	}

	info := PriceInfo{
		ID:        *t.ID,
		Symbol:    strings.ToUpper(*t.Symbol),
		PriceUSD:  *usd.Price,
		UpdatedAt: now,
	}
	if t.Name != nil {
		info.Name = *t.Name
	}
	if t.Rank != nil {
		info.Rank = *t.Rank
	}
	if usd.MarketCap != nil {
		info.MarketCap = *usd.MarketCap
	}
	if usd.PercentChange24h != nil {
		info.PriceChange24h = *usd.PercentChange24h
	}
	return info, true
}

// betterRank reports whether rank a beats rank b; zero means unranked.
func betterRank(a, b int64) bool {
	if a == 0 {
		return false
	}
	return b == 0 || a < b
}
