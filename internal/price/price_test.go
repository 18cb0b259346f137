package price

import (
	"coinpaprika-alert-bot/internal/alert"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	mu      sync.Mutex
	tickers []*coinpaprika.Ticker
	err     error
	calls   int
	block   chan struct{}
}

func (f *fakeLister) List(_ *coinpaprika.TickersOptions) ([]*coinpaprika.Ticker, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickers, f.err
}

func ticker(id, symbol string, rank int64, price float64) *coinpaprika.Ticker {
	return &coinpaprika.Ticker{
		ID:     &id,
		Name:   &id,
		Symbol: &symbol,
		Rank:   &rank,
		Quotes: map[string]coinpaprika.Quote{"USD": {Price: &price}},
	}
}

func TestService_CurrentPrice(t *testing.T) {
	lister := &fakeLister{tickers: []*coinpaprika.Ticker{
		ticker("btc-bitcoin", "BTC", 1, 65500),
		ticker("eth-ethereum", "ETH", 2, 3100),
	}}
	s := newService(lister, time.Minute)

	p, err := s.CurrentPrice(context.Background(), "btc")
	require.NoError(t, err)
	assert.Equal(t, 65500.0, p)

	p, err = s.CurrentPrice(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, 3100.0, p)

	assert.Equal(t, 1, lister.calls, "fresh prices are served from memory")
}

func TestService_UnknownCoin(t *testing.T) {
	s := newService(&fakeLister{tickers: []*coinpaprika.Ticker{ticker("btc-bitcoin", "BTC", 1, 1)}}, time.Minute)

	_, err := s.CurrentPrice(context.Background(), "NOPE")
	assert.True(t, errors.Is(err, alert.ErrUnavailable))
}

func TestService_ListFailureIsUnavailable(t *testing.T) {
	s := newService(&fakeLister{err: errors.New("502 bad gateway")}, time.Minute)

	_, err := s.CurrentPrice(context.Background(), "BTC")
	assert.True(t, errors.Is(err, alert.ErrUnavailable))
}

func TestService_BestRankWinsSymbolCollision(t *testing.T) {
	s := newService(&fakeLister{tickers: []*coinpaprika.Ticker{
		ticker("btc-bitcoin-clone", "BTC", 0, 3),
		ticker("btc-bitcoin", "BTC", 1, 65000),
		ticker("btc-other", "btc", 900, 2),
	}}, time.Minute)

	p, err := s.CurrentPrice(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, 65000.0, p)

	info, ok := s.GetPrice("btc")
	require.True(t, ok)
	assert.Equal(t, "btc-bitcoin", info.ID)
}

func TestService_StalePricesAreRefreshed(t *testing.T) {
	lister := &fakeLister{tickers: []*coinpaprika.Ticker{ticker("btc-bitcoin", "BTC", 1, 60000)}}
	s := newService(lister, time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }

	_, err := s.CurrentPrice(context.Background(), "BTC")
	require.NoError(t, err)

	lister.mu.Lock()
	lister.tickers = []*coinpaprika.Ticker{ticker("btc-bitcoin", "BTC", 1, 66000)}
	lister.mu.Unlock()
	now = now.Add(2 * time.Minute)

	p, err := s.CurrentPrice(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, 66000.0, p)
	assert.Equal(t, 2, lister.calls)
}

func TestService_RefreshHonoursContext(t *testing.T) {
	lister := &fakeLister{block: make(chan struct{})}
	defer close(lister.block)
	s := newService(lister, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.CurrentPrice(ctx, "BTC")
	assert.True(t, errors.Is(err, alert.ErrUnavailable))
}

func TestService_SkipsTickersWithoutUSDPrice(t *testing.T) {
	id, symbol := "xyz-nothing", "XYZ"
	s := newService(&fakeLister{tickers: []*coinpaprika.Ticker{
		{ID: &id, Symbol: &symbol, Quotes: map[string]coinpaprika.Quote{}},
		ticker("btc-bitcoin", "BTC", 1, 1),
	}}, time.Minute)

	require.NoError(t, s.Refresh(context.Background()))
	assert.Len(t, s.GetAllPrices(), 1)
}
