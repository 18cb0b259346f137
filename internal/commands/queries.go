package commands

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Market answers market-data commands from the coinpaprika API.
type Market struct {
	client *coinpaprika.Client
	charts *chartCache
}

// NewClient creates a coinpaprika client, using the pro API when a key is set.
func NewClient(apiProKey string, timeout time.Duration) *coinpaprika.Client {
	httpClient := &http.Client{Timeout: timeout}
	if apiProKey != "" {
		return coinpaprika.NewClient(httpClient, coinpaprika.WithAPIKey(apiProKey))
	}
	return coinpaprika.NewClient(httpClient)
}

func NewMarket(client *coinpaprika.Client) *Market {
	return &Market{
		client: client,
		charts: newChartCache(),
	}
}

// GetTickerByQuery retrieves the ticker for the given query (symbol, name, etc.)
func (m *Market) GetTickerByQuery(query string) (*coinpaprika.Coin, *coinpaprika.Ticker, error) {
	currency, err := m.searchCoin(query)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to find coin by query")
	}

	log.Debugf("Best match for query '%s' is: %s", query, *currency.ID)
	ticker, err := m.GetTicker(currency)
	return currency, ticker, err
}

// GetTicker fetches the current ticker for the given coin.
func (m *Market) GetTicker(currency *coinpaprika.Coin) (*coinpaprika.Ticker, error) {
	tickerOpts := &coinpaprika.TickersOptions{Quotes: "USD,BTC"}
	ticker, err := m.client.Tickers.GetByID(*currency.ID, tickerOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "could not get ticker %s", *currency.ID)
	}
	return ticker, nil
}

// GetHistoricalTickers fetches historical tickers for the given coin.
func (m *Market) GetHistoricalTickers(currency *coinpaprika.Coin, start time.Time, interval string) ([]*coinpaprika.TickerHistorical, error) {
	tickerOpts := &coinpaprika.TickersHistoricalOptions{
		Quote:    "USD",
		Limit:    200,
		Interval: interval,
		Start:    start,
	}
	tickers, err := m.client.Tickers.GetHistoricalTickersByID(*currency.ID, tickerOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "could not get historical tickers for %s", *currency.ID)
	}
	return tickers, nil
}

// GetTopTickers returns the best ranked tickers.
func (m *Market) GetTopTickers(limit int) ([]*coinpaprika.Ticker, error) {
	tickers, err := m.client.Tickers.List(&coinpaprika.TickersOptions{Quotes: "USD"})
	if err != nil {
		return nil, errors.Wrap(err, "could not list tickers")
	}
	return topRanked(tickers, limit), nil
}

func topRanked(tickers []*coinpaprika.Ticker, limit int) []*coinpaprika.Ticker {
	ranked := make([]*coinpaprika.Ticker, 0, len(tickers))
	for _, t := range tickers {
		if t != nil && t.Symbol != nil && t.Rank != nil && *t.Rank > 0 {
			ranked = append(ranked, t)
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return *ranked[i].Rank < *ranked[j].Rank })

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// searchCoin searches for a coin based on the provided query.
func (m *Market) searchCoin(query string) (*coinpaprika.Coin, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty coin query")
	}

	searchOpts := &coinpaprika.SearchOptions{
		Query:      query,
		Categories: "currencies",
		Modifier:   "symbol_search",
	}
	result, err := m.client.Search.Search(searchOpts)
	if err != nil || len(result.Currencies) == 0 {
		log.Debugf("No results for symbol search, trying name search for '%s'", query)
		searchOpts = &coinpaprika.SearchOptions{Query: query, Categories: "currencies"}
		result, err = m.client.Search.Search(searchOpts)
		if err != nil || len(result.Currencies) == 0 {
			return nil, errors.Errorf("invalid coin name, ticker, or symbol: %s", query)
		}
	}

	return result.Currencies[0], nil
}
