package commands

import (
	"bytes"
	"coinpaprika-alert-bot/lib/helpers"
	"coinpaprika-alert-bot/lib/translation"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const chartCacheDuration = 5 * time.Minute

var (
	backgroundColor = drawing.Color{R: 55, G: 55, B: 55, A: 255}
	textColor       = drawing.Color{R: 200, G: 200, B: 200, A: 255}
	gridColor       = drawing.Color{R: 100, G: 100, B: 100, A: 128}
	lineColor       = drawing.Color{R: 0, G: 122, B: 255, A: 255}
	fillColor       = drawing.Color{R: 0, G: 122, B: 255, A: 25}
)

// CommandChart renders a 7 day USD price chart and a caption with the coin's market summary.
// A nil chart with a caption means the coin has no recent trading data.
func (m *Market) CommandChart(argument string) ([]byte, string, error) {
	log.Debugf("processing command /c with argument :%s", argument)

	key := strings.ToLower(strings.TrimSpace(argument))
	if cachedItem, found := m.charts.get(key); found {
		log.Debugf("returning cached result for %s", key)
		return cachedItem.ChartData, cachedItem.Caption, nil
	}

	c, err := m.searchCoin(argument)
	if err != nil {
		return nil, "", errors.Wrap(err, "command /c")
	}

	tickers, err := m.GetHistoricalTickers(c, time.Now().Add(-7*24*time.Hour), "1h")
	if err != nil {
		return nil, "", errors.Wrap(err, "command /c")
	}
	points := chartPoints(tickers)
	if len(points.times) < 2 {
		return nil, notTraded(c), nil
	}

	details, err := m.GetTicker(c)
	if err != nil {
		return nil, "", errors.Wrap(err, "command /c")
	}

	chartData, err := renderChart(*c.Name, *c.Symbol, points)
	if err != nil {
		return nil, "", errors.Wrap(err, "could not render chart")
	}

	caption := chartCaption(c, details)
	m.charts.set(key, chartData, caption, chartCacheDuration)

	return chartData, caption, nil
}

type series struct {
	times  []time.Time
	prices []float64
}

func chartPoints(tickers []*coinpaprika.TickerHistorical) series {
	var s series
	for _, t := range tickers {
		if t == nil || t.Timestamp == nil || t.Price == nil {
			continue
		}
		s.times = append(s.times, *t.Timestamp)
		s.prices = append(s.prices, *t.Price)
	}
	return s
}

func chartCaption(c *coinpaprika.Coin, details *coinpaprika.Ticker) string {
	usd, ok := details.Quotes["USD"]
	if !ok || usd.Price == nil {
		return notTraded(c)
	}

	optional := func(v *float64, format func(float64) string) string {
		if v == nil {
			return "N/A"
		}
		return format(*v)
	}
	rounded := func(v float64) string { return helpers.FormatPriceRoundedUS(math.Round(v)) }

	circulating := "N/A"
	if details.CirculatingSupply != nil {
		circulating = helpers.FormatSupplyUS(*details.CirculatingSupply)
	}

	return translation.Translate(
		"[%s](https://coinpaprika.com/coin/%s) \\(%s\\)\n"+
			"Price:  *$%s*\n"+
			"1h price change: *%s*\n"+
			"24h price change: *%s*\n"+
			"7d price change: *%s*\n"+
			"Vol:  *$%s*\n"+
			"MCap:  *$%s*\n"+
			"Circ\\. Supply:  *%s %s*\n\n"+
			"[%s on CoinPaprika](https://coinpaprika.com/coin/%s) 🌶",
		helpers.EscapeMarkdownV2(*c.Name), *c.ID, helpers.EscapeMarkdownV2(*c.Symbol),
		helpers.FormatPriceUS(*usd.Price, true),
		optional(usd.PercentChange1h, helpers.FormatPercentage),
		optional(usd.PercentChange24h, helpers.FormatPercentage),
		optional(usd.PercentChange7d, helpers.FormatPercentage),
		optional(usd.Volume24h, rounded),
		optional(usd.MarketCap, rounded),
		circulating, helpers.EscapeMarkdownV2(*c.Symbol),
		helpers.EscapeMarkdownV2(*c.Name), *c.ID,
	)
}

func renderChart(name, symbol string, points series) ([]byte, error) {
	if len(points.times) < 2 || len(points.times) != len(points.prices) {
		return nil, errors.New("not enough data points")
	}

	minPrice, maxPrice := getMinMax(points.prices)
	padding := (maxPrice - minPrice) * 0.1
	if padding == 0 {
		padding = math.Max(math.Abs(maxPrice)*0.01, 0.00000001)
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s 7 days price chart (%s) - CoinPaprika", name, symbol),
		Width:  1200,
		Height: 600,
		TitleStyle: chart.Style{
			FontColor: textColor,
			FontSize:  14,
		},
		Background: chart.Style{
			FillColor: backgroundColor,
			Padding:   chart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20},
		},
		Canvas: chart.Style{
			FillColor: backgroundColor,
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("02-Jan"),
			Style: chart.Style{
				FontColor:   textColor,
				FontSize:    12,
				StrokeColor: textColor,
			},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{
				Min: minPrice - padding,
				Max: maxPrice + padding,
			},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return helpers.FormatPriceUS(f, false)
				}
				return ""
			},
			Style: chart.Style{
				FontColor: textColor,
				FontSize:  12,
			},
			GridMajorStyle: chart.Style{
				StrokeColor: gridColor,
				StrokeWidth: 1,
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    symbol,
				XValues: points.times,
				YValues: points.prices,
				Style: chart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 2,
					FillColor:   fillColor,
				},
			},
		},
	}

	buf := bytes.NewBuffer(nil)
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func getMinMax(prices []float64) (min, max float64) {
	if len(prices) == 0 {
		return 0, 1
	}

	min, max = prices[0], prices[0]
	for _, price := range prices {
		if price < min {
			min = price
		}
		if price > max {
			max = price
		}
	}
	return min, max
}
