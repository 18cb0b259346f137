package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderChart(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var points series
	for i := 0; i < 48; i++ {
		points.times = append(points.times, start.Add(time.Duration(i)*time.Hour))
		points.prices = append(points.prices, 60000+float64(i*10))
	}

	png, err := renderChart("Bitcoin", "BTC", points)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestRenderChart_FlatPrices(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	points := series{
		times:  []time.Time{start, start.Add(time.Hour)},
		prices: []float64{1, 1},
	}

	_, err := renderChart("Tether", "USDT", points)
	assert.NoError(t, err)
}

func TestRenderChart_NotEnoughPoints(t *testing.T) {
	_, err := renderChart("Bitcoin", "BTC", series{times: []time.Time{time.Now()}, prices: []float64{1}})
	assert.Error(t, err)
}

func TestChartPoints_SkipsIncomplete(t *testing.T) {
	now := time.Now()
	price := 1.0
	points := chartPoints([]*coinpaprika.TickerHistorical{
		{Timestamp: &now, Price: &price},
		{Timestamp: &now},
		{Price: &price},
		nil,
	})

	assert.Len(t, points.times, 1)
	assert.Len(t, points.prices, 1)
}

func TestGetMinMax(t *testing.T) {
	lo, hi := getMinMax([]float64{3, 1, 2})
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 3.0, hi)

	lo, hi = getMinMax(nil)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
}

func TestChartCaption_NotTraded(t *testing.T) {
	id, name, symbol := "xyz-nothing", "Nothing", "XYZ"
	caption := chartCaption(&coinpaprika.Coin{ID: &id, Name: &name, Symbol: &symbol}, &coinpaprika.Ticker{})

	assert.Contains(t, caption, "not actively traded")
	assert.Contains(t, caption, "coinpaprika.com/coin/xyz-nothing")
}
