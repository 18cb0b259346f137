package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChartCache_Expiration(t *testing.T) {
	c := newChartCache()
	now := time.Now()
	c.now = func() time.Time { return now }

	c.set("btc", []byte("png"), "caption", 5*time.Minute)

	item, found := c.get("btc")
	require.True(t, found)
	assert.Equal(t, []byte("png"), item.ChartData)
	assert.Equal(t, "caption", item.Caption)

	_, found = c.get("eth")
	assert.False(t, found)

	now = now.Add(5 * time.Minute)
	_, found = c.get("btc")
	assert.False(t, found)
	assert.Empty(t, c.items)
}
