package commands

import (
	"sync"
	"time"
)

type CacheItem struct {
	ChartData  []byte
	Caption    string
	Expiration time.Time
}

// chartCache keeps rendered charts keyed by the query that produced them.
type chartCache struct {
	mu    sync.Mutex
	items map[string]*CacheItem
	now   func() time.Time
}

func newChartCache() *chartCache {
	return &chartCache{
		items: make(map[string]*CacheItem),
		now:   time.Now,
	}
}

func (c *chartCache) get(key string) (*CacheItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found {
		return nil, false
	}
	if !c.now().Before(item.Expiration) {
		delete(c.items, key)
		return nil, false
	}
	return item, true
}

func (c *chartCache) set(key string, chartData []byte, caption string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &CacheItem{
		ChartData:  chartData,
		Caption:    caption,
		Expiration: c.now().Add(duration),
	}
}
