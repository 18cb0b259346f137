package alert

import (
	"coinpaprika-alert-bot/internal/metrics"
	"coinpaprika-alert-bot/internal/types"
	"coinpaprika-alert-bot/lib/translation"
	"context"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// ErrUnavailable is returned by a PriceSource that has no price for a coin.
var ErrUnavailable = errors.New("price unavailable")

// PriceSource returns the current USD price of a coin symbol.
type PriceSource interface {
	CurrentPrice(ctx context.Context, coin string) (float64, error)
}

// NotificationSink delivers a rendered message to a user.
type NotificationSink interface {
	Notify(ctx context.Context, userID, text string) error
}

type Config struct {
	// Interval is the pause between the end of one sweep and the next.
	Interval time.Duration
	// QueryTimeout bounds a single price lookup.
	QueryTimeout time.Duration
	// NotifyTimeout bounds a single notification.
	NotifyTimeout time.Duration
}

// DefaultConfig checks every 15 minutes.
func DefaultConfig() Config {
	return Config{
		Interval:      15 * time.Minute,
		QueryTimeout:  10 * time.Second,
		NotifyTimeout: 10 * time.Second,
	}
}

// Evaluator periodically compares watches against current prices, removes
// the ones that reached their target and notifies their owners once.
type Evaluator struct {
	store   *Store
	prices  PriceSource
	sink    NotificationSink
	config  Config
	metrics *metrics.Metrics

	// sweepMu ensures only one sweep runs at a time
	sweepMu sync.Mutex

	nextMu sync.RWMutex
	next   time.Time
}

func NewEvaluator(store *Store, prices PriceSource, sink NotificationSink, config Config, m *metrics.Metrics) *Evaluator {
	def := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = def.QueryTimeout
	}
	if config.NotifyTimeout <= 0 {
		config.NotifyTimeout = def.NotifyTimeout
	}

	return &Evaluator{
		store:   store,
		prices:  prices,
		sink:    sink,
		config:  config,
		metrics: m,
	}
}

// Run sweeps until ctx is cancelled, waiting Interval between sweeps.
func (e *Evaluator) Run(ctx context.Context) {
	log.Infof("🚀 Alert service started, checking every %s", e.config.Interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Alert service stopped")
			return
		case <-timer.C:
		}

		e.safeSweep(ctx)

		e.nextMu.Lock()
		e.next = time.Now().Add(e.config.Interval)
		e.nextMu.Unlock()
		timer.Reset(e.config.Interval)
	}
}

// NextSweep returns when the next sweep is scheduled, zero before the first
// sweep finished.
func (e *Evaluator) NextSweep() time.Time {
	e.nextMu.RLock()
	defer e.nextMu.RUnlock()
	return e.next
}

func (e *Evaluator) safeSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("🔥 Panic recovered in alert sweep: %v", r)
		}
	}()
	e.Sweep(ctx)
}

// Sweep runs one full pass over all watches and returns the triggers it fired.
// Removals are applied before any notification is sent.
func (e *Evaluator) Sweep(ctx context.Context) []types.Trigger {
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()

	started := time.Now()
	log.Debug("🔄 Checking alerts...")

	snapshot := e.store.All()
	prices := e.lookupPrices(ctx, distinctCoins(snapshot))

	users := lo.Keys(snapshot)
	sort.Strings(users)

	var triggers []types.Trigger
	active := 0
	for _, userID := range users {
		for _, w := range snapshot[userID] {
			current, ok := prices[w.Coin]
			if !ok || current < w.Price {
				active++
				continue
			}
			triggers = append(triggers, types.Trigger{
				UserID: userID,
				Coin:   w.Coin,
				Target: w.Price,
				Price:  current,
			})
		}
	}

	// a watch removed by its owner after the snapshot is not notified
	if len(triggers) > 0 {
		triggers = e.store.RemoveTriggered(triggers)
		log.Infof("Removed %d triggered watches", len(triggers))
	}

	e.deliver(ctx, triggers)

	if e.metrics != nil {
		e.metrics.ObserveSweep(started, active, len(triggers))
	}
	log.Debugf("✅ Alert check completed: %d triggered, %d active", len(triggers), active)
	return triggers
}

func (e *Evaluator) lookupPrices(ctx context.Context, coins []string) map[string]float64 {
	prices := make(map[string]float64, len(coins))
	for _, coin := range coins {
		p, err := e.queryPrice(ctx, coin)
		if err != nil {
			log.WithFields(log.Fields{"coin": coin}).Warnf("⚠️ No price this sweep: %v", err)
			if e.metrics != nil {
				e.metrics.PriceLookupsFailed.WithLabelValues(coin).Inc()
			}
			continue
		}
		prices[coin] = p
	}
	return prices
}

// queryPrice gives up after QueryTimeout even if the source ignores its context.
func (e *Evaluator) queryPrice(ctx context.Context, coin string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.QueryTimeout)
	defer cancel()

	type result struct {
		price float64
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: errors.Errorf("price source panicked: %v", r)}
			}
		}()
		p, err := e.prices.CurrentPrice(ctx, coin)
		done <- result{p, err}
	}()

	select {
	case <-ctx.Done():
		return 0, errors.Wrapf(ctx.Err(), "price lookup for %s", coin)
	case r := <-done:
		if r.err != nil {
			return 0, r.err
		}
		if math.IsNaN(r.price) || math.IsInf(r.price, 0) || r.price <= 0 {
			return 0, errors.Wrapf(ErrUnavailable, "invalid price %v for %s", r.price, coin)
		}
		return r.price, nil
	}
}

// deliver sends one message per trigger. Failures are logged and dropped;
// the watch stays removed.
func (e *Evaluator) deliver(ctx context.Context, triggers []types.Trigger) {
	base := context.WithoutCancel(ctx)
	for _, t := range triggers {
		err := e.notify(base, t)

		fields := log.Fields{"user": t.UserID, "coin": t.Coin, "target": t.Target, "price": t.Price}
		if err != nil {
			log.WithFields(fields).Errorf("❌ Failed to send price alert notification: %v", err)
			if e.metrics != nil {
				e.metrics.NotificationsFailed.Inc()
			}
			continue
		}
		log.WithFields(fields).Info("✅ Price alert notification sent")
	}
}

// notify sends a single notification. A panicking sink counts as a failed delivery.
func (e *Evaluator) notify(ctx context.Context, t types.Trigger) (err error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.NotifyTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("notification sink panicked: %v", r)
		}
	}()
	return e.sink.Notify(ctx, t.UserID, RenderTrigger(t))
}

// RenderTrigger formats the notification text for a trigger.
func RenderTrigger(t types.Trigger) string {
	return translation.Translate(
		"⚠️ %s reached %s USD (target %s USD)!",
		t.Coin, formatNumber(t.Price), formatNumber(t.Target),
	)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func distinctCoins(watches map[string][]types.Watch) []string {
	var coins []string
	for _, set := range watches {
		for _, w := range set {
			coins = append(coins, w.Coin)
		}
	}
	coins = lo.Uniq(coins)
	sort.Strings(coins)
	return coins
}
