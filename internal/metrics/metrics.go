package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
)

const (
	namespace = "coinpaprika"
	subsystem = "telegram_bot"
)

// Repository persists metric values between restarts.
type Repository interface {
	GetMetric(metricName string) (float64, error)
	SaveMetric(metricName, labelKey, labelValue string, value float64) error
	GetMetricsWithLabels(metricName string) (map[string]map[string]float64, error)
}

type Metrics struct {
	CommandsProcessed  prometheus.Counter
	MessagesHandled    prometheus.Counter
	ChannelsCount      prometheus.Gauge
	MessagesPerChannel *prometheus.CounterVec

	WatchesActive        prometheus.Gauge
	AlertsTriggered      prometheus.Counter
	NotificationsFailed  prometheus.Counter
	PriceLookupsFailed   *prometheus.CounterVec
	SweepDurationSeconds prometheus.Histogram

	mu          sync.Mutex
	channelsSet map[int64]string
}

// New creates the bot collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CommandsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commands_processed",
			Help:      "The total number of processed commands",
		}),
		MessagesHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_handled",
			Help:      "The total number of handled messages",
		}),
		ChannelsCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "channels_count",
			Help:      "The current number of unique channels the bot is operating in",
		}),
		MessagesPerChannel: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "messages_per_channel",
				Help:      "The total number of messages handled per channel",
			},
			[]string{"chat_id", "chat_name"},
		),
		WatchesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "watches_active",
			Help:      "The number of price watches waiting for a trigger",
		}),
		AlertsTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "alerts_triggered",
			Help:      "The total number of price watches that reached their target",
		}),
		NotificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_failed",
			Help:      "The total number of alert notifications that could not be delivered",
		}),
		PriceLookupsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "price_lookups_failed",
				Help:      "The total number of failed price lookups during sweeps",
			},
			[]string{"coin"},
		),
		SweepDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sweep_duration_seconds",
			Help:      "Time spent in one alert sweep",
			Buckets:   prometheus.DefBuckets,
		}),
		channelsSet: make(map[int64]string),
	}

	reg.MustRegister(
		m.CommandsProcessed,
		m.MessagesHandled,
		m.ChannelsCount,
		m.MessagesPerChannel,
		m.WatchesActive,
		m.AlertsTriggered,
		m.NotificationsFailed,
		m.PriceLookupsFailed,
		m.SweepDurationSeconds,
	)

	return m
}

// ObserveSweep records the outcome of one alert sweep.
func (m *Metrics) ObserveSweep(started time.Time, active, triggered int) {
	m.SweepDurationSeconds.Observe(time.Since(started).Seconds())
	m.WatchesActive.Set(float64(active))
	m.AlertsTriggered.Add(float64(triggered))
}

// TrackChannel counts a message for the chat and remembers the chat.
func (m *Metrics) TrackChannel(chatID int64, chatName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.channelsSet[chatID]; !exists {
		m.channelsSet[chatID] = chatName
		m.ChannelsCount.Set(float64(len(m.channelsSet)))
	}
	m.MessagesPerChannel.WithLabelValues(strconv.FormatInt(chatID, 10), chatName).Inc()
}

// Restore loads previously saved values into the collectors.
func (m *Metrics) Restore(repo Repository) {
	m.mu.Lock()
	defer m.mu.Unlock()

	commandsProcessed, _ := repo.GetMetric("commands_processed")
	messagesHandled, _ := repo.GetMetric("messages_handled")
	alertsTriggered, _ := repo.GetMetric("alerts_triggered")
	notificationsFailed, _ := repo.GetMetric("notifications_failed")

	m.CommandsProcessed.Add(commandsProcessed)
	m.MessagesHandled.Add(messagesHandled)
	m.AlertsTriggered.Add(alertsTriggered)
	m.NotificationsFailed.Add(notificationsFailed)

	loadLabeledMetrics(repo, "channel_names", func(chatIDStr, chatName string, _ float64) {
		chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			log.Warnf("Failed to parse chatID %s: %v", chatIDStr, err)
			return
		}
		m.channelsSet[chatID] = chatName
	})
	m.ChannelsCount.Set(float64(len(m.channelsSet)))

	loadLabeledMetrics(repo, "messages_per_channel", func(chatID, chatName string, value float64) {
		m.MessagesPerChannel.WithLabelValues(chatID, chatName).Add(value)
	})

	log.Info("Metrics loaded from database.")
}

func loadLabeledMetrics(repo Repository, metricName string, callback func(labelKey, labelValue string, value float64)) {
	metricsWithLabels, err := repo.GetMetricsWithLabels(metricName)
	if err != nil {
		log.Errorf("Failed to load %s: %v", metricName, err)
		return
	}
	for labelKey, labelValues := range metricsWithLabels {
		for labelValue, value := range labelValues {
			callback(labelKey, labelValue, value)
		}
	}
}

// Save writes the current collector values to repo.
func (m *Metrics) Save(repo Repository) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	plain := map[string]prometheus.Collector{
		"commands_processed":   m.CommandsProcessed,
		"messages_handled":     m.MessagesHandled,
		"alerts_triggered":     m.AlertsTriggered,
		"notifications_failed": m.NotificationsFailed,
	}
	for name, collector := range plain {
		if err := repo.SaveMetric(name, "", "", GetMetricValue(collector)); err != nil {
			return err
		}
	}
	if err := repo.SaveMetric("channels_count", "", "", float64(len(m.channelsSet))); err != nil {
		return err
	}

	for chatID, chatName := range m.channelsSet {
		if err := repo.SaveMetric("channel_names", strconv.FormatInt(chatID, 10), chatName, float64(chatID)); err != nil {
			return err
		}
	}

	metricChan := make(chan prometheus.Metric)
	go func() {
		m.MessagesPerChannel.Collect(metricChan)
		close(metricChan)
	}()

	var saveErr error
	for metric := range metricChan {
		if saveErr != nil {
			continue
		}
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Warnf("Failed to read MessagesPerChannel metric: %v", err)
			continue
		}
		var chatID, chatName string
		for _, label := range metricProto.Label {
			switch label.GetName() {
			case "chat_id":
				chatID = label.GetValue()
			case "chat_name":
				chatName = label.GetValue()
			}
		}
		if err := repo.SaveMetric("messages_per_channel", chatID, chatName, metricProto.Counter.GetValue()); err != nil {
			saveErr = errors.Wrap(err, "failed to save messages_per_channel")
		}
	}
	if saveErr != nil {
		return saveErr
	}

	log.Info("Metrics saved to database.")
	return nil
}

// GetMetricValue reads the value of a single-series counter or gauge.
func GetMetricValue(metric prometheus.Collector) float64 {
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	m, ok := <-metricChan
	if !ok {
		return 0
	}

	metricProto := &dto.Metric{}
	if err := m.Write(metricProto); err != nil {
		log.Warnf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		return metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		return metricProto.Gauge.GetValue()
	}
	return 0
}
