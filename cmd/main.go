package main

import (
	"bytes"
	"coinpaprika-alert-bot/config"
	"coinpaprika-alert-bot/internal/alert"
	"coinpaprika-alert-bot/internal/commands"
	"coinpaprika-alert-bot/internal/database"
	"coinpaprika-alert-bot/internal/metrics"
	"coinpaprika-alert-bot/internal/price"
	"coinpaprika-alert-bot/internal/telegram"
	"coinpaprika-alert-bot/lib/translation"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const metricsSaveInterval = 5 * time.Minute

func init() {
	config.InitConfig()
	setupLogging()
}

func main() {
	translation.Configure("locales", config.GetString("lang"))

	db, err := database.Open(config.GetString("db_path"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	botMetrics := metrics.New(prometheus.DefaultRegisterer)
	botMetrics.Restore(db)

	backend, closeBackend, err := openBackend(config.GetString("alerts_storage"), db)
	if err != nil {
		log.Fatalf("Failed to open alerts storage: %v", err)
	}

	store := alert.NewStore(backend)
	if err := store.Load(); err != nil {
		log.Fatalf("Failed to load alerts: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	queryTimeout := config.GetSeconds("price_timeout_seconds", 10*time.Second)
	client := commands.NewClient(config.GetString("api_pro_key"), queryTimeout)

	prices := price.NewService(client, config.GetSeconds("price_refresh_seconds", time.Minute))
	prices.Start(ctx, config.GetSeconds("price_refresh_seconds", time.Minute))

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:          config.GetString("telegram_bot_token"),
		Debug:          config.GetBool("debug"),
		UpdatesTimeout: 60,
	}, store, commands.NewMarket(client), commands.NewNews(config.GetString("cryptopanic_api_key"), queryTimeout))
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	evaluator := alert.NewEvaluator(store, prices, bot, alert.Config{
		Interval:      config.GetSeconds("interval_seconds", 15*time.Minute),
		QueryTimeout:  queryTimeout,
		NotifyTimeout: config.GetSeconds("notify_timeout_seconds", 10*time.Second),
	}, botMetrics)
	bot.SetSchedule(evaluator)
	go evaluator.Run(ctx)

	updates, err := bot.GetUpdatesChannel()
	if err != nil {
		log.Fatalf("Failed to get updates channel: %v", err)
	}

	go handleUpdates(bot, updates, botMetrics)

	go func() {
		ticker := time.NewTicker(metricsSaveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				saveMetrics(botMetrics, db)
			}
		}
	}()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		cancel()
		bot.Bot.StopReceivingUpdates()
		if err := store.Flush(); err != nil {
			log.Errorf("Failed to persist alerts on shutdown: %v", err)
		}
		saveMetrics(botMetrics, db)
		if err := closeBackend(); err != nil {
			log.Errorf("Failed to close alerts storage: %v", err)
		}
		if err := db.Close(); err != nil {
			log.Errorf("Failed to close database: %v", err)
		}
		log.Info("Alerts and metrics saved, shutting down...")
		os.Exit(0)
	}()

	if err := launchMetricsAndHealthServer(config.GetInt("metrics_port")); err != nil {
		log.Fatalf("Failed to start metrics and health server: %v", err)
	}
}

func setupLogging() {
	log.SetLevel(log.ErrorLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting telegram bot...")
}

// openBackend selects where watches are persisted.
func openBackend(kind string, db *database.DB) (alert.Backend, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "file":
		path := config.GetString("alerts_file")
		log.Infof("Storing alerts in %s", path)
		return alert.NewFileBackend(afero.NewOsFs(), path), noop, nil
	case "sqlite":
		log.Info("Storing alerts in the sqlite database")
		return db.Watches(), noop, nil
	case "buntdb":
		path := config.GetString("buntdb_file")
		bunt, err := database.OpenBunt(path)
		if err != nil {
			return nil, nil, err
		}
		log.Infof("Storing alerts in buntdb %s", path)
		return bunt, bunt.Close, nil
	}
	return nil, nil, errors.Errorf("unknown alerts storage %q", kind)
}

func handleUpdates(bot *telegram.Bot, updates tgbotapi.UpdatesChannel, m *metrics.Metrics) {
	for update := range updates {
		if update.Message == nil {
			log.Debug("Received non-message or non-command")
			continue
		}

		if !update.Message.IsCommand() {
			continue
		}

		m.MessagesHandled.Inc()

		chatID := update.Message.Chat.ID
		chatName := update.Message.Chat.Title
		if chatName == "" {
			chatName = fmt.Sprintf("%s-%d", "PrivateChat", chatID)
		}
		m.TrackChannel(chatID, chatName)

		handleCommand(bot, update, m)
	}
}

func handleCommand(bot *telegram.Bot, update tgbotapi.Update, m *metrics.Metrics) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	err := bot.SendMessage(telegram.Message{
		ChatID:    update.Message.Chat.ID,
		Text:      bot.HandleUpdate(update),
		MessageID: update.Message.MessageID,
	})

	if err != nil {
		log.Errorf("Failed to send message: %v", err)
	} else {
		m.CommandsProcessed.Inc()
	}
}

func saveMetrics(m *metrics.Metrics, db *database.DB) {
	if err := m.Save(db); err != nil {
		log.Errorf("Failed to save metrics: %v", err)
		return
	}
	log.Debug("Metrics saved to database.")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func launchMetricsAndHealthServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", healthCheckHandler)

	log.Infof("Launching metrics and health endpoint on :%d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), http.DefaultServeMux)
}
