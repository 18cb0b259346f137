package telegram

import (
	"coinpaprika-alert-bot/internal/alert"
	"coinpaprika-alert-bot/internal/commands"
	"coinpaprika-alert-bot/lib/helpers"
	"coinpaprika-alert-bot/lib/translation"
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const helpMessage = "Available commands:\n" +
	"/p <coin> - price\n" +
	"/v <coin> - 24h volume\n" +
	"/s <coin> - circulating supply\n" +
	"/c <coin> - 7 day chart\n" +
	"/analyze [coins] - market analysis\n" +
	"/profit [coins] - position suggestions\n" +
	"/strategy <coins> - trading strategy\n" +
	"/news <coin> - latest news\n" +
	"/alert <coin> <price> - notify when the price reaches the target\n" +
	"/alert remove <coin> <price> - remove an alert\n" +
	"/alert list - list your alerts"

// NewBot creates new telegram bot
func NewBot(c BotConfig, alerts *alert.Store, market *commands.Market, news *commands.News) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug

	return &Bot{
		Bot:    bot,
		Config: c,
		alerts: alerts,
		market: market,
		news:   news,
	}, nil
}

// SetSchedule lets /alert list show when watches are checked next.
func (b *Bot) SetSchedule(s Schedule) {
	b.schedule = s
}

// GetUpdatesChannel gets new updates updates
func (b *Bot) GetUpdatesChannel() (tgbotapi.UpdatesChannel, error) {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.Bot.GetUpdatesChan(updatesConfig), nil
}

// SendMessage sends a telegram message
func (b *Bot) SendMessage(m Message) error {
	if m.Text == "" {
		return nil
	}
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	msg.ParseMode = "MarkdownV2"
	_, err := b.Bot.Send(msg)
	return errors.Wrapf(err, "could not send message: %v", m)
}

// Notify delivers an alert notification to a chat. It implements alert.NotificationSink.
func (b *Bot) Notify(ctx context.Context, userID, text string) error {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid chat id %q", userID)
	}
	if b.Bot == nil {
		return errors.New("telegram bot is not connected")
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- errors.Errorf("sending to chat %d panicked: %v", chatID, r)
			}
		}()
		done <- b.SendMessage(Message{ChatID: chatID, Text: helpers.EscapeMarkdownV2(text)})
	}()

	select {
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "notify chat %d", chatID)
	case err := <-done:
		return err
	}
}

// HandleUpdate processes Telegram updates and returns the reply text.
func (b *Bot) HandleUpdate(u tgbotapi.Update) string {
	text := helpers.EscapeMarkdownV2(translation.Translate(helpMessage))
	log.Debugf("received command: %s", u.Message.Command())
	if log.IsLevelEnabled(log.TraceLevel) {
		log.Trace(spew.Sdump(u.Message))
	}

	args := u.Message.CommandArguments()
	var err error

	switch u.Message.Command() {
	case "source":
		text = "https://github\\.com/coinpaprika/telegram\\-bot\\-v2"
	case "p":
		if text, err = b.market.CommandPrice(args); err != nil {
			text = coinNotFound(err)
		}
	case "s":
		if text, err = b.market.CommandSupply(args); err != nil {
			text = coinNotFound(err)
		}
	case "v":
		if text, err = b.market.CommandVolume(args); err != nil {
			text = coinNotFound(err)
		}
	case "c":
		return b.handleChart(u.Message, args)
	case "analyze":
		if text, err = b.market.CommandAnalyze(strings.Fields(args)); err != nil {
			text = marketUnavailable(err)
		}
	case "profit":
		if text, err = b.market.CommandProfit(strings.Fields(args)); err != nil {
			text = marketUnavailable(err)
		}
	case "strategy":
		if text, err = b.market.CommandStrategy(strings.Fields(args)); err != nil {
			text = marketUnavailable(err)
		}
	case "news":
		if text, err = b.news.CommandNews(context.Background(), args); err != nil {
			log.Error(err)
			text = helpers.EscapeMarkdownV2(translation.Translate("Failed to get news, please try again later."))
		}
	case "alert":
		text = b.HandleAlertCommand(u.Message.Chat.ID, args)
	}

	return text
}

func coinNotFound(err error) string {
	log.Error(err)
	return helpers.EscapeMarkdownV2(translation.Translate("Coin not found"))
}

func marketUnavailable(err error) string {
	log.Error(err)
	return helpers.EscapeMarkdownV2(translation.Translate("Market data is unavailable, please try again later."))
}

func (b *Bot) handleChart(m *tgbotapi.Message, args string) string {
	chartData, caption, err := b.market.CommandChart(args)
	if err != nil {
		return coinNotFound(err)
	}
	if chartData == nil {
		return caption
	}

	photo := tgbotapi.NewPhoto(m.Chat.ID, tgbotapi.FileBytes{
		Name:  "chart.png",
		Bytes: chartData,
	})
	photo.Caption = caption
	photo.ParseMode = "MarkdownV2"
	photo.ReplyToMessageID = m.MessageID
	if _, err = b.Bot.Send(photo); err != nil {
		log.Error("error sending chart:", err)
	}
	return ""
}

// HandleAlertCommand handles /alert <coin> <price>, /alert add, /alert remove and /alert list.
func (b *Bot) HandleAlertCommand(chatID int64, args string) string {
	userID := strconv.FormatInt(chatID, 10)
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return alertUsage()
	}

	switch strings.ToLower(fields[0]) {
	case "list":
		return b.HandleAlertListCommand(userID)
	case "add":
		fields = fields[1:]
	case "remove", "delete", "rm":
		return b.removeAlert(userID, fields[1:])
	}
	return b.addAlert(userID, fields)
}

func alertUsage() string {
	return helpers.EscapeMarkdownV2(translation.Translate(
		"Usage:\n/alert <coin> <price>\n/alert remove <coin> <price>\n/alert list"))
}

// parseWatch validates the coin and target price of an /alert command.
func parseWatch(fields []string) (string, float64, error) {
	if len(fields) != 2 {
		return "", 0, errors.New("expected a coin and a price")
	}

	coin := alert.NormalizeCoin(fields[0])
	if coin == "" {
		return "", 0, errors.New("empty coin")
	}

	target, err := strconv.ParseFloat(strings.TrimPrefix(fields[1], "$"), 64)
	if err != nil {
		return "", 0, errors.Wrapf(err, "invalid price %q", fields[1])
	}
	if math.IsNaN(target) || math.IsInf(target, 0) || target <= 0 {
		return "", 0, errors.Errorf("price must be positive, got %q", fields[1])
	}
	return coin, target, nil
}

func (b *Bot) addAlert(userID string, fields []string) string {
	coin, target, err := parseWatch(fields)
	if err != nil {
		log.Debugf("invalid /alert arguments from %s: %v", userID, err)
		return alertUsage()
	}

	if !b.alerts.Add(userID, coin, target) {
		return helpers.EscapeMarkdownV2(translation.Translate(
			"Alert for %s at %s USD already exists.", coin, formatTarget(target)))
	}
	return helpers.EscapeMarkdownV2(translation.Translate(
		"✅ Alert set: you will be notified when %s reaches %s USD.", coin, formatTarget(target)))
}

func (b *Bot) removeAlert(userID string, fields []string) string {
	coin, target, err := parseWatch(fields)
	if err != nil {
		log.Debugf("invalid /alert remove arguments from %s: %v", userID, err)
		return alertUsage()
	}

	if !b.alerts.Remove(userID, coin, target) {
		return helpers.EscapeMarkdownV2(translation.Translate(
			"No alert for %s at %s USD.", coin, formatTarget(target)))
	}
	return helpers.EscapeMarkdownV2(translation.Translate(
		"🗑 Alert for %s at %s USD removed.", coin, formatTarget(target)))
}

// HandleAlertListCommand lists the watches of a user.
func (b *Bot) HandleAlertListCommand(userID string) string {
	watches := b.alerts.List(userID)
	if len(watches) == 0 {
		return helpers.EscapeMarkdownV2(translation.Translate("You have no active alerts."))
	}

	var alertList strings.Builder
	alertList.WriteString(helpers.EscapeMarkdownV2(translation.Translate("🔔 Your alerts:")))
	alertList.WriteString("\n\n")
	for _, w := range watches {
		alertList.WriteString(helpers.EscapeMarkdownV2(fmt.Sprintf("• %s ≥ %s USD", w.Coin, formatTarget(w.Price))))
		alertList.WriteString("\n")
	}

	if b.schedule != nil {
		if next := b.schedule.NextSweep(); !next.IsZero() {
			alertList.WriteString("\n")
			alertList.WriteString(helpers.EscapeMarkdownV2(translation.Translate(
				"Next check: %s", humanize.Time(next))))
		}
	}

	return alertList.String()
}

// formatTarget prints the exact value /alert remove needs to match.
func formatTarget(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
