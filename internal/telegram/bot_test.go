package telegram

import (
	"coinpaprika-alert-bot/internal/alert"
	"coinpaprika-alert-bot/internal/types"
	"coinpaprika-alert-bot/lib/helpers"
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSchedule time.Time

func (f fixedSchedule) NextSweep() time.Time { return time.Time(f) }

func newTestBot(t *testing.T) (*Bot, *alert.Store) {
	t.Helper()
	store := alert.NewStore(alert.NewFileBackend(afero.NewMemMapFs(), "/data/alerts.json"))
	require.NoError(t, store.Load())
	return &Bot{alerts: store}, store
}

func TestHandleAlertCommand_Add(t *testing.T) {
	b, store := newTestBot(t)

	reply := b.HandleAlertCommand(42, "btc 65000")
	assert.Contains(t, reply, "Alert set")
	assert.Contains(t, reply, "BTC reaches 65000 USD")

	reply = b.HandleAlertCommand(42, "add BTC 65000")
	assert.Contains(t, reply, "already exists")

	b.HandleAlertCommand(42, "add eth $3100.5")
	assert.Equal(t, []types.Watch{{Coin: "BTC", Price: 65000}, {Coin: "ETH", Price: 3100.5}}, store.List("42"))
}

func TestHandleAlertCommand_RejectsInvalidInput(t *testing.T) {
	b, store := newTestBot(t)

	for _, args := range []string{"", "btc", "btc abc", "btc 0", "btc -5", "btc NaN", "btc +Inf", "add", "btc 1 2"} {
		reply := b.HandleAlertCommand(42, args)
		assert.Contains(t, reply, "Usage", args)
	}
	assert.Empty(t, store.All())
}

func TestHandleAlertCommand_Remove(t *testing.T) {
	b, store := newTestBot(t)
	store.Add("42", "BTC", 65000)
	store.Add("42", "ETH", 3000)

	reply := b.HandleAlertCommand(42, "remove btc 64000")
	assert.Contains(t, reply, "No alert for BTC at 64000 USD")

	reply = b.HandleAlertCommand(42, "remove btc 65000")
	assert.Contains(t, reply, "removed")
	assert.Equal(t, []types.Watch{{Coin: "ETH", Price: 3000}}, store.List("42"))

	reply = b.HandleAlertCommand(7, "remove eth 3000")
	assert.Contains(t, reply, "No alert")
	assert.Len(t, store.List("42"), 1)
}

func TestHandleAlertCommand_List(t *testing.T) {
	b, store := newTestBot(t)

	assert.Contains(t, b.HandleAlertCommand(42, "list"), "no active alerts")

	store.Add("42", "BTC", 65000.5)
	store.Add("42", "SOL", 150)
	b.SetSchedule(fixedSchedule(time.Now().Add(10*time.Minute + 30*time.Second)))

	reply := b.HandleAlertCommand(42, "LIST")
	assert.Contains(t, reply, "• BTC ≥ 65000\\.5 USD")
	assert.Contains(t, reply, "• SOL ≥ 150 USD")
	assert.Contains(t, reply, "Next check: 10 minutes from now")
}

func TestHandleUpdate_Alert(t *testing.T) {
	b, store := newTestBot(t)

	reply := b.HandleUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     "/alert btc 65000",
		Chat:     &tgbotapi.Chat{ID: 42},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
	}})

	assert.Contains(t, reply, "Alert set")
	assert.Len(t, store.List("42"), 1)
}

func TestHandleUpdate_UnknownCommandShowsHelp(t *testing.T) {
	b, _ := newTestBot(t)

	reply := b.HandleUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     "/start",
		Chat:     &tgbotapi.Chat{ID: 42},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
	}})

	assert.Contains(t, reply, helpers.EscapeMarkdownV2("/alert remove <coin> <price> - remove an alert"))
	assert.NotContains(t, reply, "<coin> <price> - remove", "help must be MarkdownV2 escaped")
}

func TestNotify_InvalidUserID(t *testing.T) {
	b, _ := newTestBot(t)

	assert.Error(t, b.Notify(context.Background(), "not-a-chat", "hi"))
	assert.Error(t, b.Notify(context.Background(), "42", "hi"), "no connection")
}

func TestNotify_BrokenClientReturnsError(t *testing.T) {
	b := &Bot{Bot: &tgbotapi.BotAPI{}}

	var err error
	assert.NotPanics(t, func() { err = b.Notify(context.Background(), "42", "⚠️ BTC reached 65500 USD") })
	assert.Error(t, err)
}
