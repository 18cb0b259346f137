package telegram

import (
	"coinpaprika-alert-bot/internal/alert"
	"coinpaprika-alert-bot/internal/commands"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotConfig configuration of the bot
type BotConfig struct {
	Token          string
	Debug          bool
	UpdatesTimeout int
}

// Schedule reports when watches are evaluated next.
type Schedule interface {
	NextSweep() time.Time
}

// Bot telegram interaction client
type Bot struct {
	Bot      *tgbotapi.BotAPI
	Config   BotConfig
	alerts   *alert.Store
	market   *commands.Market
	news     *commands.News
	schedule Schedule
}

// Message a telegram message struct
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
}
