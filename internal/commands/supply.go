package commands

import (
	"coinpaprika-alert-bot/lib/helpers"
	"coinpaprika-alert-bot/lib/translation"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func (m *Market) CommandSupply(argument string) (string, error) {
	log.Debugf("processing command /s with argument :%s", argument)

	coin, ticker, err := m.GetTickerByQuery(argument)
	if err != nil {
		return "", errors.Wrap(err, "command /s")
	}

	if ticker.Name == nil || ticker.Symbol == nil || ticker.CirculatingSupply == nil {
		return notTraded(coin), nil
	}

	return translation.Translate(
		"*%s circulating supply:*\n\n▫️`%s`\n\n%s on [CoinPaprika](https://coinpaprika.com/coin/%s) 🌶",
		helpers.EscapeMarkdownV2(*ticker.Name), helpers.FormatSupplyUS(*ticker.CirculatingSupply),
		helpers.EscapeMarkdownV2(*ticker.Symbol), *coin.ID), nil
}
