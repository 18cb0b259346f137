package commands

import (
	"coinpaprika-alert-bot/lib/helpers"
	"coinpaprika-alert-bot/lib/translation"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"math"
)

func (m *Market) CommandVolume(argument string) (string, error) {
	log.Debugf("processing command /v with argument :%s", argument)

	coin, ticker, err := m.GetTickerByQuery(argument)
	if err != nil {
		return "", errors.Wrap(err, "command /v")
	}

	volumeUSD := ticker.Quotes["USD"].Volume24h
	if ticker.Name == nil || volumeUSD == nil {
		return "", errors.Wrap(errors.New("missing data"), "command /v")
	}

	return translation.Translate(
		"*%s 24h volume:*\n\n▫️`$%s`\n\n[See %s on CoinPaprika 🌶](https://coinpaprika.com/coin/%s)",
		helpers.EscapeMarkdownV2(*ticker.Name), helpers.FormatPriceRoundedUS(math.Round(*volumeUSD)),
		helpers.EscapeMarkdownV2(*ticker.Name), *coin.ID), nil
}
