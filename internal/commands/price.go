package commands

import (
	"coinpaprika-alert-bot/lib/helpers"
	"coinpaprika-alert-bot/lib/translation"
	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func (m *Market) CommandPrice(argument string) (string, error) {
	log.Debugf("processing command /p with argument :%s", argument)

	coin, ticker, err := m.GetTickerByQuery(argument)
	if err != nil {
		return "", errors.Wrap(err, "command /p")
	}

	priceUSD := ticker.Quotes["USD"].Price
	priceBTC := ticker.Quotes["BTC"].Price
	if ticker.Name == nil || priceUSD == nil || priceBTC == nil {
		return notTraded(coin), nil
	}

	return translation.Translate(
		"*%s price:*\n\n▫️`%.8f` *USD*\n▫️`%.8f` *BTC*\n\n[See %s on CoinPaprika 🌶](https://coinpaprika.com/coin/%s)",
		helpers.EscapeMarkdownV2(*ticker.Name), *priceUSD, *priceBTC, helpers.EscapeMarkdownV2(*ticker.Name), *coin.ID), nil
}

func notTraded(coin *coinpaprika.Coin) string {
	return translation.Translate("This coin is not actively traded and doesn't have current price\n"+
		"For more details visit [coinpaprika\\.com](https://coinpaprika.com/coin/%s)",
		*coin.ID)
}
