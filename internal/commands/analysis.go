package commands

import (
	"coinpaprika-alert-bot/lib/helpers"
	"coinpaprika-alert-bot/lib/translation"
	"fmt"
	"strings"

	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	topCoinsLimit     = 10
	positionThreshold = 3.0
	takeProfit        = "+10%"
)

// Summary is the USD market snapshot of one coin used by /analyze, /profit and /strategy.
type Summary struct {
	Symbol    string
	Found     bool
	Price     float64
	Change24h float64
	Change7d  float64
	Change30d float64
	Volume24h float64
	MarketCap float64
}

// CommandAnalyze lists price and 24h change for the given coins, or for the top coins when none are given.
func (m *Market) CommandAnalyze(coins []string) (string, error) {
	log.Debugf("processing command /analyze with arguments :%v", coins)

	summaries, err := m.summaries(coins)
	if err != nil {
		return "", errors.Wrap(err, "command /analyze")
	}
	return renderAnalysis(summaries), nil
}

// CommandProfit suggests a position for each coin from its 24h change.
func (m *Market) CommandProfit(coins []string) (string, error) {
	log.Debugf("processing command /profit with arguments :%v", coins)

	summaries, err := m.summaries(coins)
	if err != nil {
		return "", errors.Wrap(err, "command /profit")
	}
	return renderProfit(summaries), nil
}

func (m *Market) CommandStrategy(coins []string) (string, error) {
	log.Debugf("processing command /strategy with arguments :%v", coins)

	if len(coins) == 0 {
		return helpers.EscapeMarkdownV2(translation.Translate("Usage: /strategy BTC ETH")), nil
	}
	summaries, err := m.summaries(coins)
	if err != nil {
		return "", errors.Wrap(err, "command /strategy")
	}
	return renderStrategy(summaries), nil
}

func (m *Market) summaries(coins []string) ([]Summary, error) {
	if len(coins) == 0 {
		tickers, err := m.GetTopTickers(topCoinsLimit)
		if err != nil {
			return nil, err
		}
		summaries := make([]Summary, 0, len(tickers))
		for _, t := range tickers {
			summaries = append(summaries, summarize(*t.Symbol, t))
		}
		return summaries, nil
	}

	summaries := make([]Summary, 0, len(coins))
	for _, coin := range coins {
		symbol := strings.ToUpper(strings.TrimSpace(coin))
		_, ticker, err := m.GetTickerByQuery(coin)
		if err != nil {
			log.Debugf("no market data for %s: %v", symbol, err)
			summaries = append(summaries, Summary{Symbol: symbol})
			continue
		}
		summaries = append(summaries, summarize(symbol, ticker))
	}
	return summaries, nil
}

func summarize(symbol string, t *coinpaprika.Ticker) Summary {
	s := Summary{Symbol: strings.ToUpper(symbol)}
	if t == nil {
		return s
	}
	usd, ok := t.Quotes["USD"]
	if !ok || usd.Price == nil {
		return s
	}

	value := func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return *v
	}
	s.Found = true
	s.Price = *usd.Price
	s.Change24h = value(usd.PercentChange24h)
	s.Change7d = value(usd.PercentChange7d)
	s.Change30d = value(usd.PercentChange30d)
	s.Volume24h = value(usd.Volume24h)
	s.MarketCap = value(usd.MarketCap)
	return s
}

// positionAdvice maps a 24h change to a long, short or neutral suggestion.
func positionAdvice(change24h float64) string {
	switch {
	case change24h > positionThreshold:
		return translation.Translate("📈 Long position (buy and hold)")
	case change24h < -positionThreshold:
		return translation.Translate("📉 Short position (sell or bet on the drop)")
	default:
		return translation.Translate("⚖️ Neutral")
	}
}

func noData(symbol string) string {
	return fmt.Sprintf("%s: %s\n", helpers.EscapeMarkdownV2(symbol),
		helpers.EscapeMarkdownV2(translation.Translate("❌ Failed to get data")))
}

func renderAnalysis(summaries []Summary) string {
	var b strings.Builder
	b.WriteString(translation.Translate("📊 *Market analysis:*"))
	b.WriteString("\n\n")
	for _, s := range summaries {
		if !s.Found {
			b.WriteString(noData(s.Symbol))
			continue
		}
		fmt.Fprintf(&b, "🔸 %s: $%s \\(%s\\) Vol: $%s MCap: $%s\n",
			helpers.EscapeMarkdownV2(s.Symbol),
			helpers.FormatPriceUS(s.Price, true),
			helpers.FormatPercentage(s.Change24h),
			helpers.EscapeMarkdownV2(humanize.SIWithDigits(s.Volume24h, 2, "")),
			helpers.EscapeMarkdownV2(humanize.SIWithDigits(s.MarketCap, 2, "")),
		)
	}
	return b.String()
}

func renderProfit(summaries []Summary) string {
	var b strings.Builder
	b.WriteString(translation.Translate("💰 *Position suggestions:*"))
	b.WriteString("\n\n")
	for _, s := range summaries {
		if !s.Found {
			b.WriteString(noData(s.Symbol))
			continue
		}
		fmt.Fprintf(&b, "%s: %s \\(%s\\)\n",
			helpers.EscapeMarkdownV2(s.Symbol),
			helpers.EscapeMarkdownV2(positionAdvice(s.Change24h)),
			helpers.FormatPercentage(s.Change24h),
		)
	}
	return b.String()
}

func renderStrategy(summaries []Summary) string {
	advice := helpers.EscapeMarkdownV2(translation.Translate(
		"📌 Strategy:\n" +
			"• Buy in parts (Dollar-Cost Averaging, DCA) regardless of the price.\n" +
			"• Sell a part once the profit reaches %s (take profit).\n" +
			"• Use a trailing stop to sell when the price starts falling after a rise.",
		takeProfit))

	var b strings.Builder
	b.WriteString(translation.Translate("📈 *Strategy:*"))
	b.WriteString("\n\n")
	for _, s := range summaries {
		if !s.Found {
			b.WriteString(noData(s.Symbol))
			continue
		}
		fmt.Fprintf(&b, "🔹 %s\n💵 $%s\n🔄 24h: %s \\| 7d: %s \\| 30d: %s\n%s\n\n",
			helpers.EscapeMarkdownV2(s.Symbol),
			helpers.FormatPriceUS(s.Price, true),
			helpers.FormatPercentage(s.Change24h),
			helpers.FormatPercentage(s.Change7d),
			helpers.FormatPercentage(s.Change30d),
			advice,
		)
	}
	return b.String()
}
