package helpers

import (
	"fmt"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"strings"
)

var markdownV2Replacer = func() *strings.Replacer {
	charactersToEscape := []string{"\\", ".", "-", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "=", "|", "{", "}", "!"}

	pairs := make([]string, 0, len(charactersToEscape)*2)
	for _, char := range charactersToEscape {
		pairs = append(pairs, char, "\\"+char)
	}
	return strings.NewReplacer(pairs...)
}()

func EscapeMarkdownV2(text string) string {
	return markdownV2Replacer.Replace(text)
}

func FormatPriceUS(price float64, escapeMarkdown bool) string {
	decimals := 6

	if price >= 1000 {
		decimals = 0
	} else if price > 1.2 {
		decimals = 2
	} else if price < 0.00001 {
		decimals = 8
	}

	p := message.NewPrinter(language.English)
	formatted := p.Sprintf("%.*f", decimals, price)

	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}

func FormatPriceRoundedUS(price float64) string {
	roundedPrice := int64(price + 0.5)

	p := message.NewPrinter(language.English)
	return EscapeMarkdownV2(p.Sprintf("%d", roundedPrice))
}

func FormatSupplyUS(supply int64) string {
	p := message.NewPrinter(language.English)
	return EscapeMarkdownV2(p.Sprintf("%d", supply))
}

// FormatPercentage renders a signed percentage with two decimals, escaped.
func FormatPercentage(value float64) string {
	return EscapeMarkdownV2(fmt.Sprintf("%+.2f%%", value))
}
