package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdownV2(t *testing.T) {
	assert.Equal(t, `Bitcoin \(BTC\) \+1\.5%`, EscapeMarkdownV2("Bitcoin (BTC) +1.5%"))
	assert.Equal(t, `a\\b`, EscapeMarkdownV2(`a\b`))
}

func TestFormatPriceUS(t *testing.T) {
	tests := []struct {
		price float64
		want  string
	}{
		{65000, "65,000"},
		{12.346, "12.35"},
		{0.5, "0.500000"},
		{0.000001, "0.00000100"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPriceUS(tt.price, false))
	}
	assert.Equal(t, `12\.35`, FormatPriceUS(12.346, true))
}

func TestFormatPriceRoundedUS(t *testing.T) {
	assert.Equal(t, "1,234,568", FormatPriceRoundedUS(1234567.6))
}

func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, `\+3\.25%`, FormatPercentage(3.25))
	assert.Equal(t, `\-1\.00%`, FormatPercentage(-1))
}
