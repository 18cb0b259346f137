package translation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslate_FormatsVars(t *testing.T) {
	Configure("../../locales", "en")

	assert.Equal(t, "No alert for BTC at 65000 USD.", Translate("No alert for %s at %s USD.", "BTC", "65000"))
	assert.Equal(t, "Profit reaches +10%", Translate("Profit reaches %s", "+10%"))
}

func TestTranslate_WithoutVarsKeepsText(t *testing.T) {
	Configure("../../locales", "en")

	assert.Equal(t, "You have no active alerts.", Translate("You have no active alerts."))
}

func TestTranslate_Latvian(t *testing.T) {
	Configure("../../locales", "lv")
	defer Configure("../../locales", "en")

	assert.Equal(t, "Nav brīdinājuma BTC pie 65000 USD.", Translate("No alert for %s at %s USD.", "BTC", "65000"))
}
