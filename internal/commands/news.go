package commands

import (
	"coinpaprika-alert-bot/lib/helpers"
	"coinpaprika-alert-bot/lib/translation"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	defaultNewsURL = "https://cryptopanic.com/api/v1/posts/"
	newsLimit      = 5
)

// News fetches headlines from CryptoPanic.
type News struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

type newsResponse struct {
	Results []struct {
		Title  string `json:"title"`
		URL    string `json:"url"`
		Source struct {
			Title string `json:"title"`
		} `json:"source"`
	} `json:"results"`
}

func NewNews(apiKey string, timeout time.Duration) *News {
	return &News{
		BaseURL: defaultNewsURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an API key is configured.
func (n *News) Enabled() bool {
	return n != nil && n.APIKey != ""
}

// CommandNews renders the latest headlines for a coin symbol.
func (n *News) CommandNews(ctx context.Context, argument string) (string, error) {
	log.Debugf("processing command /news with argument :%s", argument)

	symbol := strings.ToUpper(strings.TrimSpace(argument))
	if symbol == "" {
		return helpers.EscapeMarkdownV2(translation.Translate("Usage: /news BTC")), nil
	}
	if !n.Enabled() {
		return helpers.EscapeMarkdownV2(translation.Translate("News are not configured.")), nil
	}

	headlines, err := n.fetch(ctx, symbol)
	if err != nil {
		return "", errors.Wrap(err, "command /news")
	}
	if len(headlines.Results) == 0 {
		return helpers.EscapeMarkdownV2(translation.Translate("No news about %s right now.", symbol)), nil
	}

	var b strings.Builder
	b.WriteString(translation.Translate("📰 *%s news:*", helpers.EscapeMarkdownV2(symbol)))
	b.WriteString("\n\n")
	for i, post := range headlines.Results {
		if i == newsLimit {
			break
		}
		title := post.Title
		if title == "" {
			title = translation.Translate("Untitled")
		}
		b.WriteString("• " + helpers.EscapeMarkdownV2(title))
		if post.Source.Title != "" {
			b.WriteString(" \\(" + helpers.EscapeMarkdownV2(post.Source.Title) + "\\)")
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (n *News) fetch(ctx context.Context, symbol string) (*newsResponse, error) {
	query := url.Values{}
	query.Set("auth_token", n.APIKey)
	query.Set("currencies", symbol)
	query.Set("kind", "news")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not build news request")
	}

	resp, err := n.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "news request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("news request failed with status %d", resp.StatusCode)
	}

	var result newsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "could not decode news")
	}
	return &result, nil
}
