package config

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	str2duration "github.com/xhit/go-str2duration/v2"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		// .env is optional, real environment variables always win
		if err := godotenv.Load(); err == nil {
			log.Debug("Loaded environment from .env")
		}

		viper.AutomaticEnv()

		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("api_pro_key", "API_PRO_KEY")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang", "LANG")
		viper.BindEnv("db_path", "DB_PATH")
		viper.BindEnv("alerts_storage", "ALERTS_STORAGE")
		viper.BindEnv("alerts_file", "ALERTS_FILE")
		viper.BindEnv("buntdb_file", "BUNTDB_FILE")
		viper.BindEnv("interval_seconds", "INTERVAL_SECONDS")
		viper.BindEnv("price_timeout_seconds", "PRICE_TIMEOUT_SECONDS")
		viper.BindEnv("notify_timeout_seconds", "NOTIFY_TIMEOUT_SECONDS")
		viper.BindEnv("price_refresh_seconds", "PRICE_REFRESH_SECONDS")
		viper.BindEnv("cryptopanic_api_key", "CRYPTOPANIC_API_KEY")

		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "en")
		viper.SetDefault("db_path", "/app/data/bot.db")
		viper.SetDefault("alerts_storage", "file")
		viper.SetDefault("alerts_file", "/app/data/alerts.json")
		viper.SetDefault("buntdb_file", "/app/data/alerts.buntdb")
		viper.SetDefault("interval_seconds", 900)
		viper.SetDefault("price_timeout_seconds", 10)
		viper.SetDefault("notify_timeout_seconds", 10)
		viper.SetDefault("price_refresh_seconds", 60)
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}

// GetSeconds reads a duration key. A bare number is a number of seconds,
// anything else is parsed as a duration such as "90s", "15m" or "1d".
// Missing, invalid and non-positive values fall back to def.
func GetSeconds(key string, def time.Duration) time.Duration {
	InitConfig()
	raw := strings.TrimSpace(viper.GetString(key))
	if raw == "" {
		return def
	}

	var d time.Duration
	if n, err := strconv.Atoi(raw); err == nil {
		d = time.Duration(n) * time.Second
	} else if d, err = str2duration.ParseDuration(raw); err != nil {
		log.Warnf("Invalid duration %q for %s, using %s", raw, key, def)
		return def
	}
	if d <= 0 {
		return def
	}
	return d
}
