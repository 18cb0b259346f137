package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	assert.Equal(t, 900, GetInt("interval_seconds"))
	assert.Equal(t, "file", GetString("alerts_storage"))
	assert.Equal(t, 9090, GetInt("metrics_port"))
}

func TestGetSecondsFromEnv(t *testing.T) {
	t.Setenv("INTERVAL_SECONDS", "60")
	assert.Equal(t, time.Minute, GetSeconds("interval_seconds", time.Hour))

	t.Setenv("PRICE_TIMEOUT_SECONDS", "0")
	assert.Equal(t, 5*time.Second, GetSeconds("price_timeout_seconds", 5*time.Second))
}

func TestGetSecondsDurationStrings(t *testing.T) {
	t.Setenv("INTERVAL_SECONDS", "15m")
	assert.Equal(t, 15*time.Minute, GetSeconds("interval_seconds", time.Hour))

	t.Setenv("INTERVAL_SECONDS", "1d")
	assert.Equal(t, 24*time.Hour, GetSeconds("interval_seconds", time.Hour))

	t.Setenv("INTERVAL_SECONDS", "soon")
	assert.Equal(t, time.Hour, GetSeconds("interval_seconds", time.Hour))
}
