package database

import (
	"coinpaprika-alert-bot/internal/types"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuntBackend_InMemory(t *testing.T) {
	backend, err := OpenBunt(":memory:")
	require.NoError(t, err)
	defer backend.Close()

	require.NoError(t, backend.Save(map[string][]types.Watch{
		"u1": {{Coin: "BTC", Price: 65000}},
		"u2": {{Coin: "ETH", Price: 3000}},
	}))
	require.NoError(t, backend.Save(map[string][]types.Watch{
		"u2": {{Coin: "ETH", Price: 3000}, {Coin: "SOL", Price: 150}},
		"u3": {},
	}))

	got, err := backend.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string][]types.Watch{
		"u2": {{Coin: "ETH", Price: 3000}, {Coin: "SOL", Price: 150}},
	}, got)
}

func TestBuntBackend_ReopenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.buntdb")

	backend, err := OpenBunt(path)
	require.NoError(t, err)
	want := map[string][]types.Watch{"u1": {{Coin: "BTC", Price: 65000.5}}}
	require.NoError(t, backend.Save(want))
	require.NoError(t, backend.Close())

	reopened, err := OpenBunt(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
