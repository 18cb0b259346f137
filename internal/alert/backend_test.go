package alert

import (
	"coinpaprika-alert-bot/internal/types"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_MissingFileIsEmpty(t *testing.T) {
	backend := NewFileBackend(afero.NewMemMapFs(), "/nowhere/alerts.json")

	watches, err := backend.Load()
	require.NoError(t, err)
	assert.Empty(t, watches)
}

func TestFileBackend_EmptyFileIsEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, alertsPath, []byte("  \n"), 0o644))

	watches, err := NewFileBackend(fs, alertsPath).Load()
	require.NoError(t, err)
	assert.Empty(t, watches)
}

func TestFileBackend_CorruptFileFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, alertsPath, []byte(`{"u1": [`), 0o644))

	_, err := NewFileBackend(fs, alertsPath).Load()
	assert.Error(t, err)
}

func TestFileBackend_SaveReplacesAtomically(t *testing.T) {
	fs := afero.NewMemMapFs()
	backend := NewFileBackend(fs, alertsPath)

	require.NoError(t, backend.Save(map[string][]types.Watch{"u1": {{Coin: "BTC", Price: 65000}}}))
	require.NoError(t, backend.Save(map[string][]types.Watch{"u2": {{Coin: "ETH", Price: 3000}}}))

	entries, err := afero.ReadDir(fs, filepath.Dir(alertsPath))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
	assert.Equal(t, "alerts.json", entries[0].Name())

	watches, err := backend.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string][]types.Watch{"u2": {{Coin: "ETH", Price: 3000}}}, watches)
}

func TestFileBackend_SaveNilWritesEmptyObject(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, NewFileBackend(fs, alertsPath).Save(nil))

	data, err := afero.ReadFile(fs, alertsPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestFileBackend_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "alerts.json")
	backend := NewFileBackend(afero.NewOsFs(), path)

	want := map[string][]types.Watch{
		"u1": {{Coin: "BTC", Price: 65000}, {Coin: "ETH", Price: 3000.25}},
	}
	require.NoError(t, backend.Save(want))

	got, err := backend.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
