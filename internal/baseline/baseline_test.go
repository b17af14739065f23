package baseline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-screener/internal/models"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	store := NewStore(path, zerolog.Nop())

	captured := time.Date(2026, 9, 1, 9, 16, 0, 0, time.UTC)
	entries := map[string]models.BaselineEntry{
		"NIFTY_CE":     {IV: 0.1823, OI: 123400, CapturedAt: captured},
		"NIFTY_PE":     {IV: 0.1954, OI: 256700, CapturedAt: captured},
		"BANKNIFTY_CE": {IV: 0.2101, OI: 89000, CapturedAt: captured},
	}

	require.NoError(t, store.Save(entries))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, len(entries), len(loaded))
	for key, want := range entries {
		got, ok := loaded[key]
		require.True(t, ok, "missing key %s", key)
		assert.InDelta(t, want.IV, got.IV, 1e-12)
		assert.Equal(t, want.OI, got.OI)
		assert.True(t, want.CapturedAt.Equal(got.CapturedAt))
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope", "baseline.json"), zerolog.Nop())

	entries, err := store.Load()
	require.NoError(t, err, "a missing baseline is an empty mapping, not an error")
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestStoreSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	store := NewStore(path, zerolog.Nop())

	require.NoError(t, store.Save(map[string]models.BaselineEntry{
		"NIFTY_CE": {IV: 0.18},
		"INFY_CE":  {IV: 0.32},
	}))
	require.NoError(t, store.Save(map[string]models.BaselineEntry{
		"NIFTY_CE": {IV: 0.21},
	}))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, loaded, 1, "save replaces the mapping wholesale")
	assert.InDelta(t, 0.21, loaded["NIFTY_CE"].IV, 1e-12)
}

func TestStoreSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "baseline.json"), zerolog.Nop())

	require.NoError(t, store.Save(map[string]models.BaselineEntry{"NIFTY_CE": {IV: 0.18}}))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "baseline.json", files[0].Name())
}

func TestStoreLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	store := NewStore(path, zerolog.Nop())
	_, err := store.Load()
	assert.Error(t, err)
}
