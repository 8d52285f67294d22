package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/catalogsync/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend(t *testing.T) {
	tests := []struct {
		name     string
		dir      func(t *testing.T) string
		inMemory bool
	}{
		{"in memory", func(*testing.T) string { return "" }, true},
		{"creates missing directory", func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "nested", "index")
		}, false},
		{"existing directory", func(t *testing.T) string { return t.TempDir() }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.dir(t)
			backend, err := OpenBackend(dir, tt.inMemory)
			require.NoError(t, err)
			assert.False(t, backend.IsClosed())
			require.NoError(t, backend.Close())
			assert.True(t, backend.IsClosed())

			if !tt.inMemory {
				info, err := os.Stat(dir)
				require.NoError(t, err)
				assert.True(t, info.IsDir())
			}
		})
	}
}

func TestOpenBackend_PathIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "index")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := OpenBackend(file, false)
	assert.ErrorContains(t, err, "badger: prepare")
}

func TestUnitVector(t *testing.T) {
	v := unitVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.InDelta(t, 1.0, dot(v, v), 1e-6)

	assert.Equal(t, []float32{0, 0}, unitVector([]float32{0, 0}))
}

func TestDot(t *testing.T) {
	assert.Equal(t, float32(11), dot([]float32{1, 2}, []float32{3, 4}))
	assert.Equal(t, float32(3), dot([]float32{1, 2, 9}, []float32{3}))
	assert.Equal(t, float32(3), dot([]float32{3}, []float32{1, 2, 9}))
}

func TestCheckpointStore(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	store := NewCheckpointStore(backend)

	missing, err := store.LoadCheckpoint(ctx, "incremental")
	require.NoError(t, err)
	assert.Nil(t, missing)

	lastSync := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, store.SaveCheckpoint(ctx, &core.Checkpoint{Name: "incremental", LastSync: lastSync}))

	loaded, err := store.LoadCheckpoint(ctx, "incremental")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "incremental", loaded.Name)
	assert.True(t, lastSync.Equal(loaded.LastSync))
	assert.False(t, loaded.UpdatedAt.IsZero())

	other, err := store.LoadCheckpoint(ctx, "nightly")
	require.NoError(t, err)
	assert.Nil(t, other)
}
