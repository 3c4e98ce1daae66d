package storage

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/annel0/blockmap/internal/vec"
	"github.com/annel0/blockmap/internal/world"
	"github.com/annel0/blockmap/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupChunkStore(t *testing.T) *ChunkStore {
	store, err := NewChunkStore(t.TempDir())
	require.NoError(t, err, "не удалось создать хранилище")
	t.Cleanup(func() { store.Close() })
	return store
}

func TestChunkStoreSaveAndLoad(t *testing.T) {
	store := setupChunkStore(t)
	ctx := context.Background()

	ch := world.NewChunk(vec.ChunkCoord{X: 10, Z: -20}, 32)
	ch.FillColumn(5, 5, 12, block.Stone)
	ch.Set(5, 13, 5, world.Voxel{ID: block.PumpkinStem, State: block.State{Age: 3}})
	require.NoError(t, store.SaveChunk(ctx, ch))

	got, err := store.Chunk(ctx, vec.ChunkCoord{X: 10, Z: -20})
	require.NoError(t, err)
	assert.Equal(t, 13, got.TopY(5, 5))
	assert.Equal(t, 3, got.At(5, 13, 5).State.Age)
}

func TestChunkStoreMissingIsUnavailable(t *testing.T) {
	store := setupChunkStore(t)
	_, err := store.Chunk(context.Background(), vec.ChunkCoord{X: 1, Z: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, world.ErrChunkUnavailable))
}

func TestChunkStoreNotifiesAndLists(t *testing.T) {
	store := setupChunkStore(t)
	ctx := context.Background()

	var modified []vec.ChunkCoord
	store.OnModified(func(c vec.ChunkCoord) { modified = append(modified, c) })

	gen := world.NewGenerator(1, 32)
	batch := []*world.Chunk{
		gen.GenerateChunk(vec.ChunkCoord{X: 0, Z: 0}),
		gen.GenerateChunk(vec.ChunkCoord{X: -1, Z: 0}),
		gen.GenerateChunk(vec.ChunkCoord{X: 0, Z: -1}),
	}
	require.NoError(t, store.SaveBatch(ctx, batch))
	assert.Len(t, modified, 3)

	coords, err := store.Coords()
	require.NoError(t, err)
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].X != coords[j].X {
			return coords[i].X < coords[j].X
		}
		return coords[i].Z < coords[j].Z
	})
	assert.Equal(t, []vec.ChunkCoord{{X: -1, Z: 0}, {X: 0, Z: -1}, {X: 0, Z: 0}}, coords)

	require.NoError(t, store.DeleteChunk(ctx, vec.ChunkCoord{X: -1, Z: 0}))
	_, err = store.Chunk(ctx, vec.ChunkCoord{X: -1, Z: 0})
	assert.ErrorIs(t, err, world.ErrChunkUnavailable)
	assert.Len(t, modified, 4)
}

func TestChunkStoreClosed(t *testing.T) {
	store, err := NewChunkStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	err = store.SaveChunk(context.Background(), world.NewChunk(vec.ChunkCoord{}, 16))
	assert.Error(t, err)
}
