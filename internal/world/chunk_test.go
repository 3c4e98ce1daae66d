package world

import (
	"testing"

	"github.com/annel0/blockmap/internal/vec"
	"github.com/annel0/blockmap/internal/world/block"
	"github.com/stretchr/testify/assert"
)

func TestChunkCreateAndSet(t *testing.T) {
	c := NewChunk(vec.ChunkCoord{X: 5, Z: 10}, 32)
	assert.Equal(t, vec.ChunkCoord{X: 5, Z: 10}, c.Coord)
	assert.Equal(t, block.Air, c.At(3, 4, 5).ID, "новый чанк заполнен воздухом")
	assert.Equal(t, -1, c.TopY(3, 5))

	c.Set(3, 4, 5, Voxel{ID: block.Wheat, State: block.State{Age: 6}})
	v := c.At(3, 4, 5)
	assert.Equal(t, block.Wheat, v.ID)
	assert.Equal(t, 6, v.State.Age)
	assert.Equal(t, 4, c.TopY(3, 5))
	assert.Equal(t, uint64(1), c.Version)
}

func TestChunkOutOfBounds(t *testing.T) {
	c := NewChunk(vec.ChunkCoord{}, 16)
	c.SetID(16, 0, 0, block.Stone)
	c.SetID(0, 16, 0, block.Stone)
	c.SetID(0, -1, 0, block.Stone)
	assert.Equal(t, uint64(0), c.Version)
	assert.Equal(t, Voxel{}, c.At(-1, 0, 0))
}

func TestChunkCloneIsIndependent(t *testing.T) {
	c := NewChunk(vec.ChunkCoord{X: 1}, 16)
	c.FillColumn(0, 0, 5, block.Dirt)
	cp := c.Clone()
	c.SetID(0, 5, 0, block.Grass)

	assert.Equal(t, block.Dirt, cp.At(0, 5, 0).ID)
	assert.Equal(t, block.Grass, c.At(0, 5, 0).ID)
}

func TestChunkVoxelsRoundTrip(t *testing.T) {
	c := NewChunk(vec.ChunkCoord{}, 8)
	c.FillColumn(2, 3, 7, block.Sand)

	other := NewChunk(vec.ChunkCoord{}, 8)
	assert.True(t, other.LoadVoxels(c.Voxels()))
	assert.Equal(t, 7, other.TopY(2, 3))
	assert.False(t, other.LoadVoxels(make([]Voxel, 3)))
}
