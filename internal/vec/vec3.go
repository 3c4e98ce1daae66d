package vec

// BlockPos мировые координаты блока (Y - высота)
type BlockPos struct {
	X int
	Y int
	Z int
}

// Chunk возвращает чанк, содержащий блок
func (b BlockPos) Chunk() ChunkCoord {
	return BlockToChunk(b.X, b.Z)
}

// Local возвращает координаты блока внутри чанка
func (b BlockPos) Local() (x, z int) {
	return b.X & (ChunkSize - 1), b.Z & (ChunkSize - 1)
}
