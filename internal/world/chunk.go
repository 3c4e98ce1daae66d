package world

import (
	"github.com/annel0/blockmap/internal/vec"
	"github.com/annel0/blockmap/internal/world/block"
)

// DefaultHeight высота мира по умолчанию в блоках
const DefaultHeight = 128

// Voxel один блок мира: тип и состояние
type Voxel struct {
	ID    block.ID    `json:"id"`
	State block.State `json:"state"`
}

// Chunk столб мира 16x16xHeight. Индекс воксела: (y*16+z)*16+x.
//
// Чанк, полученный рендером из Source, считается снимком: источник не изменяет
// его после выдачи.
type Chunk struct {
	Coord   vec.ChunkCoord
	Height  int
	Version uint64 // Счетчик изменений

	voxels []Voxel
}

// NewChunk создаёт пустой (воздух) чанк указанной высоты
func NewChunk(coord vec.ChunkCoord, height int) *Chunk {
	if height <= 0 {
		height = DefaultHeight
	}
	return &Chunk{
		Coord:  coord,
		Height: height,
		voxels: make([]Voxel, vec.ChunkSize*vec.ChunkSize*height),
	}
}

func (c *Chunk) index(x, y, z int) int {
	return (y*vec.ChunkSize+z)*vec.ChunkSize + x
}

// InBounds проверяет локальные координаты
func (c *Chunk) InBounds(x, y, z int) bool {
	return x >= 0 && x < vec.ChunkSize && z >= 0 && z < vec.ChunkSize && y >= 0 && y < c.Height
}

// At возвращает воксел по локальным координатам; вне границ - воздух
func (c *Chunk) At(x, y, z int) Voxel {
	if !c.InBounds(x, y, z) {
		return Voxel{}
	}
	return c.voxels[c.index(x, y, z)]
}

// Set устанавливает воксел по локальным координатам. Вне границ игнорируется.
func (c *Chunk) Set(x, y, z int, v Voxel) {
	if !c.InBounds(x, y, z) {
		return
	}
	c.voxels[c.index(x, y, z)] = v
	c.Version++
}

// SetID устанавливает блок с состоянием по умолчанию
func (c *Chunk) SetID(x, y, z int, id block.ID) {
	c.Set(x, y, z, Voxel{ID: id})
}

// FillColumn заполняет столб от y=0 до top включительно
func (c *Chunk) FillColumn(x, z, top int, id block.ID) {
	for y := 0; y <= top && y < c.Height; y++ {
		c.voxels[c.index(x, y, z)] = Voxel{ID: id}
	}
	c.Version++
}

// TopY возвращает высоту самого верхнего не-воздушного блока столба или -1
func (c *Chunk) TopY(x, z int) int {
	for y := c.Height - 1; y >= 0; y-- {
		if c.voxels[c.index(x, y, z)].ID != block.Air {
			return y
		}
	}
	return -1
}

// Clone глубокая копия чанка
func (c *Chunk) Clone() *Chunk {
	out := &Chunk{
		Coord:   c.Coord,
		Height:  c.Height,
		Version: c.Version,
		voxels:  make([]Voxel, len(c.voxels)),
	}
	copy(out.voxels, c.voxels)
	return out
}

// Voxels возвращает копию всех вокселов (для сериализации)
func (c *Chunk) Voxels() []Voxel {
	out := make([]Voxel, len(c.voxels))
	copy(out, c.voxels)
	return out
}

// LoadVoxels заменяет содержимое чанка. Длина должна совпадать с 16*16*Height.
func (c *Chunk) LoadVoxels(v []Voxel) bool {
	if len(v) != len(c.voxels) {
		return false
	}
	copy(c.voxels, v)
	return true
}
