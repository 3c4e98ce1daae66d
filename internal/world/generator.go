package world

import (
	"math/rand"

	"github.com/annel0/blockmap/internal/util"
	"github.com/annel0/blockmap/internal/vec"
	"github.com/annel0/blockmap/internal/world/block"
)

// BiomeType представляет тип биома
type BiomeType int

const (
	BiomePlains BiomeType = iota
	BiomeDesert
	BiomeForest
	BiomeMountains
	BiomeWater
	BiomeFarmland
)

// Пороги нормализованной высоты [0, 1]
const (
	ShallowWaterMax = 0.38 // Ниже - вода над дном
	BeachMax        = 0.42 // Ниже - пляж
	MountainStart   = 0.72 // Выше - горы
	SnowStart       = 0.85 // Выше - снежные вершины
)

// Generator генерирует ландшафт для демонстрационного/тестового мира.
// Детерминирован: одинаковый сид и координаты дают одинаковый чанк.
type Generator struct {
	Seed       int64
	Height     int     // Высота мира
	SeaLevel   int     // Уровень моря
	NoiseScale float64 // Масштаб основного шума (высота)
	BiomeScale float64 // Масштаб шума биомов
	TreeChance float64 // Вероятность дерева в лесу

	height *util.Noise
	biome  *util.Noise
}

// NewGenerator создаёт новый генератор мира
func NewGenerator(seed int64, height int) *Generator {
	if height <= 0 {
		height = DefaultHeight
	}
	return &Generator{
		Seed:       seed,
		Height:     height,
		SeaLevel:   int(ShallowWaterMax * float64(height-8)),
		NoiseScale: 0.01,
		BiomeScale: 0.004,
		TreeChance: 0.08,
		height:     util.NewNoise(seed),
		biome:      util.NewNoise(seed + 42),
	}
}

// SurfaceAt возвращает нормализованную высоту и уровень поверхности для мировой колонки
func (g *Generator) SurfaceAt(x, z int) (float64, int) {
	h := g.height.At(float64(x)*g.NoiseScale, float64(z)*g.NoiseScale)
	top := int(h * float64(g.Height-8))
	if top < 1 {
		top = 1
	}
	return h, top
}

// GenerateChunk генерирует чанк по его координатам
func (g *Generator) GenerateChunk(coord vec.ChunkCoord) *Chunk {
	chunk := NewChunk(coord, g.Height)

	// Локальный ГСЧ для детерминированности на уровне чанка
	chunkSeed := g.Seed + int64(coord.X*31) + int64(coord.Z*17)
	rng := rand.New(rand.NewSource(chunkSeed))

	originX, originZ := coord.BlockOrigin()
	for z := 0; z < vec.ChunkSize; z++ {
		for x := 0; x < vec.ChunkSize; x++ {
			wx, wz := originX+x, originZ+z
			h, top := g.SurfaceAt(wx, wz)
			biomeValue := g.biome.At(float64(wx)*g.BiomeScale, float64(wz)*g.BiomeScale)
			biome := g.biomeFor(h, biomeValue)

			g.fillColumn(chunk, x, z, top, h, biome, rng)
		}
	}
	chunk.Version = 0
	return chunk
}

func (g *Generator) fillColumn(c *Chunk, x, z, top int, h float64, biome BiomeType, rng *rand.Rand) {
	c.SetID(x, 0, z, block.Bedrock)
	for y := 1; y < top-3; y++ {
		c.SetID(x, y, z, block.Stone)
	}
	filler, surface := g.blocksFor(biome, h)
	for y := max(1, top-3); y < top; y++ {
		c.SetID(x, y, z, filler)
	}
	c.SetID(x, top, z, surface)

	switch biome {
	case BiomeWater:
		for y := top + 1; y <= g.SeaLevel && y < g.Height; y++ {
			c.SetID(x, y, z, block.Water)
		}
	case BiomeForest:
		if rng.Float64() < g.TreeChance && x > 0 && x < vec.ChunkSize-1 && z > 0 && z < vec.ChunkSize-1 {
			g.placeTree(c, x, top+1, z, rng)
		}
	case BiomeFarmland:
		g.placeCrop(c, x, top+1, z, rng)
	case BiomePlains:
		if rng.Float64() < 0.1 {
			c.SetID(x, top+1, z, block.TallGrass)
		}
	}
}

// placeTree ствол 3-5 блоков и крона-крест сверху
func (g *Generator) placeTree(c *Chunk, x, y, z int, rng *rand.Rand) {
	trunk := 3 + rng.Intn(3)
	for i := 0; i < trunk; i++ {
		c.SetID(x, y+i, z, block.Log)
	}
	crown := y + trunk
	c.SetID(x, crown, z, block.Leaves)
	c.SetID(x+1, crown-1, z, block.Leaves)
	c.SetID(x-1, crown-1, z, block.Leaves)
	c.SetID(x, crown-1, z+1, block.Leaves)
	c.SetID(x, crown-1, z-1, block.Leaves)
}

// placeCrop ряды пшеницы и стеблей с разной стадией роста
func (g *Generator) placeCrop(c *Chunk, x, y, z int, rng *rand.Rand) {
	var id block.ID
	switch z % 3 {
	case 0:
		id = block.Wheat
	case 1:
		id = block.MelonStem
	default:
		id = block.PumpkinStem
	}
	c.Set(x, y, z, Voxel{ID: id, State: block.State{Age: rng.Intn(block.MaxAge + 1)}})
}

// blocksFor возвращает блоки подповерхностного слоя и поверхности
func (g *Generator) blocksFor(biome BiomeType, h float64) (filler, surface block.ID) {
	switch biome {
	case BiomeWater:
		return block.Dirt, block.Gravel
	case BiomeDesert:
		return block.Sand, block.Sand
	case BiomeMountains:
		if h > SnowStart {
			return block.Stone, block.Snow
		}
		return block.Stone, block.Stone
	case BiomeFarmland:
		return block.Dirt, block.Dirt
	default:
		if h < BeachMax {
			return block.Sand, block.Sand
		}
		return block.Dirt, block.Grass
	}
}

// biomeFor определяет тип биома на основе значений шума
func (g *Generator) biomeFor(h, biomeValue float64) BiomeType {
	if h < ShallowWaterMax {
		return BiomeWater
	}
	if h > MountainStart {
		return BiomeMountains
	}
	switch {
	case biomeValue < 0.3:
		return BiomeDesert
	case biomeValue > 0.7:
		return BiomeForest
	case biomeValue > 0.48 && biomeValue < 0.52:
		return BiomeFarmland
	}
	return BiomePlains
}
