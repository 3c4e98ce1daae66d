package vec

import "fmt"

// ChunkSize размер чанка по X/Z в блоках
const ChunkSize = 16

// ChunkShift сдвиг для перевода блочных координат в координаты чанка
const ChunkShift = 4

// ChunkCoord координаты чанка в сетке мира. Сравнимы, используются как ключ карты.
type ChunkCoord struct {
	X, Z int
}

// RegionCoord координаты региона (тайла карты), покрывающего квадрат чанков.
type RegionCoord struct {
	X, Z int
}

// String возвращает строковое представление
func (c ChunkCoord) String() string {
	return fmt.Sprintf("chunk(%d,%d)", c.X, c.Z)
}

// String возвращает строковое представление
func (r RegionCoord) String() string {
	return fmt.Sprintf("region(%d,%d)", r.X, r.Z)
}

// ChebyshevTo возвращает расстояние Чебышёва до другого чанка
func (c ChunkCoord) ChebyshevTo(other ChunkCoord) int {
	return max(absInt(c.X-other.X), absInt(c.Z-other.Z))
}

// ChebyshevTo возвращает расстояние Чебышёва до другого региона
func (r RegionCoord) ChebyshevTo(other RegionCoord) int {
	return max(absInt(r.X-other.X), absInt(r.Z-other.Z))
}

// BlockOrigin возвращает мировые координаты северо-западного блока чанка
func (c ChunkCoord) BlockOrigin() (x, z int) {
	return c.X << ChunkShift, c.Z << ChunkShift
}

// Region возвращает регион, которому принадлежит чанк.
// chunksPerRegion должен быть > 0; деление округляется вниз для отрицательных координат.
func (c ChunkCoord) Region(chunksPerRegion int) RegionCoord {
	return RegionCoord{X: FloorDiv(c.X, chunksPerRegion), Z: FloorDiv(c.Z, chunksPerRegion)}
}

// North возвращает соседний чанк с севера (Z-1)
func (c ChunkCoord) North() ChunkCoord {
	return ChunkCoord{X: c.X, Z: c.Z - 1}
}

// FirstChunk возвращает северо-западный чанк региона
func (r RegionCoord) FirstChunk(chunksPerRegion int) ChunkCoord {
	return ChunkCoord{X: r.X * chunksPerRegion, Z: r.Z * chunksPerRegion}
}

// Chunks возвращает все чанки региона построчно (с севера на юг, с запада на восток).
func (r RegionCoord) Chunks(chunksPerRegion int) []ChunkCoord {
	first := r.FirstChunk(chunksPerRegion)
	out := make([]ChunkCoord, 0, chunksPerRegion*chunksPerRegion)
	for dz := 0; dz < chunksPerRegion; dz++ {
		for dx := 0; dx < chunksPerRegion; dx++ {
			out = append(out, ChunkCoord{X: first.X + dx, Z: first.Z + dz})
		}
	}
	return out
}

// BlockToChunk переводит мировые координаты блока в координаты чанка
func BlockToChunk(x, z int) ChunkCoord {
	return ChunkCoord{X: x >> ChunkShift, Z: z >> ChunkShift}
}

// FloorDiv целочисленное деление с округлением к минус бесконечности
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
