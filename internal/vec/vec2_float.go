package vec

import "math"

// Point точка в мировых координатах с плавающей точкой (X - восток, Z - юг).
type Point struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Pt короткий конструктор точки
func Pt(x, z float64) Point {
	return Point{X: x, Z: z}
}

// Add складывает две точки
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Z: p.Z + other.Z}
}

// DistanceTo вычисляет расстояние до другой точки
func (p Point) DistanceTo(other Point) float64 {
	dx := p.X - other.X
	dz := p.Z - other.Z
	return math.Sqrt(dx*dx + dz*dz)
}

// Chunk возвращает чанк, содержащий точку
func (p Point) Chunk() ChunkCoord {
	return BlockToChunk(int(math.Floor(p.X)), int(math.Floor(p.Z)))
}
