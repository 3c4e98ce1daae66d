// Package iterator содержит обход решётки по квадратной спирали от центра.
package iterator

import "github.com/annel0/blockmap/internal/vec"

// direction шаг по решётке. +Z - юг, поэтому порядок восток, юг, запад, север
// идёт по часовой стрелке на карте с севером вверху.
type direction struct{ dx, dz int }

var directions = [4]direction{
	{dx: 1, dz: 0},  // восток
	{dx: 0, dz: 1},  // юг
	{dx: -1, dz: 0}, // запад
	{dx: 0, dz: -1}, // север
}

// Spiral ленивый обход квадрата (2r+1)x(2r+1) вокруг центра кольцами
// неубывающего расстояния Чебышёва. Длины отрезков спирали: 1,1,2,2,3,3,...
//
// Итератор не потокобезопасен: им владеет одна горутина. Повторный обход -
// новый итератор с теми же параметрами.
type Spiral[T any] struct {
	from func(x, z int) T

	x, z   int
	total  int
	served int

	dir      int
	legLen   int
	legStep  int
	legCount int

	current T
}

// NewSpiral создаёт итератор; from строит значение координаты из пары (x, z).
// Отрицательный радиус приводится к нулю.
func NewSpiral[T any](cx, cz, radius int, from func(x, z int) T) *Spiral[T] {
	if radius < 0 {
		radius = 0
	}
	side := 2*radius + 1
	return &Spiral[T]{
		from:   from,
		x:      cx,
		z:      cz,
		total:  side * side,
		legLen: 1,
	}
}

// NewChunkSpiral обходит чанки
func NewChunkSpiral(cx, cz, radius int) *Spiral[vec.ChunkCoord] {
	return NewSpiral(cx, cz, radius, func(x, z int) vec.ChunkCoord {
		return vec.ChunkCoord{X: x, Z: z}
	})
}

// NewRegionSpiral обходит регионы (тайлы)
func NewRegionSpiral(cx, cz, radius int) *Spiral[vec.RegionCoord] {
	return NewSpiral(cx, cz, radius, func(x, z int) vec.RegionCoord {
		return vec.RegionCoord{X: x, Z: z}
	})
}

// Next продвигает итератор. Возвращает false, когда точки закончились.
func (s *Spiral[T]) Next() bool {
	if s.served >= s.total {
		return false
	}
	if s.served > 0 {
		s.step()
	}
	s.current = s.from(s.x, s.z)
	s.served++
	return true
}

// Value возвращает текущую координату (после успешного Next).
func (s *Spiral[T]) Value() T {
	return s.current
}

// Len общее число точек обхода
func (s *Spiral[T]) Len() int {
	return s.total
}

// Remaining сколько точек ещё не выдано
func (s *Spiral[T]) Remaining() int {
	return s.total - s.served
}

func (s *Spiral[T]) step() {
	d := directions[s.dir]
	s.x += d.dx
	s.z += d.dz

	s.legStep++
	if s.legStep < s.legLen {
		return
	}
	s.legStep = 0
	s.dir = (s.dir + 1) % len(directions)
	s.legCount++
	if s.legCount == 2 {
		s.legCount = 0
		s.legLen++
	}
}

// Collect выдаёт все оставшиеся точки срезом.
func Collect[T any](s *Spiral[T]) []T {
	out := make([]T, 0, s.Remaining())
	for s.Next() {
		out = append(out, s.Value())
	}
	return out
}
