package marker

import (
	"encoding/json"
	"fmt"

	"github.com/annel0/blockmap/internal/vec"
)

// MultiPolygon набор полигонов с общим стилем
type MultiPolygon struct {
	base
	polygons []*Polygon
}

// NewMultiPolygon создаёт мультиполигон. Стили вложенных полигонов игнорируются.
func NewMultiPolygon(polygons ...*Polygon) *MultiPolygon {
	out := make([]*Polygon, len(polygons))
	for i, p := range polygons {
		out[i] = p.WithOptions(DefaultOptions())
	}
	return &MultiPolygon{base: base{options: DefaultOptions()}, polygons: out}
}

func (m *MultiPolygon) Type() string { return TypeMultiPolygon }

// Polygons возвращает копии вложенных полигонов
func (m *MultiPolygon) Polygons() []*Polygon {
	out := make([]*Polygon, len(m.polygons))
	for i, p := range m.polygons {
		out[i] = p.WithOptions(m.options)
	}
	return out
}

func (m *MultiPolygon) WithOptions(o Options) *MultiPolygon {
	return &MultiPolygon{base: base{options: o}, polygons: m.polygons}
}

func (m *MultiPolygon) Validate() error {
	if len(m.polygons) == 0 {
		return fmt.Errorf("%w: multipolygon has no polygons", ErrGeometryMalformed)
	}
	for i, p := range m.polygons {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("polygon %d: %w", i, err)
		}
	}
	return nil
}

// MarshalJSON реализует json.Marshaler
func (m *MultiPolygon) MarshalJSON() ([]byte, error) {
	type part struct {
		Points []vec.Point   `json:"points"`
		Holes  [][]vec.Point `json:"holes"`
	}
	parts := make([]part, len(m.polygons))
	for i, p := range m.polygons {
		parts[i] = part{Points: p.mainPolygon, Holes: p.negativeSpace}
	}
	return json.Marshal(struct {
		Type     string  `json:"type"`
		Polygons []part  `json:"polygons"`
		Options  Options `json:"options"`
	}{TypeMultiPolygon, parts, m.options})
}

// Polyline ломаная линия
type Polyline struct {
	base
	points []vec.Point
}

// NewPolyline создаёт ломаную со стилем по умолчанию
func NewPolyline(points ...vec.Point) *Polyline {
	return &Polyline{base: base{options: DefaultOptions()}, points: copyRing(points)}
}

func (l *Polyline) Type() string { return TypePolyline }

func (l *Polyline) Points() []vec.Point { return copyRing(l.points) }

func (l *Polyline) WithOptions(o Options) *Polyline {
	return &Polyline{base: base{options: o}, points: l.points}
}

// Validate ломаная требует минимум две точки
func (l *Polyline) Validate() error {
	if len(l.points) < 2 {
		return fmt.Errorf("%w: polyline needs at least 2 points, got %d", ErrGeometryMalformed, len(l.points))
	}
	return nil
}

// MarshalJSON реализует json.Marshaler
func (l *Polyline) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string      `json:"type"`
		Points  []vec.Point `json:"points"`
		Options Options     `json:"options"`
	}{TypePolyline, l.points, l.options})
}

// Circle окружность в мировых координатах
type Circle struct {
	base
	center vec.Point
	radius float64
}

// NewCircle создаёт окружность со стилем по умолчанию
func NewCircle(center vec.Point, radius float64) *Circle {
	return &Circle{base: base{options: DefaultOptions()}, center: center, radius: radius}
}

func (c *Circle) Type() string { return TypeCircle }
func (c *Circle) Center() vec.Point { return c.center }
func (c *Circle) Radius() float64 { return c.radius }

func (c *Circle) WithOptions(o Options) *Circle {
	return &Circle{base: base{options: o}, center: c.center, radius: c.radius}
}

// Contains проверяет попадание точки в круг (границу включительно)
func (c *Circle) Contains(p vec.Point) bool {
	return c.center.DistanceTo(p) <= c.radius
}

func (c *Circle) Validate() error {
	if c.radius <= 0 {
		return fmt.Errorf("%w: circle radius %g", ErrGeometryMalformed, c.radius)
	}
	return nil
}

// MarshalJSON реализует json.Marshaler
func (c *Circle) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string    `json:"type"`
		Center  vec.Point `json:"center"`
		Radius  float64   `json:"radius"`
		Options Options   `json:"options"`
	}{TypeCircle, c.center, c.radius, c.options})
}

// Rectangle прямоугольник по двум углам
type Rectangle struct {
	base
	point1 vec.Point
	point2 vec.Point
}

// NewRectangle создаёт прямоугольник со стилем по умолчанию
func NewRectangle(p1, p2 vec.Point) *Rectangle {
	return &Rectangle{base: base{options: DefaultOptions()}, point1: p1, point2: p2}
}

func (r *Rectangle) Type() string { return TypeRectangle }
func (r *Rectangle) Point1() vec.Point { return r.point1 }
func (r *Rectangle) Point2() vec.Point { return r.point2 }

func (r *Rectangle) WithOptions(o Options) *Rectangle {
	return &Rectangle{base: base{options: o}, point1: r.point1, point2: r.point2}
}

// Polygon представляет прямоугольник замкнутым полигоном (по часовой стрелке от point1)
func (r *Rectangle) Polygon() *Polygon {
	p := NewPolygon([]vec.Point{
		r.point1,
		vec.Pt(r.point2.X, r.point1.Z),
		r.point2,
		vec.Pt(r.point1.X, r.point2.Z),
	})
	return p.WithOptions(r.options)
}

// Validate прямоугольник нулевой площади считается некорректным
func (r *Rectangle) Validate() error {
	if r.point1.X == r.point2.X || r.point1.Z == r.point2.Z {
		return fmt.Errorf("%w: degenerate rectangle %v-%v", ErrGeometryMalformed, r.point1, r.point2)
	}
	return nil
}

// MarshalJSON реализует json.Marshaler
func (r *Rectangle) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string      `json:"type"`
		Points  []vec.Point `json:"points"`
		Options Options     `json:"options"`
	}{TypeRectangle, []vec.Point{r.point1, r.point2}, r.options})
}
