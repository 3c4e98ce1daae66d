package marker

import (
	"encoding/json"
	"fmt"

	"github.com/annel0/blockmap/internal/vec"
	"github.com/cespare/xxhash/v2"
)

// Polygon многоугольник с дырами. Контуры копируются при создании и при чтении,
// поэтому полигон не разделяет память с вызывающим кодом.
//
// Замкнутость и самопересечения не проверяются: правило заливки интерпретирует клиент.
type Polygon struct {
	base
	mainPolygon   []vec.Point
	negativeSpace [][]vec.Point
}

// NewPolygon создаёт полигон со стилем по умолчанию
func NewPolygon(main []vec.Point, holes ...[]vec.Point) *Polygon {
	return &Polygon{
		base:          base{options: DefaultOptions()},
		mainPolygon:   copyRing(main),
		negativeSpace: copyRings(holes),
	}
}

func (p *Polygon) Type() string { return TypePolygon }

// MainPolygon внешний контур (копия)
func (p *Polygon) MainPolygon() []vec.Point {
	return copyRing(p.mainPolygon)
}

// NegativeSpace дыры по порядку (копия)
func (p *Polygon) NegativeSpace() [][]vec.Point {
	return copyRings(p.negativeSpace)
}

// WithOptions возвращает копию полигона с другим стилем
func (p *Polygon) WithOptions(o Options) *Polygon {
	return &Polygon{
		base:          base{options: o},
		mainPolygon:   copyRing(p.mainPolygon),
		negativeSpace: copyRings(p.negativeSpace),
	}
}

// Equal сравнивает стиль, внешний контур и список дыр с учётом порядка
func (p *Polygon) Equal(other *Polygon) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.options.Equal(other.options) &&
		ringsEqual(p.mainPolygon, other.mainPolygon) &&
		ringListsEqual(p.negativeSpace, other.negativeSpace)
}

// Hash согласован с Equal: стиль, внешний контур и дыры по порядку
func (p *Polygon) Hash() uint64 {
	d := xxhash.New()
	p.options.writeHash(d)
	writeRing(d, p.mainPolygon)
	for _, h := range p.negativeSpace {
		writeRing(d, h)
	}
	return d.Sum64()
}

// Validate проверяет, что ни один контур не пуст
func (p *Polygon) Validate() error {
	if len(p.mainPolygon) == 0 {
		return fmt.Errorf("%w: polygon has empty main ring", ErrGeometryMalformed)
	}
	for i, h := range p.negativeSpace {
		if len(h) == 0 {
			return fmt.Errorf("%w: polygon hole %d is empty", ErrGeometryMalformed, i)
		}
	}
	return nil
}

type polygonJSON struct {
	Type    string        `json:"type"`
	Points  []vec.Point   `json:"points"`
	Holes   [][]vec.Point `json:"holes"`
	Options Options       `json:"options"`
}

// MarshalJSON реализует json.Marshaler
func (p *Polygon) MarshalJSON() ([]byte, error) {
	return json.Marshal(polygonJSON{
		Type:    TypePolygon,
		Points:  p.mainPolygon,
		Holes:   p.negativeSpace,
		Options: p.options,
	})
}
