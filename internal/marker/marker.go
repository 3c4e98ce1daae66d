package marker

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/annel0/blockmap/internal/vec"
	"github.com/cespare/xxhash/v2"
)

// ErrGeometryMalformed геометрия маркера некорректна (например, пустой контур).
// Исправлять её должен тот, кто создаёт маркер.
var ErrGeometryMalformed = errors.New("marker geometry malformed")

// Типы маркеров в JSON для клиента
const (
	TypePolygon      = "polygon"
	TypeMultiPolygon = "multipolygon"
	TypePolyline     = "polyline"
	TypeCircle       = "circle"
	TypeRectangle    = "rectangle"
)

// Marker векторная фигура поверх карты. У каждого маркера ровно один стиль.
type Marker interface {
	Type() string
	Options() Options
	Validate() error
}

// base общая часть всех маркеров
type base struct {
	options Options
}

func (b base) Options() Options { return b.options }

func copyRing(ring []vec.Point) []vec.Point {
	out := make([]vec.Point, len(ring))
	copy(out, ring)
	return out
}

func copyRings(rings [][]vec.Point) [][]vec.Point {
	out := make([][]vec.Point, len(rings))
	for i, r := range rings {
		out[i] = copyRing(r)
	}
	return out
}

func ringsEqual(a, b []vec.Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !pointEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func ringListsEqual(a, b [][]vec.Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ringsEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func floatEqual(a, b float64) bool {
	return math.Float64bits(a) == math.Float64bits(b)
}

func pointEqual(a, b vec.Point) bool {
	return floatEqual(a.X, b.X) && floatEqual(a.Z, b.Z)
}

// writeRing пишет длину контура и точки побитово, как их сравнивает pointEqual
func writeRing(d *xxhash.Digest, ring []vec.Point) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(ring)))
	_, _ = d.Write(buf[:])
	for _, p := range ring {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(p.X))
		_, _ = d.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(p.Z))
		_, _ = d.Write(buf[:])
	}
}
