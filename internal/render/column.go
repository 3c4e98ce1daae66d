package render

import (
	"github.com/annel0/blockmap/internal/color"
	"github.com/annel0/blockmap/internal/world"
	"github.com/annel0/blockmap/internal/world/block"
)

// Множители рельефного затенения относительно соседа с севера
const (
	ShadeHigher = 1.1
	ShadeLower  = 0.86
	ShadeFlat   = 1.0
)

// opaqueEnough накопленная непрозрачность, после которой столб не сканируется дальше
const opaqueEnough = 254.5 / 255.0

// column результат сканирования одного столба
type column struct {
	r, g, b float64 // премультиплицированные каналы 0..255
	alpha   float64 // 0..1
	height  int     // высота первого видимого воксела, -1 если столб пуст
}

func (c *column) empty() bool {
	return c.height < 0
}

// add смешивание front-to-back: ближний к камере воксел уже учтён
func (c *column) add(rgb color.RGB, alpha float64) {
	w := (1 - c.alpha) * alpha
	c.r += w * float64(rgb.R())
	c.g += w * float64(rgb.G())
	c.b += w * float64(rgb.B())
	c.alpha += w
}

// color итоговый цвет без премультипликации
func (c *column) color() color.RGB {
	if c.alpha <= 0 {
		return color.Black
	}
	return color.FromChannels(
		clampByte(c.r/c.alpha),
		clampByte(c.g/c.alpha),
		clampByte(c.b/c.alpha),
	)
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// scanColumn идёт сверху вниз по столбу (x, z) чанка и останавливается
// на первом непрозрачном окрашенном вокселе.
func (r *Renderer) scanColumn(c *world.Chunk, x, z int) column {
	col := column{height: -1}
	top := r.scanTop(c)
	for y := top; y >= r.cfg.ScanBottom; y-- {
		v := c.At(x, y, z)
		props, ok := block.Get(v.ID)
		if !ok || props.Transparent() {
			continue
		}
		rgb, ok := r.resolver.Color(v.ID, v.State)
		if !ok {
			continue
		}
		if col.height < 0 {
			col.height = y
		}
		col.add(rgb, float64(props.Alpha)/255.0)
		if col.alpha >= opaqueEnough {
			col.alpha = 1
			break
		}
	}
	return col
}

// surfaceHeight высота столба без расчёта цвета (для соседей)
func (r *Renderer) surfaceHeight(c *world.Chunk, x, z int) int {
	top := r.scanTop(c)
	for y := top; y >= r.cfg.ScanBottom; y-- {
		v := c.At(x, y, z)
		props, ok := block.Get(v.ID)
		if !ok || props.Transparent() {
			continue
		}
		if _, ok := r.resolver.Color(v.ID, v.State); ok {
			return y
		}
	}
	return -1
}

func (r *Renderer) scanTop(c *world.Chunk) int {
	top := c.Height - 1
	if r.cfg.ScanTop >= 0 && r.cfg.ScanTop < top {
		top = r.cfg.ScanTop
	}
	return top
}

// shade множитель яркости для столба высотой h при высоте соседа с севера north
func shade(h, north int) float64 {
	if north < 0 || h < 0 {
		return ShadeFlat
	}
	switch {
	case h > north:
		return ShadeHigher
	case h < north:
		return ShadeLower
	default:
		return ShadeFlat
	}
}
