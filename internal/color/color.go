// Package color содержит собственный тип цвета карты и разрешение цветов блоков.
package color

import (
	"encoding/json"
	"fmt"
	stdcolor "image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB упакованный 24-битный цвет 0xRRGGBB
type RGB uint32

// Предопределённые цвета
const (
	Black  RGB = 0x000000
	White  RGB = 0xFFFFFF
	Blue   RGB = 0x0000FF
	Plants RGB = 0x007C00 // базовый цвет растительности, от него считается пшеница
)

// FromChannels собирает цвет из каналов
func FromChannels(r, g, b uint8) RGB {
	return RGB(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// R красный канал
func (c RGB) R() uint8 { return uint8(c >> 16) }

// G зелёный канал
func (c RGB) G() uint8 { return uint8(c >> 8) }

// B синий канал
func (c RGB) B() uint8 { return uint8(c) }

// NRGBA переводит цвет в image/color с заданной альфой (граница с хранилищем тайлов).
func (c RGB) NRGBA(alpha uint8) stdcolor.NRGBA {
	return stdcolor.NRGBA{R: c.R(), G: c.G(), B: c.B(), A: alpha}
}

// Hex возвращает "#rrggbb"
func (c RGB) Hex() string {
	return c.colorful().Hex()
}

// String реализует fmt.Stringer
func (c RGB) String() string {
	return c.Hex()
}

func (c RGB) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R()) / 255.0,
		G: float64(c.G()) / 255.0,
		B: float64(c.B()) / 255.0,
	}
}

// ParseHex разбирает "#rrggbb" или "#rgb". Префикс "#" необязателен.
func ParseHex(s string) (RGB, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return FromChannels(r, g, b), nil
}

// MarshalJSON кодирует цвет как "#rrggbb"
func (c RGB) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

// UnmarshalJSON принимает "#rrggbb"
func (c *RGB) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseHex(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Mix линейно смешивает a и b: a*(1-t) + b*t по каналам с отбрасыванием дробной части.
func Mix(a, b RGB, t float64) RGB {
	if t >= 1 {
		return b
	}
	if t <= 0 {
		return a
	}
	inv := 1.0 - t
	r := int(float64(a.R())*inv + float64(b.R())*t)
	g := int(float64(a.G())*inv + float64(b.G())*t)
	bl := int(float64(a.B())*inv + float64(b.B())*t)
	return RGB(r<<16 | g<<8 | bl)
}

// Scale умножает каналы на factor с ограничением [0, 255]
func Scale(c RGB, factor float64) RGB {
	return FromChannels(clamp(float64(c.R())*factor), clamp(float64(c.G())*factor), clamp(float64(c.B())*factor))
}

func clamp(v float64) uint8 {
	if v >= 255.0 {
		return 255
	}
	if v <= 0.0 {
		return 0
	}
	return uint8(v)
}
