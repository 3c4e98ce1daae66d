package marker

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/annel0/blockmap/internal/color"
	"github.com/cespare/xxhash/v2"
)

// FillRule правило заливки для самопересекающихся/вложенных контуров
type FillRule string

const (
	FillNonZero FillRule = "nonzero"
	FillEvenOdd FillRule = "evenodd"
)

// Значения по умолчанию для Options
const (
	DefaultStrokeWeight  = 3
	DefaultStrokeOpacity = 1.0
	DefaultFillOpacity   = 0.2
)

// DefaultStrokeColor цвет обводки по умолчанию
const DefaultStrokeColor = color.Blue

// Options стиль маркера. Создаётся только через Builder и после Build не меняется.
// Сравнивать нужно через Equal: прозрачности сравниваются побитово.
type Options struct {
	stroke        bool
	strokeColor   color.RGB
	strokeWeight  int
	strokeOpacity float64
	fill          bool
	fillColor     color.RGB
	hasFillColor  bool
	fillOpacity   float64
	fillRule      FillRule
	clickTooltip  string
	hasClick      bool
	hoverTooltip  string
	hasHover      bool
}

var defaultOptions = Builder().Build()

// DefaultOptions возвращает стиль по умолчанию
func DefaultOptions() Options {
	return defaultOptions
}

func (o Options) Stroke() bool { return o.stroke }
func (o Options) StrokeColor() color.RGB { return o.strokeColor }
func (o Options) StrokeWeight() int { return o.strokeWeight }
func (o Options) StrokeOpacity() float64 { return o.strokeOpacity }
func (o Options) Fill() bool { return o.fill }
func (o Options) FillOpacity() float64 { return o.fillOpacity }
func (o Options) FillRule() FillRule { return o.fillRule }

// FillColor цвет заливки; false - не задан (клиент использует цвет обводки)
func (o Options) FillColor() (color.RGB, bool) { return o.fillColor, o.hasFillColor }

// ClickTooltip текст всплывающего окна по клику
func (o Options) ClickTooltip() (string, bool) { return o.clickTooltip, o.hasClick }

// HoverTooltip текст подсказки при наведении
func (o Options) HoverTooltip() (string, bool) { return o.hoverTooltip, o.hasHover }

// Equal структурное сравнение по всем десяти полям. Прозрачности сравниваются
// по битам: NaN равен NaN, 0 и -0 различаются.
func (o Options) Equal(other Options) bool {
	return o.stroke == other.stroke &&
		o.strokeColor == other.strokeColor &&
		o.strokeWeight == other.strokeWeight &&
		floatEqual(o.strokeOpacity, other.strokeOpacity) &&
		o.fill == other.fill &&
		o.fillColor == other.fillColor &&
		o.hasFillColor == other.hasFillColor &&
		floatEqual(o.fillOpacity, other.fillOpacity) &&
		o.fillRule == other.fillRule &&
		o.clickTooltip == other.clickTooltip &&
		o.hasClick == other.hasClick &&
		o.hoverTooltip == other.hoverTooltip &&
		o.hasHover == other.hasHover
}

// Hash согласован с Equal: равные значения дают равный хеш.
func (o Options) Hash() uint64 {
	d := xxhash.New()
	o.writeHash(d)
	return d.Sum64()
}

func (o Options) writeHash(d *xxhash.Digest) {
	var buf [8]byte

	writeBool := func(v bool) {
		if v {
			_, _ = d.Write([]byte{1})
		} else {
			_, _ = d.Write([]byte{0})
		}
	}
	writeUint := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	writeString := func(s string, set bool) {
		writeBool(set)
		writeUint(uint64(len(s)))
		_, _ = d.WriteString(s)
	}

	writeBool(o.stroke)
	writeUint(uint64(o.strokeColor))
	writeUint(uint64(int64(o.strokeWeight)))
	writeUint(math.Float64bits(o.strokeOpacity))
	writeBool(o.fill)
	writeBool(o.hasFillColor)
	writeUint(uint64(o.fillColor))
	writeUint(math.Float64bits(o.fillOpacity))
	writeString(string(o.fillRule), true)
	writeString(o.clickTooltip, o.hasClick)
	writeString(o.hoverTooltip, o.hasHover)
}

// AsBuilder возвращает новый builder, заполненный значениями o
func (o Options) AsBuilder() *OptionsBuilder {
	return &OptionsBuilder{o: o}
}

func (o Options) String() string {
	return fmt.Sprintf("Options{stroke=%t color=%s weight=%d opacity=%g fill=%t fillRule=%s}",
		o.stroke, o.strokeColor.Hex(), o.strokeWeight, o.strokeOpacity, o.fill, o.fillRule)
}

// optionsJSON плоский объект стиля для веб-клиента. Имена полей - часть протокола клиента.
type optionsJSON struct {
	Stroke      bool       `json:"stroke"`
	Color       color.RGB  `json:"color"`
	Weight      int        `json:"weight"`
	Opacity     float64    `json:"opacity"`
	Fill        bool       `json:"fill"`
	FillColor   *color.RGB `json:"fillColor,omitempty"`
	FillOpacity float64    `json:"fillOpacity"`
	FillRule    FillRule   `json:"fillRule"`
	Popup       *string    `json:"popup,omitempty"`
	Tooltip     *string    `json:"tooltip,omitempty"`
}

// MarshalJSON реализует json.Marshaler
func (o Options) MarshalJSON() ([]byte, error) {
	out := optionsJSON{
		Stroke:      o.stroke,
		Color:       o.strokeColor,
		Weight:      o.strokeWeight,
		Opacity:     o.strokeOpacity,
		Fill:        o.fill,
		FillOpacity: o.fillOpacity,
		FillRule:    o.fillRule,
	}
	if o.hasFillColor {
		c := o.fillColor
		out.FillColor = &c
	}
	if o.hasClick {
		s := o.clickTooltip
		out.Popup = &s
	}
	if o.hasHover {
		s := o.hoverTooltip
		out.Tooltip = &s
	}
	return json.Marshal(out)
}

// UnmarshalJSON реализует json.Unmarshaler. Отсутствующие поля берутся из значений по умолчанию.
func (o *Options) UnmarshalJSON(data []byte) error {
	in := optionsJSON{
		Stroke:      true,
		Color:       DefaultStrokeColor,
		Weight:      DefaultStrokeWeight,
		Opacity:     DefaultStrokeOpacity,
		Fill:        true,
		FillOpacity: DefaultFillOpacity,
		FillRule:    FillEvenOdd,
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("invalid marker options: %w", err)
	}

	b := Builder().
		Stroke(in.Stroke).
		StrokeColor(in.Color).
		StrokeWeight(in.Weight).
		StrokeOpacity(in.Opacity).
		Fill(in.Fill).
		FillOpacity(in.FillOpacity).
		FillRule(in.FillRule)
	if in.FillColor != nil {
		b.FillColor(*in.FillColor)
	}
	if in.Popup != nil {
		b.ClickTooltip(*in.Popup)
	}
	if in.Tooltip != nil {
		b.HoverTooltip(*in.Tooltip)
	}
	*o = b.Build()
	return nil
}

// OptionsBuilder изменяемая заготовка для Options. Значения не проверяются.
type OptionsBuilder struct {
	o Options
}

// Builder создаёт builder со значениями по умолчанию
func Builder() *OptionsBuilder {
	return &OptionsBuilder{o: Options{
		stroke:        true,
		strokeColor:   DefaultStrokeColor,
		strokeWeight:  DefaultStrokeWeight,
		strokeOpacity: DefaultStrokeOpacity,
		fill:          true,
		fillOpacity:   DefaultFillOpacity,
		fillRule:      FillEvenOdd,
	}}
}

func (b *OptionsBuilder) Stroke(v bool) *OptionsBuilder {
	b.o.stroke = v
	return b
}

func (b *OptionsBuilder) StrokeColor(c color.RGB) *OptionsBuilder {
	b.o.strokeColor = c
	return b
}

func (b *OptionsBuilder) StrokeWeight(w int) *OptionsBuilder {
	b.o.strokeWeight = w
	return b
}

func (b *OptionsBuilder) StrokeOpacity(v float64) *OptionsBuilder {
	b.o.strokeOpacity = v
	return b
}

func (b *OptionsBuilder) Fill(v bool) *OptionsBuilder {
	b.o.fill = v
	return b
}

func (b *OptionsBuilder) FillColor(c color.RGB) *OptionsBuilder {
	b.o.fillColor = c
	b.o.hasFillColor = true
	return b
}

// ClearFillColor снимает цвет заливки
func (b *OptionsBuilder) ClearFillColor() *OptionsBuilder {
	b.o.fillColor = 0
	b.o.hasFillColor = false
	return b
}

func (b *OptionsBuilder) FillOpacity(v float64) *OptionsBuilder {
	b.o.fillOpacity = v
	return b
}

func (b *OptionsBuilder) FillRule(r FillRule) *OptionsBuilder {
	b.o.fillRule = r
	return b
}

func (b *OptionsBuilder) ClickTooltip(s string) *OptionsBuilder {
	b.o.clickTooltip = s
	b.o.hasClick = true
	return b
}

func (b *OptionsBuilder) HoverTooltip(s string) *OptionsBuilder {
	b.o.hoverTooltip = s
	b.o.hasHover = true
	return b
}

// Build возвращает снимок. Builder остаётся пригодным для дальнейшего использования.
func (b *OptionsBuilder) Build() Options {
	return b.o
}
