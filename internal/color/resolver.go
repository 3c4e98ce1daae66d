package color

import "github.com/annel0/blockmap/internal/world/block"

// Func чистая функция цвета от состояния воксела
type Func func(st block.State) RGB

// Resolver разрешает специальный цвет воксела: сначала статическая таблица
// переопределений, затем динамические функции. Таблицы копируются при создании
// и больше не изменяются, поэтому Resolve безопасен для параллельных чтений
// без синхронизации. Смена переопределений - новый Resolver.
type Resolver struct {
	static  map[block.ID]RGB
	dynamic map[block.ID]Func
}

// NewResolver создаёт резолвер из копий переданных таблиц
func NewResolver(static map[block.ID]RGB, dynamic map[block.ID]Func) *Resolver {
	r := &Resolver{
		static:  make(map[block.ID]RGB, len(static)),
		dynamic: make(map[block.ID]Func, len(dynamic)),
	}
	for id, c := range static {
		r.static[id] = c
	}
	for id, fn := range dynamic {
		if fn != nil {
			r.dynamic[id] = fn
		}
	}
	return r
}

// NewDefaultResolver статические переопределения из конфига плюс стандартные динамические цвета
func NewDefaultResolver(overrides map[block.ID]RGB) *Resolver {
	return NewResolver(overrides, DefaultDynamic())
}

// DefaultDynamic стандартная таблица динамических цветов
func DefaultDynamic() map[block.ID]Func {
	return map[block.ID]Func{
		block.MelonStem:   StemColor,
		block.PumpkinStem: StemColor,
		block.Wheat:       WheatColor,
	}
}

// Resolve возвращает (цвет, true) для блока со специальным цветом и (0, false),
// если вызывающий должен взять базовый цвет. Неизвестный ID ошибкой не является.
func (r *Resolver) Resolve(id block.ID, st block.State) (RGB, bool) {
	if c, ok := r.static[id]; ok {
		return c, true
	}
	if fn, ok := r.dynamic[id]; ok {
		return fn(st), true
	}
	return 0, false
}

// Color полный цвет воксела: специальный цвет или базовая палитра.
// false - у блока нет цвета на карте.
func (r *Resolver) Color(id block.ID, st block.State) (RGB, bool) {
	if c, ok := r.Resolve(id, st); ok {
		return c, true
	}
	return Base(id)
}

// StaticCount число статических переопределений
func (r *Resolver) StaticCount() int {
	return len(r.static)
}

// StemColor цвет стебля дыни/тыквы по стадии роста 0..7
func StemColor(st block.State) RGB {
	age := st.Age
	k := age * 32
	l := 255 - age*8
	m := age * 4
	return RGB(k<<16 | l<<8 | m)
}

// WheatColor смешивает цвет растений с цветом спелой пшеницы с коэффициентом (age+1)/8
func WheatColor(st block.State) RGB {
	factor := float64(float32(st.Age+1) / 8)
	return Mix(Plants, 0xDCBB65, factor)
}
