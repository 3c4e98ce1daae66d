package block

import "sort"

// ID представляет идентификатор типа блока
type ID uint16

// Константы ID блоков
const (
	// Базовые типы блоков
	Air   ID = iota // 0
	Stone           // 1
	Grass           // 2
	Water           // 3
	Sand            // 4
	Dirt            // 5
	Gravel          // 6
	Snow            // 7
	Ice             // 8
	Lava            // 9
	Bedrock         // 10

	// Растительность (начиная с 100)
	Log         ID = 100
	Leaves      ID = 101
	TallGrass   ID = 102
	Wheat       ID = 103
	MelonStem   ID = 104
	PumpkinStem ID = 105
	Cactus      ID = 106

	// Постройки (начиная с 200)
	Planks ID = 200
	Glass  ID = 201
	Cobble ID = 202
	Brick  ID = 203
)

// Значения прозрачности
const (
	AlphaTransparent uint8 = 0
	AlphaOpaque      uint8 = 255
)

// MaxAge максимальная стадия роста растений (8 стадий 0..7)
const MaxAge = 7

// State состояние конкретного воксела. Нулевое значение - состояние по умолчанию.
type State struct {
	Age int `json:"age,omitempty"` // стадия роста 0..7
}

// Properties описывает тип блока для рендера карты
type Properties struct {
	Name  string
	Alpha uint8 // 0 - невидим на карте, 255 - непрозрачен
}

// Transparent true, если блок не вносит цвета
func (p Properties) Transparent() bool {
	return p.Alpha == AlphaTransparent
}

// Translucent true, если блок полупрозрачен (вода, лёд)
func (p Properties) Translucent() bool {
	return p.Alpha != AlphaTransparent && p.Alpha != AlphaOpaque
}

// registry заполняется один раз при инициализации пакета и далее только читается.
var registry = map[ID]Properties{
	Air:         {Name: "air", Alpha: AlphaTransparent},
	Stone:       {Name: "stone", Alpha: AlphaOpaque},
	Grass:       {Name: "grass_block", Alpha: AlphaOpaque},
	Water:       {Name: "water", Alpha: 150},
	Sand:        {Name: "sand", Alpha: AlphaOpaque},
	Dirt:        {Name: "dirt", Alpha: AlphaOpaque},
	Gravel:      {Name: "gravel", Alpha: AlphaOpaque},
	Snow:        {Name: "snow", Alpha: AlphaOpaque},
	Ice:         {Name: "ice", Alpha: 200},
	Lava:        {Name: "lava", Alpha: AlphaOpaque},
	Bedrock:     {Name: "bedrock", Alpha: AlphaOpaque},
	Log:         {Name: "oak_log", Alpha: AlphaOpaque},
	Leaves:      {Name: "oak_leaves", Alpha: AlphaOpaque},
	TallGrass:   {Name: "tall_grass", Alpha: AlphaTransparent},
	Wheat:       {Name: "wheat", Alpha: AlphaOpaque},
	MelonStem:   {Name: "melon_stem", Alpha: AlphaOpaque},
	PumpkinStem: {Name: "pumpkin_stem", Alpha: AlphaOpaque},
	Cactus:      {Name: "cactus", Alpha: AlphaOpaque},
	Planks:      {Name: "oak_planks", Alpha: AlphaOpaque},
	Glass:       {Name: "glass", Alpha: AlphaTransparent},
	Cobble:      {Name: "cobblestone", Alpha: AlphaOpaque},
	Brick:       {Name: "bricks", Alpha: AlphaOpaque},
}

var byName = func() map[string]ID {
	m := make(map[string]ID, len(registry))
	for id, p := range registry {
		m[p.Name] = id
	}
	return m
}()

// Get возвращает свойства блока. Неизвестный ID считается прозрачным.
func Get(id ID) (Properties, bool) {
	p, ok := registry[id]
	return p, ok
}

// ByName ищет блок по имени (используется в конфиге цветов)
func ByName(name string) (ID, bool) {
	id, ok := byName[name]
	return id, ok
}

// IsValid проверяет, является ли ID допустимым идентификатором блока
func IsValid(id ID) bool {
	_, exists := registry[id]
	return exists
}

// All возвращает все известные ID по возрастанию
func All() []ID {
	ids := make([]ID, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
