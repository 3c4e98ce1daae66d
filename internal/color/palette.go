package color

import "github.com/annel0/blockmap/internal/world/block"

// basePalette базовые цвета блоков на карте (аналог map color материала).
var basePalette = map[block.ID]RGB{
	block.Stone:       0x707070,
	block.Grass:       0x7FB238,
	block.Water:       0x4040FF,
	block.Sand:        0xF7E9A3,
	block.Dirt:        0x976D4D,
	block.Gravel:      0x807C7B,
	block.Snow:        0xFFFFFF,
	block.Ice:         0xA0A0FF,
	block.Lava:        0xFF0000,
	block.Bedrock:     0x707070,
	block.Log:         0x8F7748,
	block.Leaves:      Plants,
	block.Wheat:       Plants,
	block.MelonStem:   Plants,
	block.PumpkinStem: Plants,
	block.Cactus:      Plants,
	block.Planks:      0x8F7748,
	block.Cobble:      0x707070,
	block.Brick:       0x993333,
}

// Base возвращает базовый цвет блока
func Base(id block.ID) (RGB, bool) {
	c, ok := basePalette[id]
	return c, ok
}
