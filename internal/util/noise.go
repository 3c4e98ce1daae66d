package util

import (
	"github.com/aquilax/go-perlin"
)

// Параметры шума Перлина по умолчанию
const (
	NoiseAlpha   = 2.0 // Сглаживание шума
	NoiseBeta    = 2.0 // Частота шума
	NoiseOctaves = 3   // Количество октав
)

// Noise генератор 2D шума Перлина. После создания только читается,
// поэтому безопасен для параллельного использования.
type Noise struct {
	p *perlin.Perlin
}

// NewNoise создаёт генератор шума с указанным сидом
func NewNoise(seed int64) *Noise {
	return &Noise{p: perlin.NewPerlin(NoiseAlpha, NoiseBeta, NoiseOctaves, seed)}
}

// At возвращает значение шума для координат, приведённое к диапазону [0, 1]
func (n *Noise) At(x, y float64) float64 {
	// Noise2D возвращает значение примерно от -1 до 1
	v := (n.p.Noise2D(x, y) + 1.0) / 2.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
