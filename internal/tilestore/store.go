// Package tilestore хранит готовые тайлы карты в виде PNG для веб-слоя.
package tilestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strconv"
	"strings"

	"github.com/annel0/blockmap/internal/vec"
)

// ErrTileNotFound тайл ещё не отрендерен
var ErrTileNotFound = errors.New("tile not found")

// Store принимает отрендеренные тайлы. Реализации безопасны для конкурентного использования.
type Store interface {
	// Save сохраняет растр тайла. После вызова растр принадлежит хранилищу.
	Save(ctx context.Context, region vec.RegionCoord, img *image.RGBA) error
	// Load возвращает PNG тайла или ErrTileNotFound.
	Load(ctx context.Context, region vec.RegionCoord) ([]byte, error)
	// Delete удаляет тайл; отсутствие тайла ошибкой не считается.
	Delete(ctx context.Context, region vec.RegionCoord) error
	Close() error
}

// Key имя тайла "{x}_{z}.png"
func Key(region vec.RegionCoord) string {
	return fmt.Sprintf("%d_%d.png", region.X, region.Z)
}

// ParseKey разбирает имя тайла, сформированное Key
func ParseKey(key string) (vec.RegionCoord, error) {
	name, ok := strings.CutSuffix(key, ".png")
	if !ok {
		return vec.RegionCoord{}, fmt.Errorf("invalid tile key %q", key)
	}
	xs, zs, ok := strings.Cut(name, "_")
	if !ok {
		return vec.RegionCoord{}, fmt.Errorf("invalid tile key %q", key)
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return vec.RegionCoord{}, fmt.Errorf("invalid tile key %q: %w", key, err)
	}
	z, err := strconv.Atoi(zs)
	if err != nil {
		return vec.RegionCoord{}, fmt.Errorf("invalid tile key %q: %w", key, err)
	}
	return vec.RegionCoord{X: x, Z: z}, nil
}

// Encode кодирует растр в PNG
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode декодирует PNG тайла
func Decode(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("png decode: %w", err)
	}
	return img, nil
}

// Blank полностью прозрачный тайл-заглушка
func Blank(size int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, size, size))
}
