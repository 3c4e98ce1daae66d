package tilestore

import (
	"context"
	"image"
	"sync"

	"github.com/annel0/blockmap/internal/vec"
)

// MemoryStore хранит тайлы в памяти (тесты, локальный запуск)
type MemoryStore struct {
	mu    sync.RWMutex
	tiles map[vec.RegionCoord][]byte
	saves map[vec.RegionCoord]int
}

// NewMemoryStore создаёт пустое хранилище
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tiles: make(map[vec.RegionCoord][]byte),
		saves: make(map[vec.RegionCoord]int),
	}
}

func (m *MemoryStore) Save(ctx context.Context, region vec.RegionCoord, img *image.RGBA) error {
	data, err := Encode(img)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.tiles[region] = data
	m.saves[region]++
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, region vec.RegionCoord) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.tiles[region]
	if !ok {
		return nil, ErrTileNotFound
	}
	return data, nil
}

func (m *MemoryStore) Delete(ctx context.Context, region vec.RegionCoord) error {
	m.mu.Lock()
	delete(m.tiles, region)
	m.mu.Unlock()
	return nil
}

// Saves сколько раз сохранялся тайл
func (m *MemoryStore) Saves(region vec.RegionCoord) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves[region]
}

// Regions все сохранённые регионы
func (m *MemoryStore) Regions() []vec.RegionCoord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]vec.RegionCoord, 0, len(m.tiles))
	for r := range m.tiles {
		out = append(out, r)
	}
	return out
}

func (m *MemoryStore) Close() error { return nil }
