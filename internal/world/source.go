package world

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/blockmap/internal/vec"
)

// ErrChunkUnavailable чанк не загружен/отсутствует. Восстановимо повтором или пропуском.
var ErrChunkUnavailable = errors.New("chunk unavailable")

// Source источник данных мира, только чтение.
type Source interface {
	// Chunk возвращает снимок чанка или ошибку, оборачивающую ErrChunkUnavailable.
	Chunk(ctx context.Context, coord vec.ChunkCoord) (*Chunk, error)
}

// ModifiedHandler вызывается при изменении чанка
type ModifiedHandler func(coord vec.ChunkCoord)

// ChangeFeed подписка на изменения чанков
type ChangeFeed interface {
	OnModified(h ModifiedHandler) (cancel func())
}

// Unavailable оборачивает ErrChunkUnavailable с координатами
func Unavailable(coord vec.ChunkCoord) error {
	return fmt.Errorf("%w: %s", ErrChunkUnavailable, coord)
}

// Notifier список подписчиков на изменения чанков. Нулевое значение готово к работе.
type Notifier struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]ModifiedHandler
}

// OnModified реализует ChangeFeed
func (n *Notifier) OnModified(h ModifiedHandler) func() {
	n.mu.Lock()
	if n.handlers == nil {
		n.handlers = make(map[int]ModifiedHandler)
	}
	id := n.nextID
	n.nextID++
	n.handlers[id] = h
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.handlers, id)
		n.mu.Unlock()
	}
}

// Notify вызывает всех подписчиков
func (n *Notifier) Notify(coord vec.ChunkCoord) {
	n.mu.RLock()
	hs := make([]ModifiedHandler, 0, len(n.handlers))
	for _, h := range n.handlers {
		hs = append(hs, h)
	}
	n.mu.RUnlock()

	for _, h := range hs {
		h(coord)
	}
}

// MemorySource хранит чанки в памяти. Выдаёт копии, поэтому рендер не видит
// частично изменённых данных.
type MemorySource struct {
	Notifier

	mu     sync.RWMutex
	height int
	chunks map[vec.ChunkCoord]*Chunk
}

// NewMemorySource создаёт пустой источник
func NewMemorySource(height int) *MemorySource {
	if height <= 0 {
		height = DefaultHeight
	}
	return &MemorySource{
		height: height,
		chunks: make(map[vec.ChunkCoord]*Chunk),
	}
}

// Height высота мира
func (m *MemorySource) Height() int {
	return m.height
}

// Chunk реализует Source
func (m *MemorySource) Chunk(ctx context.Context, coord vec.ChunkCoord) (*Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chunks[coord]
	if !ok {
		return nil, Unavailable(coord)
	}
	return c.Clone(), nil
}

// Put сохраняет копию чанка и уведомляет подписчиков
func (m *MemorySource) Put(c *Chunk) {
	m.mu.Lock()
	m.chunks[c.Coord] = c.Clone()
	m.mu.Unlock()
	m.Notify(c.Coord)
}

// Remove выгружает чанк
func (m *MemorySource) Remove(coord vec.ChunkCoord) {
	m.mu.Lock()
	delete(m.chunks, coord)
	m.mu.Unlock()
}

// SetBlock меняет блок по мировым координатам и уведомляет подписчиков
func (m *MemorySource) SetBlock(pos vec.BlockPos, v Voxel) error {
	coord := pos.Chunk()
	x, z := pos.Local()

	m.mu.Lock()
	c, ok := m.chunks[coord]
	if !ok {
		m.mu.Unlock()
		return Unavailable(coord)
	}
	if pos.Y < 0 || pos.Y >= c.Height {
		m.mu.Unlock()
		return fmt.Errorf("block y=%d out of world height %d", pos.Y, c.Height)
	}
	c.Set(x, pos.Y, z, v)
	m.mu.Unlock()

	m.Notify(coord)
	return nil
}

// Loaded возвращает координаты всех загруженных чанков
func (m *MemorySource) Loaded() []vec.ChunkCoord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]vec.ChunkCoord, 0, len(m.chunks))
	for c := range m.chunks {
		out = append(out, c)
	}
	return out
}

// GeneratedSource отдаёт процедурно сгенерированные чанки в пределах границы мира.
type GeneratedSource struct {
	gen    *Generator
	border int // радиус мира в чанках; за ним - ErrChunkUnavailable
}

// NewGeneratedSource создаёт источник поверх генератора
func NewGeneratedSource(gen *Generator, borderChunks int) *GeneratedSource {
	return &GeneratedSource{gen: gen, border: borderChunks}
}

// Chunk реализует Source
func (g *GeneratedSource) Chunk(ctx context.Context, coord vec.ChunkCoord) (*Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if coord.ChebyshevTo(vec.ChunkCoord{}) > g.border {
		return nil, Unavailable(coord)
	}
	return g.gen.GenerateChunk(coord), nil
}
