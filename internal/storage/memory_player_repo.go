package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryPlayerRepo реализует PlayerRepo в памяти.
// Используется как fallback, когда MariaDB недоступна, и в тестах.
type MemoryPlayerRepo struct {
	mu   sync.RWMutex
	data map[string]PlayerPosition
}

// NewMemoryPlayerRepo создает пустой репозиторий
func NewMemoryPlayerRepo() *MemoryPlayerRepo {
	return &MemoryPlayerRepo{data: make(map[string]PlayerPosition)}
}

func (r *MemoryPlayerRepo) Save(ctx context.Context, p PlayerPosition) error {
	if p.ID == "" {
		return fmt.Errorf("недействительный id игрока")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	r.mu.Lock()
	r.data[p.ID] = p
	r.mu.Unlock()
	return nil
}

func (r *MemoryPlayerRepo) Load(ctx context.Context, id string) (PlayerPosition, bool, error) {
	if err := ctx.Err(); err != nil {
		return PlayerPosition{}, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.data[id]
	return p, ok, nil
}

func (r *MemoryPlayerRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return fmt.Errorf("позиция игрока %s не найдена", id)
	}
	delete(r.data, id)
	return nil
}

func (r *MemoryPlayerRepo) List(ctx context.Context, world string) ([]PlayerPosition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]PlayerPosition, 0, len(r.data))
	for _, p := range r.data {
		if p.World == world {
			out = append(out, p)
		}
	}
	r.mu.RUnlock()
	sortPlayers(out)
	return out, nil
}

func (r *MemoryPlayerRepo) Close() error { return nil }

func sortPlayers(ps []PlayerPosition) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Name != ps[j].Name {
			return ps[i].Name < ps[j].Name
		}
		return ps[i].ID < ps[j].ID
	})
}
