package storage

import (
	"context"
	"time"

	"github.com/annel0/blockmap/internal/vec"
)

// PlayerPosition последняя известная позиция игрока для слоя игроков на карте
type PlayerPosition struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	World     string    `json:"world"`
	Pos       vec.Point `json:"pos"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlayerRepo хранилище позиций игроков.
type PlayerRepo interface {
	// Save сохраняет или обновляет позицию
	Save(ctx context.Context, p PlayerPosition) error

	// Load возвращает позицию; false если игрок неизвестен
	Load(ctx context.Context, id string) (PlayerPosition, bool, error)

	// Delete удаляет позицию (игрок вышел)
	Delete(ctx context.Context, id string) error

	// List все игроки мира, отсортированные по имени
	List(ctx context.Context, world string) ([]PlayerPosition, error)

	Close() error
}
