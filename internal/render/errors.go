package render

import (
	"fmt"

	"github.com/annel0/blockmap/internal/vec"
)

// TileError ошибка рендера конкретного тайла
type TileError struct {
	Region vec.RegionCoord
	Err    error
}

func (e *TileError) Error() string {
	return fmt.Sprintf("render tile %s: %v", e.Region, e.Err)
}

func (e *TileError) Unwrap() error {
	return e.Err
}
