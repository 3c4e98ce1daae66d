package tilestore

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/annel0/blockmap/internal/vec"
)

// FileStore пишет тайлы файлами <dir>/{x}_{z}.png. Запись атомарная: временный файл
// и rename, чтобы веб-сервер не отдал наполовину записанный PNG.
type FileStore struct {
	dir string
}

// NewFileStore создаёт каталог тайлов при необходимости
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create tile dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir каталог тайлов
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(region vec.RegionCoord) string {
	return filepath.Join(s.dir, Key(region))
}

func (s *FileStore) Save(ctx context.Context, region vec.RegionCoord, img *image.RGBA) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(img)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".tile-*")
	if err != nil {
		return fmt.Errorf("create temp tile: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write tile %s: %w", Key(region), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close tile %s: %w", Key(region), err)
	}
	if err := os.Rename(tmp.Name(), s.path(region)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename tile %s: %w", Key(region), err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, region vec.RegionCoord) ([]byte, error) {
	data, err := os.ReadFile(s.path(region))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrTileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read tile %s: %w", Key(region), err)
	}
	return data, nil
}

func (s *FileStore) Delete(ctx context.Context, region vec.RegionCoord) error {
	err := os.Remove(s.path(region))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete tile %s: %w", Key(region), err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
