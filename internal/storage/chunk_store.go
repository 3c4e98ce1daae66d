package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/annel0/blockmap/internal/logging"
	"github.com/annel0/blockmap/internal/vec"
	"github.com/annel0/blockmap/internal/world"
	"github.com/dgraph-io/badger/v3"
)

const chunkKeyPrefix = "chunk:"

// ChunkStore хранит чанки мира в BadgerDB и служит источником данных для рендера.
// Каждое сохранение уведомляет подписчиков ChangeFeed.
type ChunkStore struct {
	world.Notifier

	db      *badger.DB
	codec   *Codec
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
	logger  *logging.Logger
}

// NewChunkStore открывает хранилище в dataPath/world
func NewChunkStore(dataPath string) (*ChunkStore, error) {
	dbPath := filepath.Join(dataPath, "world")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}
	codec, err := NewCodec()
	if err != nil {
		db.Close()
		return nil, err
	}

	return &ChunkStore{
		db:      db,
		codec:   codec,
		dbPath:  dbPath,
		isReady: true,
		logger:  logging.Default(),
	}, nil
}

// SetLogger заменяет логгер хранилища
func (s *ChunkStore) SetLogger(l *logging.Logger) {
	s.logger = l
}

func chunkKey(coord vec.ChunkCoord) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", chunkKeyPrefix, coord.X, coord.Z))
}

func parseChunkKey(key []byte) (vec.ChunkCoord, error) {
	var c vec.ChunkCoord
	if _, err := fmt.Sscanf(string(key), chunkKeyPrefix+"%d:%d", &c.X, &c.Z); err != nil {
		return c, fmt.Errorf("invalid chunk key %q: %w", key, err)
	}
	return c, nil
}

// SaveChunk сохраняет чанк и уведомляет подписчиков
func (s *ChunkStore) SaveChunk(ctx context.Context, ch *world.Chunk) error {
	if err := s.saveChunks(ctx, []*world.Chunk{ch}); err != nil {
		return err
	}
	s.Notify(ch.Coord)
	return nil
}

// SaveBatch сохраняет несколько чанков одной записью (заливка мира)
func (s *ChunkStore) SaveBatch(ctx context.Context, chunks []*world.Chunk) error {
	if err := s.saveChunks(ctx, chunks); err != nil {
		return err
	}
	for _, ch := range chunks {
		s.Notify(ch.Coord)
	}
	return nil
}

func (s *ChunkStore) saveChunks(ctx context.Context, chunks []*world.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, ch := range chunks {
		if err := wb.Set(chunkKey(ch.Coord), s.codec.Encode(ch)); err != nil {
			return fmt.Errorf("ошибка сохранения чанка %s: %w", ch.Coord, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// Chunk реализует world.Source
func (s *ChunkStore) Chunk(ctx context.Context, coord vec.ChunkCoord) (*world.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(coord))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, world.Unavailable(coord)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения чанка %s: %w", coord, err)
	}

	ch, err := s.codec.Decode(data)
	if err != nil {
		s.logger.Error("Chunk %s corrupt: %v", coord, err)
		return nil, fmt.Errorf("chunk %s: %w", coord, err)
	}
	return ch, nil
}

// DeleteChunk удаляет чанк
func (s *ChunkStore) DeleteChunk(ctx context.Context, coord vec.ChunkCoord) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return fmt.Errorf("хранилище не готово")
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(chunkKey(coord))
	}); err != nil {
		return fmt.Errorf("ошибка удаления чанка %s: %w", coord, err)
	}
	s.Notify(coord)
	return nil
}

// Coords перечисляет все сохранённые чанки
func (s *ChunkStore) Coords() ([]vec.ChunkCoord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []vec.ChunkCoord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(chunkKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			c, err := parseChunkKey(it.Item().Key())
			if err != nil {
				return err
			}
			out = append(out, c)
		}
		return nil
	})
	return out, err
}

// Close закрывает хранилище данных
func (s *ChunkStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.isReady {
		return nil
	}
	s.isReady = false
	s.codec.Close()
	return s.db.Close()
}
