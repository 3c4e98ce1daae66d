package tilestore

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"github.com/annel0/blockmap/internal/vec"
	"github.com/dgraph-io/badger/v3"
)

const tileKeyPrefix = "tile:"

// BadgerStore хранит PNG тайлов в BadgerDB под ключами "tile:{x}_{z}.png"
type BadgerStore struct {
	db      *badger.DB
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerStore открывает (или создаёт) базу в dataPath/tiles
func NewBadgerStore(dataPath string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(filepath.Join(dataPath, "tiles"))
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}
	return &BadgerStore{db: db, isReady: true}, nil
}

func badgerKey(region vec.RegionCoord) []byte {
	return []byte(tileKeyPrefix + Key(region))
}

func (s *BadgerStore) Save(ctx context.Context, region vec.RegionCoord, img *image.RGBA) error {
	data, err := Encode(img)
	if err != nil {
		return err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(region), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения тайла %s: %w", Key(region), err)
	}
	return nil
}

func (s *BadgerStore) Load(ctx context.Context, region vec.RegionCoord) ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(region))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrTileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения тайла %s: %w", Key(region), err)
	}
	return data, nil
}

func (s *BadgerStore) Delete(ctx context.Context, region vec.RegionCoord) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return fmt.Errorf("хранилище не готово")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(region))
	})
}

// Regions перечисляет все сохранённые тайлы
func (s *BadgerStore) Regions() ([]vec.RegionCoord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []vec.RegionCoord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(tileKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())[len(tileKeyPrefix):]
			region, err := ParseKey(key)
			if err != nil {
				return err
			}
			out = append(out, region)
		}
		return nil
	})
	return out, err
}

// Close закрывает базу
func (s *BadgerStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.isReady {
		return nil
	}
	s.isReady = false
	return s.db.Close()
}
