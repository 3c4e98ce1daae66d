package tilestore

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/annel0/blockmap/internal/logging"
	"github.com/annel0/blockmap/internal/vec"
	"github.com/go-redis/redis/v8"
)

// RedisConfig параметры горячего кеша тайлов
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"key_prefix"`
}

// RedisStore горячий кеш поверх постоянного хранилища (cold). Save пишет в оба слоя,
// Load сначала читает Redis, при промахе - cold и прогревает кеш.
type RedisStore struct {
	client *redis.Client
	cold   Store
	ttl    time.Duration
	prefix string

	hits   int64
	misses int64
}

// NewRedisStore подключается к Redis и проверяет соединение
func NewRedisStore(cfg RedisConfig, cold Store) (*RedisStore, error) {
	if cold == nil {
		return nil, fmt.Errorf("redis tile cache requires cold storage")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	s := newRedisStore(client, cold, cfg)
	logging.Info("Redis tile cache initialized: %s (ttl %s)", cfg.Addr, s.ttl)
	return s, nil
}

func newRedisStore(client *redis.Client, cold Store, cfg RedisConfig) *RedisStore {
	if cfg.TTL == 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "blockmap:"
	}
	return &RedisStore{client: client, cold: cold, ttl: cfg.TTL, prefix: cfg.KeyPrefix}
}

func (s *RedisStore) key(region vec.RegionCoord) string {
	return s.prefix + Key(region)
}

func (s *RedisStore) Save(ctx context.Context, region vec.RegionCoord, img *image.RGBA) error {
	if err := s.cold.Save(ctx, region, img); err != nil {
		return err
	}
	// Кеш сбрасывается, а не перезаписывается: следующий Load прочитает свежий PNG из cold
	if err := s.client.Del(ctx, s.key(region)).Err(); err != nil {
		logging.Warn("Redis tile cache invalidate %s failed: %v", Key(region), err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, region vec.RegionCoord) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(region)).Bytes()
	if err == nil {
		atomic.AddInt64(&s.hits, 1)
		return data, nil
	}
	if !errors.Is(err, redis.Nil) {
		logging.Warn("Redis tile cache read %s failed: %v", Key(region), err)
	}
	atomic.AddInt64(&s.misses, 1)

	data, err = s.cold.Load(ctx, region)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, s.key(region), data, s.ttl).Err(); err != nil {
		logging.Warn("Redis tile cache write %s failed: %v", Key(region), err)
	}
	return data, nil
}

func (s *RedisStore) Delete(ctx context.Context, region vec.RegionCoord) error {
	if err := s.client.Del(ctx, s.key(region)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", Key(region), err)
	}
	return s.cold.Delete(ctx, region)
}

// HitRatio доля попаданий в кеш
func (s *RedisStore) HitRatio() float64 {
	hits := atomic.LoadInt64(&s.hits)
	total := hits + atomic.LoadInt64(&s.misses)
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Close закрывает соединение с Redis и cold-хранилище
func (s *RedisStore) Close() error {
	err := s.client.Close()
	if cerr := s.cold.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
