package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"arcade_webapp/internal/domain"

	"github.com/redis/go-redis/v9"
)

// LevelStore is the shared level scratchpad. Last writer wins per difficulty.
type LevelStore interface {
	All(ctx context.Context) (domain.LevelLayouts, error)
	Save(ctx context.Context, difficulty string, obstacles []domain.Obstacle) error
	Clear(ctx context.Context, difficulty string) error
	ClearAll(ctx context.Context) error
}

// MemoryLevelStore keeps layouts in process memory; they are lost on restart
type MemoryLevelStore struct {
	mu     sync.RWMutex
	levels domain.LevelLayouts
}

func NewMemoryLevelStore() *MemoryLevelStore {
	return &MemoryLevelStore{levels: domain.LevelLayouts{}}
}

func (m *MemoryLevelStore) All(_ context.Context) (domain.LevelLayouts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(domain.LevelLayouts, len(m.levels))
	for k, v := range m.levels {
		out[k] = domain.CloneObstacles(v)
	}
	return out, nil
}

func (m *MemoryLevelStore) Save(_ context.Context, difficulty string, obstacles []domain.Obstacle) error {
	m.mu.Lock()
	if obstacles == nil {
		obstacles = []domain.Obstacle{}
	}
	m.levels[difficulty] = domain.CloneObstacles(obstacles)
	m.mu.Unlock()
	return nil
}

func (m *MemoryLevelStore) Clear(_ context.Context, difficulty string) error {
	m.mu.Lock()
	delete(m.levels, difficulty)
	m.mu.Unlock()
	return nil
}

func (m *MemoryLevelStore) ClearAll(_ context.Context) error {
	m.mu.Lock()
	m.levels = domain.LevelLayouts{}
	m.mu.Unlock()
	return nil
}

// DefaultLevelsKey is the Redis hash holding one field per difficulty
const DefaultLevelsKey = "arcade:levels"

// RedisLevelStore shares layouts between instances through one Redis hash
type RedisLevelStore struct {
	rdb *redis.Client
	key string
}

func NewRedisLevelStore(rdb *redis.Client, key string) *RedisLevelStore {
	if key == "" {
		key = DefaultLevelsKey
	}
	return &RedisLevelStore{rdb: rdb, key: key}
}

func (r *RedisLevelStore) All(ctx context.Context) (domain.LevelLayouts, error) {
	fields, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("read levels: %w", err)
	}

	out := make(domain.LevelLayouts, len(fields))
	for difficulty, raw := range fields {
		var obstacles []domain.Obstacle
		if err := json.Unmarshal([]byte(raw), &obstacles); err != nil {
			return nil, fmt.Errorf("decode level %q: %w", difficulty, err)
		}
		out[difficulty] = obstacles
	}
	return out, nil
}

func (r *RedisLevelStore) Save(ctx context.Context, difficulty string, obstacles []domain.Obstacle) error {
	raw, err := json.Marshal(obstacles)
	if err != nil {
		return err
	}
	return r.rdb.HSet(ctx, r.key, difficulty, raw).Err()
}

func (r *RedisLevelStore) Clear(ctx context.Context, difficulty string) error {
	return r.rdb.HDel(ctx, r.key, difficulty).Err()
}

func (r *RedisLevelStore) ClearAll(ctx context.Context) error {
	return r.rdb.Del(ctx, r.key).Err()
}
