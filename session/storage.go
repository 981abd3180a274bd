package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ErrStorageUnavailable is returned when the durable backend cannot be reached.
var ErrStorageUnavailable = errors.New("session storage unavailable")

// Durable keys written by TokenStore and the console Engine.
const (
	KeyToken                      = "token"
	KeyRole                       = "user-class"
	KeyPollingActive              = "pollingActive"
	KeyFaceAuthNotificationStatus = "faceAuthNotificationStatus"
	KeyPendingApplicationsCount   = "pendingApplicationsCount"
)

// Storage is the durable key-value store that survives a console restart.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisStorage keeps console keys in Redis under a fixed prefix.
type RedisStorage struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStorage returns a Storage writing "<prefix>:<key>" entries.
func NewRedisStorage(client redis.UniversalClient, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = "gc"
	}
	return &RedisStorage{redis: client, prefix: prefix}
}

func (s *RedisStorage) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.redis.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get %s: %v", ErrStorageUnavailable, key, err)
	}
	return val, true, nil
}

func (s *RedisStorage) Set(ctx context.Context, key, value string) error {
	if err := s.redis.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrStorageUnavailable, key, err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.redis.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("%w: delete: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// MemoryStorage is a process-local Storage. Its contents do not survive a
// restart; it backs tests and the CLI when no Redis address is configured.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (s *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

// Len returns the number of stored keys.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
