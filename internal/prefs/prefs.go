// Package prefs persists the one display preference the CRM keeps outside
// the document store: dark mode, per user.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store reads and writes a user's preferences. An unset preference reads
// as false.
type Store interface {
	DarkMode(ctx context.Context, userID uuid.UUID) (bool, error)
	SetDarkMode(ctx context.Context, userID uuid.UUID, on bool) error
}

func darkModeKey(userID uuid.UUID) string {
	return "prefs:" + userID.String() + ":darkMode"
}

type RedisStore struct {
	rdb redis.Cmdable
}

func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) DarkMode(ctx context.Context, userID uuid.UUID) (bool, error) {
	v, err := s.rdb.Get(ctx, darkModeKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get dark mode: %w", err)
	}
	return v == "true", nil
}

func (s *RedisStore) SetDarkMode(ctx context.Context, userID uuid.UUID, on bool) error {
	v := "false"
	if on {
		v = "true"
	}
	if err := s.rdb.Set(ctx, darkModeKey(userID), v, 0).Err(); err != nil {
		return fmt.Errorf("set dark mode: %w", err)
	}
	return nil
}

type MemoryStore struct {
	mu   sync.RWMutex
	dark map[uuid.UUID]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{dark: make(map[uuid.UUID]bool)}
}

func (s *MemoryStore) DarkMode(_ context.Context, userID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dark[userID], nil
}

func (s *MemoryStore) SetDarkMode(_ context.Context, userID uuid.UUID, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dark[userID] = on
	return nil
}
