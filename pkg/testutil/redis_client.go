package testutil

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockRedisClient falls back to an in-memory store for every function which
// is not overridden.
type MockRedisClient struct {
	ExistFunc func(ctx context.Context, key string) (bool, error)
	DelFunc   func(ctx context.Context, key ...string) error
	KeysFunc  func(ctx context.Context, pattern string) ([]string, error)
	SetFunc   func(ctx context.Context, key, value string, ttl time.Duration) error
	GetFunc   func(ctx context.Context, key string) (string, error)

	mu    sync.Mutex
	store map[string]string
}

func (m *MockRedisClient) Exist(ctx context.Context, key string) (bool, error) {
	if m.ExistFunc != nil {
		return m.ExistFunc(ctx, key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.store[key]
	return ok, nil
}

func (m *MockRedisClient) Del(ctx context.Context, key ...string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, key...)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range key {
		delete(m.store, k)
	}

	return nil
}

func (m *MockRedisClient) Keys(ctx context.Context, pattern string) ([]string, error) {
	if m.KeysFunc != nil {
		return m.KeysFunc(ctx, pattern)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var result []string
	for k := range m.store {
		if ok, _ := path.Match(pattern, k); ok {
			result = append(result, k)
		}
	}

	return result, nil
}

func (m *MockRedisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		m.store = make(map[string]string)
	}
	m.store[key] = value
	return nil
}

func (m *MockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.store[key]
	if !ok {
		return "", redis.Nil
	}

	return value, nil
}
