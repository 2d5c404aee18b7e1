package tokenstore

import (
	"context"
	"sync"
)

// Memory keeps tokens in process memory. Useful for tests and for short
// lived tools that should not leave credentials on disk.
type Memory struct {
	mu     sync.RWMutex
	values map[Key]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[Key]string, len(Keys))}
}

func (m *Memory) Get(_ context.Context, key Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key], nil
}

func (m *Memory) Set(_ context.Context, key Key, value string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == "" {
		delete(m.values, key)
		return nil
	}
	m.values[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...Key) error {
	if err := validateKeys(keys...); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}
