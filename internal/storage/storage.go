// Package storage provides the durable key/value medium the hold
// store persists into.  It stands in for the browser's localStorage in
// the original product: a flat string-to-string map shared by every
// viewer of the same profile.  Backends must tolerate concurrent
// read-modify-write of whole values; the authoritative booking state
// lives server-side, so a lost write narrows only the client-side
// visual locking window.
package storage

import (
	"context"
	"sync"
)

// Store is the key/value contract.  Get reports presence explicitly so
// an empty string value stays distinguishable from a missing key.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Memory is an in-process Store used in tests and as the fallback when
// a configured backend cannot be reached.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
