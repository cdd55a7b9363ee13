// Package store persists game snapshots in a key-value store.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"uptime-sim/internal/game"
)

// ErrNotFound is returned when a key holds no value.
var ErrNotFound = errors.New("store: key not found")

// KeyPrefix namespaces every save slot.
const KeyPrefix = "uptime:save:"

// KV is the minimal key-value surface the game needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// SaveGame serializes st into slot.
func SaveGame(ctx context.Context, kv KV, slot string, st *game.State) error {
	b, err := game.Serialize(st)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", slot, err)
	}
	if err := kv.Set(ctx, KeyPrefix+slot, b); err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}
	return nil
}

// LoadGame reads the snapshot saved in slot.
func LoadGame(ctx context.Context, kv KV, slot string) (*game.State, error) {
	b, err := kv.Get(ctx, KeyPrefix+slot)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", slot, err)
	}
	st, err := game.Deserialize(b)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", slot, err)
	}
	return st, nil
}

// Slots lists saved slot names in order.
func Slots(ctx context.Context, kv KV) ([]string, error) {
	keys, err := kv.Keys(ctx, KeyPrefix)
	if err != nil {
		return nil, err
	}
	slots := make([]string, 0, len(keys))
	for _, k := range keys {
		slots = append(slots, strings.TrimPrefix(k, KeyPrefix))
	}
	sort.Strings(slots)
	return slots, nil
}

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
