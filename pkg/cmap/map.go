package cmap

import (
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"
)

// shardCount must stay a power of 2.
const shardCount = 16

// Map is a concurrent-safe sharded map from uuid.UUID to V.
type Map[V any] struct {
	shards [shardCount]*shard[V]
	seed   uint32
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[uuid.UUID]V
}

// New creates an empty map.
func New[V any]() *Map[V] {
	m := &Map[V]{seed: rand.Uint32()}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[uuid.UUID]V)}
	}
	return m
}

func (m *Map[V]) shardFor(key uuid.UUID) *shard[V] {
	return m.shards[murmur3.Sum64WithSeed(key[:], m.seed)&(shardCount-1)]
}

// Get retrieves the value stored under key.
func (m *Map[V]) Get(key uuid.UUID) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.items[key]
	return val, ok
}

// Has reports whether key is present.
func (m *Map[V]) Has(key uuid.UUID) bool {
	_, ok := m.Get(key)
	return ok
}

// Swap stores value under key and returns the previous value, if any.
func (m *Map[V]) Swap(key uuid.UUID, value V) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.items[key]
	s.items[key] = value
	return prev, ok
}

// Pop removes key and returns the value it held.
func (m *Map[V]) Pop(key uuid.UUID) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return val, ok
}

// Keys returns a snapshot of all keys, in no particular order.
func (m *Map[V]) Keys() []uuid.UUID {
	var keys []uuid.UUID
	for _, s := range m.shards {
		s.mu.RLock()
		for k := range s.items {
			keys = append(keys, k)
		}
		s.mu.RUnlock()
	}
	return keys
}
