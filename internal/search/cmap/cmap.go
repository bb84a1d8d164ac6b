// Package cmap implements a fixed-shard concurrent accumulator from integer
// keys to float64 values. Each shard is guarded by its own mutex, so
// goroutines touching different shards never contend.
package cmap

import "sync"

type shard struct {
	mu sync.Mutex
	m  map[int]float64
}

// Map is a sharded key-value accumulator. The zero value is not usable;
// construct with New.
type Map struct {
	shards []shard
}

// New creates a Map with the given number of shards. Counts below one are
// clamped to one.
func New(shardCount int) *Map {
	if shardCount < 1 {
		shardCount = 1
	}
	m := &Map{shards: make([]shard, shardCount)}
	for i := range m.shards {
		m.shards[i].m = make(map[int]float64)
	}
	return m
}

// Access is a scoped handle to one entry. The owning shard stays locked
// until Release is called; Value points at a copy of the entry, which
// Release stores back into the shard.
type Access struct {
	shard *shard
	key   int
	Value *float64
}

// Release writes the entry back and unlocks the shard.
func (a *Access) Release() {
	a.shard.m[a.key] = *a.Value
	a.shard.mu.Unlock()
}

// Access locks the shard owning key and returns a handle to its entry,
// creating a zero entry if the key is absent. Handles for different shards
// may be held concurrently; holding two handles into the same shard
// deadlocks.
func (m *Map) Access(key int) *Access {
	sh := &m.shards[m.shardIndex(key)]
	sh.mu.Lock()
	value := sh.m[key]
	return &Access{shard: sh, key: key, Value: &value}
}

// Add is shorthand for accumulating delta into the entry for key.
func (m *Map) Add(key int, delta float64) {
	a := m.Access(key)
	*a.Value += delta
	a.Release()
}

// Drain locks every shard in turn and merges all entries into one plain map.
func (m *Map) Drain() map[int]float64 {
	result := make(map[int]float64)
	for i := range m.shards {
		sh := &m.shards[i]
		sh.mu.Lock()
		for k, v := range sh.m {
			result[k] = v
		}
		sh.mu.Unlock()
	}
	return result
}

func (m *Map) shardIndex(key int) int {
	if key < 0 {
		key = -key
	}
	return key % len(m.shards)
}
