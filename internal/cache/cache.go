// Package cache provides a two-tier byte cache for upstream content
// responses: a small in-memory LRU in front of a filesystem tier. Disk
// hits are promoted into memory.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Cache is a byte store keyed by string. Implementations treat entries as
// best-effort: a miss is never an error.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, val []byte) error
}

// #region memory

type memEntry struct {
	key      string
	val      []byte
	storedAt time.Time
}

// Memory is a fixed-capacity LRU with per-entry TTL.
type Memory struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	order *list.List
	items map[string]*list.Element
}

// NewMemory returns an LRU holding at most capacity entries. A zero TTL
// means entries never expire.
func NewMemory(capacity int, ttl time.Duration) *Memory {
	if capacity < 1 {
		capacity = 1
	}
	return &Memory{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get returns the cached value and refreshes its recency.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*memEntry)
	if m.ttl > 0 && m.now().Sub(entry.storedAt) >= m.ttl {
		m.order.Remove(el)
		delete(m.items, key)
		return nil, false
	}
	m.order.MoveToFront(el)
	return entry.val, true
}

// Set stores the value, evicting the least recently used entry at capacity.
func (m *Memory) Set(key string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		entry := el.Value.(*memEntry)
		entry.val = val
		entry.storedAt = m.now()
		m.order.MoveToFront(el)
		return nil
	}
	m.items[key] = m.order.PushFront(&memEntry{key: key, val: val, storedAt: m.now()})
	if m.order.Len() > m.capacity {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.items, oldest.Value.(*memEntry).key)
	}
	return nil
}

// Len returns the live entry count.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// #endregion

// #region disk

// Disk stores entries as files named by the key's digest. TTL is enforced
// against file modification time.
type Disk struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewDisk returns a filesystem cache rooted at dir.
func NewDisk(dir string, ttl time.Duration) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Disk{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (d *Disk) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(d.dir, hex.EncodeToString(sum[:])+".cache")
}

// Get returns the cached value if present and fresh.
func (d *Disk) Get(key string) ([]byte, bool) {
	p := d.path(key)
	info, err := os.Stat(p)
	if err != nil {
		return nil, false
	}
	if d.ttl > 0 && d.now().Sub(info.ModTime()) >= d.ttl {
		os.Remove(p)
		return nil, false
	}
	val, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set writes the value through a temp file and rename.
func (d *Disk) Set(key string, val []byte) error {
	p := d.path(key)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, val, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("publish cache entry: %w", err)
	}
	return nil
}

// #endregion

// #region tiered

// Stats counts tiered cache traffic.
type Stats struct {
	MemoryHits int64
	DiskHits   int64
	Misses     int64
}

// Tiered reads through memory first, then disk, promoting disk hits.
// Writes go to both tiers.
type Tiered struct {
	mem  *Memory
	disk *Disk

	mu    sync.Mutex
	stats Stats
}

// NewTiered combines a memory tier and a disk tier.
func NewTiered(mem *Memory, disk *Disk) *Tiered {
	return &Tiered{mem: mem, disk: disk}
}

// Get checks memory, then disk. A disk hit is promoted into memory.
func (t *Tiered) Get(key string) ([]byte, bool) {
	if val, ok := t.mem.Get(key); ok {
		t.count(func(s *Stats) { s.MemoryHits++ })
		return val, true
	}
	val, ok := t.disk.Get(key)
	if !ok {
		t.count(func(s *Stats) { s.Misses++ })
		return nil, false
	}
	t.count(func(s *Stats) { s.DiskHits++ })
	t.mem.Set(key, val)
	return val, true
}

// Stats returns a snapshot of the hit/miss counters.
func (t *Tiered) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

func (t *Tiered) count(fn func(*Stats)) {
	t.mu.Lock()
	fn(&t.stats)
	t.mu.Unlock()
}

// Set writes through both tiers.
func (t *Tiered) Set(key string, val []byte) error {
	t.mem.Set(key, val)
	return t.disk.Set(key, val)
}

// #endregion
