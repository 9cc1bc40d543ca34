package cache

import (
	"bytes"
	"context"
	"sync"
	"time"
)

type entry struct {
	val      []byte
	expireAt time.Time // zero = no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// Memory is the process-local backend
type Memory struct {
	mu    sync.RWMutex
	items map[string]entry
	now   func() time.Time

	stopCh    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewMemory starts a janitor evicting expired keys every interval (0 disables it)
func NewMemory(interval time.Duration) *Memory {
	m := &Memory{
		items:  make(map[string]entry),
		now:    time.Now,
		stopCh: make(chan struct{}),
	}

	if interval > 0 {
		m.wg.Add(1)
		go m.janitor(interval)
	}
	return m
}

// WithClock replaces the wall clock (tests)
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.items[key]
	now := m.now()
	m.mu.RUnlock()

	if !ok || e.expired(now) {
		return nil, false, nil
	}
	return e.val, true, nil
}

func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = m.newEntry(val, ttl)
	return nil
}

func (m *Memory) SetNX(_ context.Context, key string, val []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.items[key]; ok && !e.expired(m.now()) {
		return false, nil
	}
	m.items[key] = m.newEntry(val, ttl)
	return true, nil
}

func (m *Memory) Del(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) DelIfValue(_ context.Context, key string, val []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok || e.expired(m.now()) || !bytes.Equal(e.val, val) {
		return false, nil
	}
	delete(m.items, key)
	return true, nil
}

func (m *Memory) Ping(context.Context) error {
	return nil
}

func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		close(m.stopCh)
	})
	m.wg.Wait()
	return nil
}

// Len counts unexpired keys
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	n := 0
	for _, e := range m.items {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

func (m *Memory) newEntry(val []byte, ttl time.Duration) entry {
	e := entry{val: append([]byte(nil), val...)}
	if ttl > 0 {
		e.expireAt = m.now().Add(ttl)
	}
	return e
}

func (m *Memory) janitor(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evict()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Memory) evict() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.items {
		if e.expired(now) {
			delete(m.items, k)
		}
	}
}
