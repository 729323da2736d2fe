package logstore

import (
	"context"
	"sync"
)

// DefaultCapacity is how many entries the in-memory store keeps.
const DefaultCapacity = 100

// Memory is a fixed-capacity FIFO of entries. Contents are lost on restart.
type Memory struct {
	mu     sync.Mutex
	buf    []Entry
	start  int // index of the oldest entry
	size   int
	nextID int64
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{buf: make([]Entry, capacity)}
}

func (m *Memory) Append(ctx context.Context, e Entry) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	e.ID = m.nextID

	if m.size < len(m.buf) {
		m.buf[(m.start+m.size)%len(m.buf)] = e
		m.size++
	} else {
		// full: overwrite the oldest
		m.buf[m.start] = e
		m.start = (m.start + 1) % len(m.buf)
	}
	return e, nil
}

func (m *Memory) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return m.collect(limit, func(Entry) bool { return true }), nil
}

func (m *Memory) RecentErrors(ctx context.Context, limit int) ([]Entry, error) {
	return m.collect(limit, func(e Entry) bool { return e.Error != "" }), nil
}

// Len reports the number of entries held.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

func (m *Memory) collect(limit int, keep func(Entry) bool) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []Entry{}
	for i := m.size - 1; i >= 0 && len(out) < limit; i-- {
		e := m.buf[(m.start+i)%len(m.buf)]
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

var _ Store = (*Memory)(nil)
