// Package dashboard publishes named scalar values to operator-facing sinks.
package dashboard

import (
	"errors"
	"sync"
)

// ErrNotConnected is returned by network sinks while they have no link.
var ErrNotConnected = errors.New("dashboard not connected")

// Table is a publish-only key/scalar sink.
type Table interface {
	PutNumber(key string, value float64) error
}

// Entry is one published value.
type Entry struct {
	Key   string
	Value float64
}

// Memory keeps the latest value per key and a bounded journal of puts.
type Memory struct {
	mu      sync.RWMutex
	values  map[string]float64
	journal []Entry
	size    int
}

// NewMemory returns a Memory that keeps the last journalSize puts. Zero
// disables the journal.
func NewMemory(journalSize int) *Memory {
	return &Memory{
		values: make(map[string]float64),
		size:   journalSize,
	}
}

func (m *Memory) PutNumber(key string, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	if m.size > 0 {
		if len(m.journal) == m.size {
			copy(m.journal, m.journal[1:])
			m.journal = m.journal[:m.size-1]
		}
		m.journal = append(m.journal, Entry{Key: key, Value: value})
	}
	return nil
}

// Get returns the latest value for key.
func (m *Memory) Get(key string) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Snapshot returns a copy of the latest values.
func (m *Memory) Snapshot() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Journal returns the retained puts, oldest first.
func (m *Memory) Journal() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Entry(nil), m.journal...)
}

// Multi publishes to every table and joins their errors.
type Multi []Table

func (m Multi) PutNumber(key string, value float64) error {
	var errs []error
	for _, t := range m {
		if err := t.PutNumber(key, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
