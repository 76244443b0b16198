package session

import "sync"

// Mem is an in-memory session store.
// It models tab-scoped session storage: contents live for the process and are
// gone when it ends.
type Mem struct {
	mtx     sync.Mutex
	entries map[string][]byte
}

// NewMem creates an in-memory session store.
func NewMem() *Mem {
	return &Mem{entries: map[string][]byte{}}
}

// Get returns a named entry, or nil.
func (m *Mem) Get(name string) ([]byte, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	b, ok := m.entries[name]
	if !ok {
		return nil, nil
	}
	return b, nil
}

// Set saves a named entry.
func (m *Mem) Set(name string, b []byte) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.entries[name] = b
	return nil
}

// Delete removes a named entry.
func (m *Mem) Delete(name string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	delete(m.entries, name)
	return nil
}
