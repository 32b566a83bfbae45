package store

import "sync"

// MemoryStore keeps the encoded document in memory. Data is lost on restart.
// Every Load decodes a fresh copy, so callers never share state with the
// store or with each other.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreFromJSON seeds a MemoryStore with raw persisted content.
// The content is not validated until the first Load.
func NewMemoryStoreFromJSON(raw string) *MemoryStore {
	return &MemoryStore{data: []byte(raw)}
}

// Raw returns a copy of the bytes last written by Save.
func (m *MemoryStore) Raw() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.data...)
}

func (m *MemoryStore) Load() (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Decode(m.data)
}

func (m *MemoryStore) Save(doc Document) error {
	b, err := Encode(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = b
	return nil
}
