package relay

import (
	"sync"
)

// MemoryStore is a generic in-memory data store keyed by string id. The
// console daemon keeps one per process for panel-scoped state.
type MemoryStore struct {
	sync.RWMutex
	Data map[string]interface{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Data: make(map[string]interface{}),
	}
}

// Get returns stored data by id, or nil.
func (s *MemoryStore) Get(id string) interface{} {
	s.RLock()
	defer s.RUnlock()
	return s.Data[id]
}

// Set inserts data into the store.
func (s *MemoryStore) Set(id string, data interface{}) {
	s.Lock()
	defer s.Unlock()
	s.Data[id] = data
}

// Delete removes data by id.
func (s *MemoryStore) Delete(id string) {
	s.Lock()
	defer s.Unlock()
	delete(s.Data, id)
}
