package session

import (
	"net/http"
	"sync"
)

// MemoryStore keeps records in process memory keyed by the browser id cookie.
// Records are lost on restart; it serves development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]string
	opts    Options
}

func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{records: make(map[string]map[string]string), opts: opts}
}

func (s *MemoryStore) Save(w http.ResponseWriter, r *http.Request, rec Record) error {
	id, previous := rotateBrowserID(w, r, s.opts)
	s.mu.Lock()
	defer s.mu.Unlock()
	if previous != "" {
		delete(s.records, previous)
	}
	s.records[id] = rec.values()
	return nil
}

func (s *MemoryStore) Load(r *http.Request) (Record, bool) {
	id, ok := browserID(r)
	if !ok {
		return Record{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	values, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return recordFromValues(values)
}

func (s *MemoryStore) Clear(w http.ResponseWriter, r *http.Request) error {
	expireCookie(w, browserCookie, s.opts)
	id, ok := browserID(r)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
