package notifier

import "sync"

// NotifiedSet holds the ids of events already reminded.
type NotifiedSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewNotifiedSet returns an empty set.
func NewNotifiedSet() *NotifiedSet {
	return &NotifiedSet{ids: make(map[string]struct{})}
}

// Mark adds id and reports whether it was not present before.
func (s *NotifiedSet) Mark(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Has reports whether id was marked.
func (s *NotifiedSet) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Clear removes every id.
func (s *NotifiedSet) Clear() {
	s.mu.Lock()
	s.ids = make(map[string]struct{})
	s.mu.Unlock()
}

// Len returns the number of marked ids.
func (s *NotifiedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
