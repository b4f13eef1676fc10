package grocery

import (
	"sort"
	"sync"
)

// CheckedSet records which list items have been ticked off this session.
// Keys are never pruned when the plan or window changes; only Clear empties
// it. A nil *CheckedSet behaves as an empty set for reads.
type CheckedSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewCheckedSet returns an empty set.
func NewCheckedSet() *CheckedSet {
	return &CheckedSet{keys: make(map[string]struct{})}
}

// Toggle flips key and returns its new state.
func (s *CheckedSet) Toggle(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		delete(s.keys, key)
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

// Has reports whether key is checked.
func (s *CheckedSet) Has(key string) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

// Clear unchecks everything.
func (s *CheckedSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = make(map[string]struct{})
}

// Len returns the number of checked keys.
func (s *CheckedSet) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// Keys returns the checked keys in sorted order.
func (s *CheckedSet) Keys() []string {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.keys))
	for k := range s.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
