package agent

import "sync"

// State is a small concurrent key/value store scoped to one agent. Hooks
// use it to pass findings (like detected connection errors) back to the
// invocation loop.
type State struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewState creates an empty State.
func NewState() *State {
	return &State{values: make(map[string]any)}
}

// Set stores a value. Setting nil removes the key.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == nil {
		delete(s.values, key)
		return
	}
	s.values[key] = value
}

// Get returns the value for key, or nil.
func (s *State) Get(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

// GetString returns the string value for key, or "".
func (s *State) GetString(key string) string {
	v, _ := s.Get(key).(string)
	return v
}

// Clear removes all keys.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]any)
}
