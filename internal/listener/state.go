package listener

import "sync"

// State is the mutable part of one build run: which targets have been
// reported and which nodes the failure walk has already visited. Both sets
// only grow. All access goes through the single mutex so that a membership
// check and the insert that follows it happen atomically.
type State struct {
	mu        sync.Mutex
	notified  map[string]bool
	processed map[string]bool
}

// NewState returns empty run state.
func NewState() *State {
	return &State{
		notified:  make(map[string]bool),
		processed: make(map[string]bool),
	}
}

// Notified reports whether a result has been emitted for uid.
func (s *State) Notified(uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notified[uid]
}

// NotifiedCount returns how many targets have been reported.
func (s *State) NotifiedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notified)
}

// Processed reports whether the failure walk has visited uid.
func (s *State) Processed(uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[uid]
}
