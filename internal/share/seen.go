package share

import (
	"sync"
)

const (
	seenHighWater = 100
	seenLowWater  = 50
)

// SeenMessages tracks chat message ids that were already processed, bounding
// retention to the most recent ids. Trimming is by arrival order, not by id
// value: provider ids are numeric strings of varying length and sorting them
// lexicographically would evict the wrong entries.
type SeenMessages struct {
	mu    sync.Mutex
	ids   map[string]struct{}
	order []string
}

func NewSeenMessages() *SeenMessages {
	return &SeenMessages{ids: make(map[string]struct{})}
}

// Seen reports whether the id was marked within the retention window.
func (s *SeenMessages) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Mark records the id. When more than 100 ids are retained, the oldest are
// dropped so that only the newest 50 remain.
func (s *SeenMessages) Mark(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
	if len(s.order) > seenHighWater {
		cut := len(s.order) - seenLowWater
		for _, old := range s.order[:cut] {
			delete(s.ids, old)
		}
		s.order = append(s.order[:0:0], s.order[cut:]...)
	}
}

// Len returns the number of retained ids.
func (s *SeenMessages) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Clear drops all retained ids.
func (s *SeenMessages) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.ids)
	s.order = nil
}
