package answers

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*Entry
	now     func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry), now: time.Now}
}

func (s *MemoryStore) Append(_ context.Context, question, answer string) (int, error) {
	q, err := normalize(question)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[q]; ok {
		e.Answer = merge(e.Answer, answer)
		e.UpdatedAt = now
	} else {
		s.entries[q] = &Entry{Question: q, Answer: answer, CreatedAt: now, UpdatedAt: now}
		s.order = append(s.order, q)
	}
	return len(s.order), nil
}

func (s *MemoryStore) All(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.order))
	for _, q := range s.order {
		out = append(out, *s.entries[q])
	}
	return out, nil
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.entries = make(map[string]*Entry)
	return nil
}
