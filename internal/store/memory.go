package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps sessions in process memory. It is the default backend
// when no database is configured; state is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = cloneSession(&s)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return *cloneSession(s), nil
}

func (m *MemoryStore) List(context.Context) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *cloneSession(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

// cloneSession deep-copies the slices so callers cannot mutate stored state.
func cloneSession(s *Session) *Session {
	c := *s
	c.Questions = append(c.Questions[:0:0], s.Questions...)
	c.Answers = append(c.Answers[:0:0], s.Answers...)
	c.Evaluations = append(c.Evaluations[:0:0], s.Evaluations...)
	if s.Report != nil {
		r := *s.Report
		c.Report = &r
	}
	rubric := s.Rubric
	rubric.Competencies = append(rubric.Competencies[:0:0], s.Rubric.Competencies...)
	c.Rubric = rubric
	return &c
}
