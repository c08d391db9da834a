package notes

import (
	"context"
	"sync"

	apperrors "knowledge-weaver/backend/pkg/errors"
)

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu         sync.RWMutex
	notes      map[string]Note
	categories []Category
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{notes: make(map[string]Note)}
}

func (s *MemoryStore) List(ctx context.Context) ([]Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, clone(n))
	}
	SortChronological(out)
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notes[id]
	if !ok {
		return Note{}, apperrors.NewNoteNotFound(id)
	}
	return clone(n), nil
}

func (s *MemoryStore) Upsert(ctx context.Context, note Note) error {
	if err := note.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.notes[note.ID] = clone(note)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; !ok {
		return apperrors.NewNoteNotFound(id)
	}
	delete(s.notes, id)
	return nil
}

func (s *MemoryStore) ListCategories(ctx context.Context) ([]Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Category(nil), s.categories...), nil
}

func (s *MemoryStore) SaveCategories(ctx context.Context, categories []Category) error {
	s.mu.Lock()
	s.categories = append([]Category(nil), categories...)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// clone copies the slices and pointers a caller could mutate
func clone(n Note) Note {
	n.Categories = append([]string(nil), n.Categories...)
	if n.Relationships != nil {
		r := *n.Relationships
		if r.VideoTime != nil {
			vt := *r.VideoTime
			r.VideoTime = &vt
		}
		n.Relationships = &r
	}
	return n
}
