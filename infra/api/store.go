package api

import (
	"context"
	"sort"
	"sync"

	"github.com/Tsinling0525/journeyflow/model"
)

// Persister backs a JourneyStore with durable storage.
type Persister interface {
	Save(ctx context.Context, j *model.Journey) error
	List(ctx context.Context) ([]*model.Journey, error)
	Delete(ctx context.Context, id model.ID) error
}

// JourneyStore keeps saved journeys in memory, writing through to an
// optional Persister.
type JourneyStore struct {
	mu      sync.RWMutex
	m       map[model.ID]*model.Journey
	persist Persister
}

func NewJourneyStore(p Persister) *JourneyStore {
	return &JourneyStore{m: make(map[model.ID]*model.Journey), persist: p}
}

// Load fills the store from its Persister.
func (s *JourneyStore) Load(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	list, err := s.persist.List(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range list {
		s.m[j.ID] = j
	}
	return nil
}

func (s *JourneyStore) Put(ctx context.Context, j *model.Journey) error {
	if s.persist != nil {
		if err := s.persist.Save(ctx, j); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.m[j.ID] = j.Clone()
	s.mu.Unlock()
	return nil
}

func (s *JourneyStore) Get(id model.ID) (*model.Journey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.m[id]
	if !ok {
		return nil, false
	}
	return j.Clone(), true
}

func (s *JourneyStore) Delete(ctx context.Context, id model.ID) (bool, error) {
	s.mu.Lock()
	_, ok := s.m[id]
	delete(s.m, id)
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if s.persist != nil {
		if err := s.persist.Delete(ctx, id); err != nil {
			return true, err
		}
	}
	return true, nil
}

// List returns the stored journeys ordered by id.
func (s *JourneyStore) List() []*model.Journey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Journey, 0, len(s.m))
	for _, j := range s.m {
		out = append(out, j.Clone())
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}
