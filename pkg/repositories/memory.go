package repositories

import (
	"context"
	"sync"

	gametypes "github.com/cbodonnell/skirmish/pkg/game/types"
)

// InMemorySessionStore keeps sessions in process memory. It backs tests and
// local development where no database is available.
type InMemorySessionStore struct {
	lock     sync.RWMutex
	byID     map[string]*gametypes.Session
	idByName map[string]string
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		byID:     make(map[string]*gametypes.Session),
		idByName: make(map[string]string),
	}
}

func (s *InMemorySessionStore) Close(ctx context.Context) error {
	return nil
}

func (s *InMemorySessionStore) Get(ctx context.Context, id string) (*gametypes.Session, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	session, ok := s.byID[id]
	if !ok {
		return nil, &ErrNotFound{}
	}
	return session.Clone(), nil
}

func (s *InMemorySessionStore) GetByName(ctx context.Context, name string) (*gametypes.Session, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	id, ok := s.idByName[name]
	if !ok {
		return nil, &ErrNotFound{}
	}
	return s.byID[id].Clone(), nil
}

func (s *InMemorySessionStore) Create(ctx context.Context, session *gametypes.Session) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.idByName[session.Name]; ok {
		return &ErrNameExists{}
	}
	s.byID[session.ID] = session.Clone()
	s.idByName[session.Name] = session.ID
	return nil
}

func (s *InMemorySessionStore) Save(ctx context.Context, session *gametypes.Session) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.byID[session.ID]; !ok {
		return &ErrNotFound{}
	}
	s.byID[session.ID] = session.Clone()
	return nil
}

func (s *InMemorySessionStore) Delete(ctx context.Context, id string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	session, ok := s.byID[id]
	if !ok {
		return &ErrNotFound{}
	}
	delete(s.idByName, session.Name)
	delete(s.byID, id)
	return nil
}

func (s *InMemorySessionStore) FindByMemberID(ctx context.Context, playerID string) (*gametypes.Session, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	for _, session := range s.byID {
		if session.IsMember(playerID) {
			return session.Clone(), nil
		}
	}
	return nil, &ErrNotFound{}
}

func (s *InMemorySessionStore) List(ctx context.Context) ([]*gametypes.Session, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	sessions := make([]*gametypes.Session, 0, len(s.byID))
	for _, session := range s.byID {
		sessions = append(sessions, session.Clone())
	}
	return sessions, nil
}
