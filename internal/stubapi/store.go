package stubapi

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/guardguys-scheduler/internal/models"
	"github.com/noah-isme/guardguys-scheduler/internal/repository"
)

// UserStore persists member accounts. Lookups of missing rows return
// sql.ErrNoRows. Create and Update return repository.ErrDuplicateEmail when
// another member owns the email, compared case-insensitively.
type UserStore interface {
	List(ctx context.Context) ([]models.UserRecord, error)
	FindByID(ctx context.Context, id int) (*models.UserRecord, error)
	FindByEmail(ctx context.Context, email string) (*models.UserRecord, error)
	Create(ctx context.Context, user *models.UserRecord) error
	Update(ctx context.Context, user *models.UserRecord) error
	Delete(ctx context.Context, id int) error
}

// EventStore persists scheduled events. Lookups of missing rows return sql.ErrNoRows.
type EventStore interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]models.EventRecord, error)
	FindByID(ctx context.Context, id int) (*models.EventRecord, error)
	Create(ctx context.Context, event *models.EventRecord) error
	Update(ctx context.Context, event *models.EventRecord) error
	Delete(ctx context.Context, id int) error
}

// MemoryStore keeps users and events in process memory. It implements both
// UserStore (through Users) and EventStore (through Events).
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[int]models.UserRecord
	events    map[int]models.EventRecord
	nextUser  int
	nextEvent int
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     map[int]models.UserRecord{},
		events:    map[int]models.EventRecord{},
		nextUser:  1,
		nextEvent: 1,
	}
}

// Users exposes the member half of the store.
func (m *MemoryStore) Users() UserStore { return memoryUsers{m} }

// Events exposes the event half of the store.
func (m *MemoryStore) Events() EventStore { return memoryEvents{m} }

type memoryUsers struct{ m *MemoryStore }

func (s memoryUsers) List(ctx context.Context) ([]models.UserRecord, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	users := make([]models.UserRecord, 0, len(s.m.users))
	for _, u := range s.m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s memoryUsers) FindByID(ctx context.Context, id int) (*models.UserRecord, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	u, ok := s.m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (s memoryUsers) FindByEmail(ctx context.Context, email string) (*models.UserRecord, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, u := range s.m.users {
		if strings.EqualFold(u.Email, email) {
			found := u
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s memoryUsers) Create(ctx context.Context, user *models.UserRecord) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.emailTaken(user.Email, 0) {
		return repository.ErrDuplicateEmail
	}
	now := time.Now().UTC()
	user.ID = s.m.nextUser
	s.m.nextUser++
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	s.m.users[user.ID] = *user
	return nil
}

func (s memoryUsers) Update(ctx context.Context, user *models.UserRecord) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	if s.emailTaken(user.Email, user.ID) {
		return repository.ErrDuplicateEmail
	}
	user.UpdatedAt = time.Now().UTC()
	s.m.users[user.ID] = *user
	return nil
}

// emailTaken must be called with the store lock held.
func (s memoryUsers) emailTaken(email string, self int) bool {
	for id, u := range s.m.users {
		if id != self && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (s memoryUsers) Delete(ctx context.Context, id int) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.m.users, id)
	for eid, e := range s.m.events {
		if e.UserID != nil && *e.UserID == id {
			e.UserID = nil
			s.m.events[eid] = e
		}
	}
	return nil
}

type memoryEvents struct{ m *MemoryStore }

func (s memoryEvents) ListBetween(ctx context.Context, from, to time.Time) ([]models.EventRecord, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	events := make([]models.EventRecord, 0)
	for _, e := range s.m.events {
		if !e.Date.Before(from) && e.Date.Before(to) {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date.Equal(events[j].Date) {
			return events[i].ID < events[j].ID
		}
		return events[i].Date.Before(events[j].Date)
	})
	return events, nil
}

func (s memoryEvents) FindByID(ctx context.Context, id int) (*models.EventRecord, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	e, ok := s.m.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (s memoryEvents) Create(ctx context.Context, event *models.EventRecord) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	now := time.Now().UTC()
	event.ID = s.m.nextEvent
	s.m.nextEvent++
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	s.m.events[event.ID] = *event
	return nil
}

func (s memoryEvents) Update(ctx context.Context, event *models.EventRecord) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.events[event.ID]; !ok {
		return sql.ErrNoRows
	}
	event.UpdatedAt = time.Now().UTC()
	s.m.events[event.ID] = *event
	return nil
}

func (s memoryEvents) Delete(ctx context.Context, id int) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.events[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.m.events, id)
	return nil
}
