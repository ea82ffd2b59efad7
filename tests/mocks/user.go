package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	userDomain "github.com/davicafu/tripcache/internal/user/domain"
)

// InMemoryUserRepo simula UserRepository. FailGets hace fallar las siguientes
// N lecturas con GetErr (para probar los reintentos).
type InMemoryUserRepo struct {
	Users    map[uuid.UUID]*userDomain.User
	Gets     int
	FailGets int
	GetErr   error
	PingErr  error
	mu       sync.Mutex
}

var _ userDomain.UserRepository = (*InMemoryUserRepo)(nil)

func NewInMemoryUserRepo() *InMemoryUserRepo {
	return &InMemoryUserRepo{Users: make(map[uuid.UUID]*userDomain.User)}
}

func (r *InMemoryUserRepo) Create(ctx context.Context, u *userDomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.Users {
		if existing.ID == u.ID || existing.Email == u.Email {
			return userDomain.ErrUserAlreadyExists
		}
	}
	cp := *u
	r.Users[u.ID] = &cp
	return nil
}

func (r *InMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Gets++
	if r.FailGets > 0 {
		r.FailGets--
		return nil, r.GetErr
	}
	u, ok := r.Users[id]
	if !ok {
		return nil, userDomain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *InMemoryUserRepo) Update(ctx context.Context, u *userDomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Users[u.ID]; !ok {
		return userDomain.ErrUserNotFound
	}
	cp := *u
	r.Users[u.ID] = &cp
	return nil
}

func (r *InMemoryUserRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Users[id]; !ok {
		return userDomain.ErrUserNotFound
	}
	delete(r.Users, id)
	return nil
}

func (r *InMemoryUserRepo) Ping(ctx context.Context) error {
	return r.PingErr
}

func (r *InMemoryUserRepo) GetCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Gets
}

// MockPublisher es un mock para EventPublisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event interface{}) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
