package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/davicafu/tripcache/internal/shared/infra/platform/cache"
)

// ---------- Errores de dominio ----------
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrInvalidUser       = errors.New("invalid user")
)

// ---------- Interfaces (Ports) ----------

// UserRepository define las operaciones persistentes para User.
type UserRepository interface {
	// Debe devolver ErrUserAlreadyExists si el email ya está registrado.
	Create(ctx context.Context, u *User) error

	// Debe devolver ErrUserNotFound si no existe.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// Debe devolver ErrUserNotFound si el usuario no existe.
	Update(ctx context.Context, u *User) error

	// Debe devolver ErrUserNotFound si el usuario no existe.
	DeleteByID(ctx context.Context, id uuid.UUID) error

	Ping(ctx context.Context) error
}

// UserCache es la parte de la caché que usa el servicio de usuarios.
type UserCache interface {
	CacheUserData(ctx context.Context, userID string, data interface{}, ttl time.Duration) cache.Result[bool]
	GetUserData(ctx context.Context, userID string) cache.Result[cache.Value]
	ClearUserCache(ctx context.Context, userID string) cache.Result[bool]
}

var _ UserCache = (*cache.Store)(nil)

// EventPublisher publica eventos de integración hacia otros servicios.
type EventPublisher interface {
	Publish(ctx context.Context, event interface{}) error
}
