package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	currencyDomain "github.com/davicafu/tripcache/internal/currency/domain"
	sharedEvents "github.com/davicafu/tripcache/internal/shared/events"
	"github.com/davicafu/tripcache/internal/shared/infra/platform/cache"
	"github.com/davicafu/tripcache/internal/shared/infra/utils"
	"github.com/davicafu/tripcache/internal/user/domain"
)

const (
	repoAttempts   = 3
	repoRetryDelay = 100 * time.Millisecond
	cacheWriteTime = 500 * time.Millisecond
)

// UserService define los casos de uso relacionados con User.
type UserService struct {
	repo   domain.UserRepository
	cache  domain.UserCache
	events domain.EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

// NewUserService constructor. cache y events pueden ser nil.
func NewUserService(repo domain.UserRepository, cache domain.UserCache, events domain.EventPublisher, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{
		repo:   repo,
		cache:  cache,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

func (s *UserService) CreateUser(ctx context.Context, email, name, currency string) (*domain.User, error) {
	user, err := domain.NewUser(email, name, currency, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.cacheUser(ctx, user)
	s.publish(ctx, domain.UserCreated, user.ID, sharedEvents.UserUpdated{
		ID:                user.ID,
		Email:             user.Email,
		Name:              user.Name,
		PreferredCurrency: user.PreferredCurrency,
		SubscriptionTier:  user.SubscriptionTier,
	})
	return user, nil
}

// GetUser obtiene un usuario (primero intenta desde cache).
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	// 1. Intentar cache
	if s.cache != nil {
		if cached := s.cache.GetUserData(ctx, id.String()).Val(); cached.Present() {
			var u domain.User
			if err := cached.Decode(&u); err == nil {
				return &u, nil
			}
			s.log.Warn("cached user unreadable, reloading", zap.String("user_id", id.String()))
		}
	}

	// 2. Ir al repo con reintentos (un "no existe" no se reintenta)
	var user *domain.User
	var notFound error
	err := utils.Retry(ctx, repoAttempts, repoRetryDelay, func(int) error {
		var err error
		user, err = s.repo.GetByID(ctx, id)
		if errors.Is(err, domain.ErrUserNotFound) {
			notFound = err
			return nil
		}
		return err
	})
	if notFound != nil {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}

	// 3. Actualizar cache antes de responder: una escritura tardía podría
	// pisar una invalidación posterior y dejar el perfil viejo 30 minutos.
	s.cacheUser(ctx, user)
	return user, nil
}

// UpdatePreferredCurrency cambia la moneda del usuario e invalida su entrada en caché.
func (s *UserService) UpdatePreferredCurrency(ctx context.Context, id uuid.UUID, currency string) (*domain.User, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if !currencyDomain.Supported(code) {
		return nil, fmt.Errorf("%w: %s", currencyDomain.ErrUnsupportedCurrency, currency)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.PreferredCurrency = code
	user.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.InvalidateUser(ctx, id)
	s.publish(ctx, domain.UserUpdated, id, sharedEvents.UserUpdated{ID: id, PreferredCurrency: code})
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.InvalidateUser(ctx, id)
	s.publish(ctx, domain.UserDeleted, id, sharedEvents.UserDeleted{ID: id})
	return nil
}

// InvalidateUser borra user:{id}. Un fallo de la caché sólo se loguea: la
// entrada caduca sola a los 30 minutos.
func (s *UserService) InvalidateUser(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if res := s.cache.ClearUserCache(ctx, id.String()); !res.Ok() {
		s.log.Warn("⚠️ user cache invalidation failed", zap.String("user_id", id.String()), zap.Error(res.Err()))
	}
}

// Ping comprueba la base de datos (health).
func (s *UserService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// cacheUser escribe user:{id} con un timeout propio. Un fallo sólo se loguea.
func (s *UserService) cacheUser(ctx context.Context, u *domain.User) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cacheWriteTime)
	defer cancel()
	if res := s.cache.CacheUserData(ctx, u.ID.String(), u, cache.DefaultUserTTL); !res.Ok() {
		s.log.Debug("user cache write skipped", zap.String("user_id", u.ID.String()), zap.Error(res.Err()))
	}
}

func (s *UserService) publish(ctx context.Context, eventType string, id uuid.UUID, data interface{}) {
	if s.events == nil {
		return
	}
	evt, err := sharedEvents.NewIntegrationEvent(eventType, id.String(), data, s.now())
	if err != nil {
		s.log.Error("failed to build user event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.log.Warn("⚠️ user event not published", zap.String("type", eventType), zap.String("user_id", id.String()), zap.Error(err))
	}
}
