package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	currencyDomain "github.com/davicafu/tripcache/internal/currency/domain"
	sharedEvents "github.com/davicafu/tripcache/internal/shared/events"
	"github.com/davicafu/tripcache/internal/shared/infra/platform/cache"
	"github.com/davicafu/tripcache/internal/shared/infra/platform/cache/cachetest"
	"github.com/davicafu/tripcache/internal/user/domain"
	"github.com/davicafu/tripcache/tests/mocks"
)

func newService(t *testing.T) (*UserService, *mocks.InMemoryUserRepo, *cache.Store) {
	t.Helper()
	repo := mocks.NewInMemoryUserRepo()
	store, _ := cachetest.New(t)
	return NewUserService(repo, store, nil, zap.NewNop()), repo, store
}

func TestCreateUser_Success(t *testing.T) {
	service, repo, store := newService(t)

	user, err := service.CreateUser(context.Background(), "test@example.com", "Pepe", "sgd")
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", user.Email)
	assert.Equal(t, "SGD", user.PreferredCurrency)
	assert.Contains(t, repo.Users, user.ID)

	assert.True(t, store.GetUserData(context.Background(), user.ID.String()).Val().Present())
}

func TestCreateUser_Invalid(t *testing.T) {
	service, _, _ := newService(t)

	_, err := service.CreateUser(context.Background(), "nope", "Pepe", "")
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
}

func TestGetUser_CacheAside(t *testing.T) {
	service, repo, store := newService(t)
	ctx := context.Background()

	user, err := domain.NewUser("cached@example.com", "Ana", "MYR", time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, user))

	got, err := service.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)
	assert.Equal(t, 1, repo.GetCount())

	assert.True(t, store.GetUserData(ctx, user.ID.String()).Val().Present())

	// Segunda lectura: sale de la caché.
	again, err := service.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, 1, repo.GetCount())
}

func TestGetUser_UpdateIsNotShadowedByEarlierRead(t *testing.T) {
	service, repo, store := newService(t)
	ctx := context.Background()

	user, err := domain.NewUser("stale@example.com", "Luis", "MYR", time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, user))

	_, err = service.GetUser(ctx, user.ID)
	require.NoError(t, err)
	_, err = service.UpdatePreferredCurrency(ctx, user.ID, "eur")
	require.NoError(t, err)

	// La lectura anterior ya escribió su copia; la invalidación la elimina.
	assert.False(t, store.GetUserData(ctx, user.ID.String()).Val().Present())

	got, err := service.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "EUR", got.PreferredCurrency)

	var cached domain.User
	require.NoError(t, store.GetUserData(ctx, user.ID.String()).Val().Decode(&cached))
	assert.Equal(t, "EUR", cached.PreferredCurrency)
}

func TestGetUser_RetriesTransientErrors(t *testing.T) {
	service, repo, _ := newService(t)
	ctx := context.Background()

	user, _ := domain.NewUser("retry@example.com", "Reintento", "", time.Now())
	require.NoError(t, repo.Create(ctx, user))
	repo.FailGets = 2
	repo.GetErr = errors.New("database is locked")

	got, err := service.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, 3, repo.GetCount())
}

func TestGetUser_NotFoundIsNotRetried(t *testing.T) {
	service, repo, _ := newService(t)

	_, err := service.GetUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.Equal(t, 1, repo.GetCount())
}

func TestGetUser_WorksWithoutCache(t *testing.T) {
	repo := mocks.NewInMemoryUserRepo()
	service := NewUserService(repo, cachetest.Down(t), nil, zap.NewNop())
	ctx := context.Background()

	user, err := service.CreateUser(ctx, "offline@example.com", "Sin Caché", "")
	require.NoError(t, err)

	got, err := service.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)
}

func TestUpdatePreferredCurrency_InvalidatesCache(t *testing.T) {
	service, repo, store := newService(t)
	ctx := context.Background()

	user, _ := domain.NewUser("cur@example.com", "Moneda", "MYR", time.Now())
	require.NoError(t, repo.Create(ctx, user))
	require.True(t, store.CacheUserData(ctx, user.ID.String(), user, 0).Ok())

	updated, err := service.UpdatePreferredCurrency(ctx, user.ID, "jpy")
	require.NoError(t, err)
	assert.Equal(t, "JPY", updated.PreferredCurrency)
	assert.Equal(t, "JPY", repo.Users[user.ID].PreferredCurrency)
	assert.False(t, store.GetUserData(ctx, user.ID.String()).Val().Present())

	_, err = service.UpdatePreferredCurrency(ctx, user.ID, "XYZ")
	assert.ErrorIs(t, err, currencyDomain.ErrUnsupportedCurrency)
}

func TestDeleteUser_PublishesAndInvalidates(t *testing.T) {
	repo := mocks.NewInMemoryUserRepo()
	store, _ := cachetest.New(t)
	publisher := &mocks.MockPublisher{}
	service := NewUserService(repo, store, publisher, zap.NewNop())
	ctx := context.Background()

	user, _ := domain.NewUser("bye@example.com", "Adiós", "", time.Now())
	require.NoError(t, repo.Create(ctx, user))
	store.CacheUserData(ctx, user.ID.String(), user, 0)

	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(evt sharedEvents.IntegrationEvent) bool {
		return evt.Type == domain.UserDeleted && evt.AggregateID == user.ID.String()
	})).Return(nil).Once()

	require.NoError(t, service.DeleteUser(ctx, user.ID))
	assert.False(t, store.GetUserData(ctx, user.ID.String()).Val().Present())
	assert.ErrorIs(t, service.DeleteUser(ctx, user.ID), domain.ErrUserNotFound)
	publisher.AssertExpectations(t)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	repo := mocks.NewInMemoryUserRepo()
	publisher := &mocks.MockPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	service := NewUserService(repo, nil, publisher, zap.NewNop())

	_, err := service.CreateUser(context.Background(), "pub@example.com", "Pub", "")
	assert.NoError(t, err)
}
