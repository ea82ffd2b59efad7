package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/tripcache/internal/shared/events"
	sharedUtils "github.com/davicafu/tripcache/internal/shared/infra/utils"
	userDomain "github.com/davicafu/tripcache/internal/user/domain"
)

// UserInvalidator es lo que el consumidor necesita del servicio de usuarios.
type UserInvalidator interface {
	InvalidateUser(ctx context.Context, id uuid.UUID)
}

// UserConsumer tira de la caché los perfiles que otros servicios han cambiado.
type UserConsumer struct {
	service UserInvalidator
	log     *zap.Logger
}

func NewUserConsumer(service UserInvalidator, logger *zap.Logger) *UserConsumer {
	return &UserConsumer{
		service: service,
		log:     logger,
	}
}

func (c *UserConsumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	var base sharedEvents.IntegrationEvent
	if err := json.Unmarshal(payload, &base); err != nil {
		c.log.Warn("Failed to unmarshal integration event", zap.String("key", key), zap.Error(err))
		return
	}

	switch base.Type {
	case userDomain.UserUpdated:
		sharedUtils.UnmarshalAndHandle[sharedEvents.UserUpdated](c.log, base.Data, func(evt sharedEvents.UserUpdated) {
			c.invalidate(ctx, evt.ID, base.Type)
		})

	case userDomain.UserDeleted:
		sharedUtils.UnmarshalAndHandle[sharedEvents.UserDeleted](c.log, base.Data, func(evt sharedEvents.UserDeleted) {
			c.invalidate(ctx, evt.ID, base.Type)
		})

	case userDomain.UserCreated:
		// Un usuario nuevo no tiene nada cacheado.

	default:
		c.log.Warn("Unknown event type", zap.String("type", base.Type))
	}
}

func (c *UserConsumer) invalidate(ctx context.Context, id uuid.UUID, eventType string) {
	if id == uuid.Nil {
		c.log.Warn("user event without id", zap.String("type", eventType))
		return
	}
	ctxUser, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	c.service.InvalidateUser(ctxUser, id)
	c.log.Info("🧹 user cache invalidated via event",
		zap.String("user_id", id.String()),
		zap.String("type", eventType),
	)
}
