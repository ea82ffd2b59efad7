package cache

import (
	"context"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const DefaultUserTTL = 30 * time.Minute

// UserKey devuelve la clave user:{id}.
func UserKey(userID string) string { return NamespaceUser.Key(userID) }

func userKey(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", ErrEmptyKey
	}
	return UserKey(userID), nil
}

// CacheUserData guarda los datos del usuario. ttl <= 0 usa 30 minutos.
func (s *Store) CacheUserData(ctx context.Context, userID string, data interface{}, ttl time.Duration) Result[bool] {
	key, err := userKey(userID)
	if err != nil {
		return failResult(false, s.invalid("cache_user_data", err))
	}
	if ttl <= 0 {
		ttl = DefaultUserTTL
	}
	return s.Set(ctx, key, data, ttl)
}

func (s *Store) GetUserData(ctx context.Context, userID string) Result[Value] {
	key, err := userKey(userID)
	if err != nil {
		return failResult(Value{}, s.invalid("get_user_data", err))
	}
	return s.Get(ctx, key)
}

func (s *Store) ClearUserCache(ctx context.Context, userID string) Result[bool] {
	key, err := userKey(userID)
	if err != nil {
		return failResult(false, s.invalid("clear_user_cache", err))
	}
	return s.Delete(ctx, key)
}

// HitRateLimit suma un acceso en la ventana fija rate_limit:{subject} y devuelve
// el total de la ventana. La expiración se fija con el primer acceso.
func (s *Store) HitRateLimit(ctx context.Context, subject string, window time.Duration) Result[int64] {
	const op = "hit_rate_limit"
	if strings.TrimSpace(subject) == "" {
		return failResult(int64(0), s.invalid(op, ErrEmptyKey))
	}
	if window <= 0 {
		return failResult(int64(0), s.invalid(op, ErrInvalidTTL))
	}
	key := NamespaceRateLimit.Key(subject)

	var hits int64
	if err := s.do(ctx, op, func(ctx context.Context, c *redis.Client) error {
		var (
			incr *redis.IntCmd
			ttl  *redis.DurationCmd
		)
		if _, err := c.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			ttl = pipe.TTL(ctx, key)
			return nil
		}); err != nil {
			return err
		}
		hits = incr.Val()
		if ttl.Val() < 0 {
			return c.Expire(ctx, key, window).Err()
		}
		return nil
	}); err != nil {
		return failResult(int64(0), err)
	}
	s.metrics.observe(op, "ok")
	return okResult(hits)
}
