package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/davicafu/tripcache/internal/shared/infra/platform/cache"
	"github.com/davicafu/tripcache/pkg/utils"
)

// RateCounter cuenta accesos en una ventana fija.
type RateCounter interface {
	HitRateLimit(ctx context.Context, subject string, window time.Duration) cache.Result[int64]
}

// RateLimit limita a limit peticiones por cliente (IP) y ventana. Si la caché no
// responde la petición pasa: el límite es una protección, no un requisito.
func RateLimit(counter RateCounter, limit int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		res := counter.HitRateLimit(c.Request.Context(), c.ClientIP(), window)
		if !res.Ok() {
			log.Debug("rate limit skipped", zap.Error(res.Err()))
			c.Next()
			return
		}

		hits := res.Val()
		remaining := int64(limit) - hits
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if hits > int64(limit) {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			utils.AbortWithError(c, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		c.Next()
	}
}
