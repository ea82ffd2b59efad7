package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/davicafu/tripcache/internal/shared/infra/utils"
)

// Pinger comprueba una dependencia.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheStatus es lo que el health y el admin leen de la caché.
type CacheStatus interface {
	GetStatus(ctx context.Context) bool
}

// HealthHandler informa del estado de la base de datos y de la caché. Una caché
// caída no hace fallar el health: la app sigue sirviendo sin ella.
type HealthHandler struct {
	db    Pinger
	cache CacheStatus
	log   *zap.Logger
	now   func() time.Time
}

func NewHealthHandler(db Pinger, cache CacheStatus, log *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, log: log, now: time.Now}
}

// Health endpoint GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbErr := h.db.Ping(ctx)
	if dbErr != nil {
		h.log.Error("❌ health: database unreachable", zap.Error(dbErr))
	}
	cacheUp := h.cache.GetStatus(ctx)

	status := http.StatusOK
	if dbErr != nil {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":    utils.Ternary(dbErr == nil, "healthy", "unhealthy"),
		"database":  utils.Ternary(dbErr == nil, "connected", "disconnected"),
		"cache":     utils.Ternary(cacheUp, "connected", "fallback"),
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}
