package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

// NewRouter crea el engine con recovery y log de peticiones. Sólo los peers de
// trustedProxies pueden fijar la IP del cliente con X-Forwarded-For; con la lista
// vacía ClientIP es siempre la IP del peer.
func NewRouter(log *zap.Logger, trustedProxies []string) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		return nil, err
	}
	r.Use(gin.Recovery(), RequestLogger(log))
	return r, nil
}

// RequestLogger asigna un request id y loguea cada petición con zap.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(RequestIDHeader, reqID)

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", reqID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if c.Writer.Status() >= 500 {
			log.Error("request failed", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

// RegisterPlatformRoutes monta /health, /metrics y las rutas de administración.
func RegisterPlatformRoutes(r gin.IRouter, health *HealthHandler, admin *AdminHandler, adminToken string, gatherer prometheus.Gatherer) {
	r.GET("/health", health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	a := r.Group("/admin/cache", RequireAdminToken(adminToken))
	{
		a.GET("/status", admin.Status)
		a.POST("/reconnect", admin.Reconnect)
		a.DELETE("/namespaces/:namespace", admin.ClearNamespace)
	}
}
