package http

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/davicafu/tripcache/internal/shared/infra/platform/cache"
	"github.com/davicafu/tripcache/pkg/utils"
)

const AdminTokenHeader = "X-Admin-Token"

// CacheAdmin es la superficie administrativa de la caché.
type CacheAdmin interface {
	CacheStatus
	State() cache.ConnState
	Reconnect(ctx context.Context) bool
	ClearNamespace(ctx context.Context, prefix string) cache.Result[int64]
}

var _ CacheAdmin = (*cache.Store)(nil)

type AdminHandler struct {
	cache CacheAdmin
	log   *zap.Logger
}

func NewAdminHandler(c CacheAdmin, log *zap.Logger) *AdminHandler {
	return &AdminHandler{cache: c, log: log}
}

// RequireAdminToken exige la cabecera X-Admin-Token. Sin token configurado las
// rutas de administración quedan cerradas.
func RequireAdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			utils.AbortWithError(c, http.StatusForbidden, "admin_disabled", "admin endpoints are disabled")
			return
		}
		got := c.GetHeader(AdminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			utils.AbortWithError(c, http.StatusUnauthorized, "unauthorized", "invalid admin token")
			return
		}
		c.Next()
	}
}

// Status endpoint GET /admin/cache/status
func (h *AdminHandler) Status(c *gin.Context) {
	available := h.cache.GetStatus(c.Request.Context())
	utils.SendSuccess(c, http.StatusOK, gin.H{
		"available":  available,
		"state":      h.cache.State().String(),
		"namespaces": cache.Namespaces(),
	})
}

// Reconnect endpoint POST /admin/cache/reconnect
func (h *AdminHandler) Reconnect(c *gin.Context) {
	ok := h.cache.Reconnect(c.Request.Context())
	h.log.Info("admin cache reconnect", zap.Bool("available", ok))
	utils.SendSuccess(c, http.StatusOK, gin.H{"available": ok})
}

// ClearNamespace endpoint DELETE /admin/cache/namespaces/:namespace
func (h *AdminHandler) ClearNamespace(c *gin.Context) {
	ns := c.Param("namespace")
	res := h.cache.ClearNamespace(c.Request.Context(), ns)
	switch {
	case res.Ok():
		utils.SendSuccess(c, http.StatusOK, gin.H{"namespace": ns, "deleted": res.Val()})
	case res.Kind() == cache.KindValidation:
		utils.SendBadRequest(c, res.Err().Error())
	default:
		utils.SendServiceUnavailable(c, "cache unavailable")
	}
}
