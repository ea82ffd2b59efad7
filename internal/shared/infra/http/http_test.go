package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/tripcache/internal/shared/infra/platform/cache"
	"github.com/davicafu/tripcache/internal/shared/infra/platform/cache/cachetest"
)

type fakeDB struct{ err error }

func (f fakeDB) Ping(context.Context) error { return f.err }

func setupRouter(t *testing.T, db Pinger, store *cache.Store, token string, limit int, trustedProxies ...string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	reg := prometheus.NewRegistry()
	r, err := NewRouter(log, trustedProxies)
	require.NoError(t, err)
	r.Use(RateLimit(store, limit, time.Minute, log))
	RegisterPlatformRoutes(r, NewHealthHandler(db, store, log), NewAdminHandler(store, log), token, reg)
	return r
}

func do(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth_AllUp(t *testing.T) {
	store, _ := cachetest.New(t)
	r := setupRouter(t, fakeDB{}, store, "", 0)

	w := do(r, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "connected", body["database"])
	assert.Equal(t, "connected", body["cache"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestHealth_CacheDownIsStillHealthy(t *testing.T) {
	r := setupRouter(t, fakeDB{}, cachetest.Down(t), "", 0)

	w := do(r, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fallback", decodeBody(t, w)["cache"])
}

func TestHealth_DatabaseDown(t *testing.T) {
	store, _ := cachetest.New(t)
	r := setupRouter(t, fakeDB{err: errors.New("boom")}, store, "", 0)

	w := do(r, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "unhealthy", body["status"])
	assert.Equal(t, "disconnected", body["database"])
}

func TestAdmin_TokenRequired(t *testing.T) {
	store, _ := cachetest.New(t)

	disabled := setupRouter(t, fakeDB{}, store, "", 0)
	assert.Equal(t, http.StatusForbidden, do(disabled, http.MethodGet, "/admin/cache/status", nil).Code)

	r := setupRouter(t, fakeDB{}, store, "s3cret", 0)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/admin/cache/status", nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(r, http.MethodGet, "/admin/cache/status", map[string]string{AdminTokenHeader: "nope"}).Code)

	w := do(r, http.MethodGet, "/admin/cache/status", map[string]string{AdminTokenHeader: "s3cret"})
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, true, data["available"])
	assert.Equal(t, "connected", data["state"])
}

func TestAdmin_ClearNamespace(t *testing.T) {
	store, mr := cachetest.New(t)
	ctx := context.Background()
	require.True(t, store.Set(ctx, "session:a", "x", time.Minute).Ok())
	require.True(t, store.Set(ctx, "session:b", "y", time.Minute).Ok())
	require.True(t, store.Set(ctx, "user:1", "z", time.Minute).Ok())

	r := setupRouter(t, fakeDB{}, store, "tok", 0)
	auth := map[string]string{AdminTokenHeader: "tok"}

	w := do(r, http.MethodDelete, "/admin/cache/namespaces/session", auth)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.EqualValues(t, 2, data["deleted"])
	assert.False(t, mr.Exists("session:a"))
	assert.True(t, mr.Exists("user:1"))

	w = do(r, http.MethodDelete, "/admin/cache/namespaces/bogus", auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_Reconnect(t *testing.T) {
	store, mr := cachetest.New(t)
	r := setupRouter(t, fakeDB{}, store, "tok", 0)
	auth := map[string]string{AdminTokenHeader: "tok"}

	mr.Close()
	require.NoError(t, mr.Restart())

	w := do(r, http.MethodPost, "/admin/cache/reconnect", auth)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["data"].(map[string]interface{})["available"])
}

func TestRateLimit_BlocksAfterLimit(t *testing.T) {
	store, _ := cachetest.New(t)
	r := setupRouter(t, fakeDB{}, store, "", 2)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", nil).Code)
	w := do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limited")
}

func doFrom(r http.Handler, peer, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = peer + ":40000"
	req.Header.Set("X-Forwarded-For", forwardedFor)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	store, mr := cachetest.New(t)
	r := setupRouter(t, fakeDB{}, store, "", 2)

	var codes []int
	for i := 0; i < 6; i++ {
		codes = append(codes, doFrom(r, "10.0.0.1", fmt.Sprintf("203.0.113.%d", i)))
	}

	assert.Equal(t, []int{200, 200, 429, 429, 429, 429}, codes)
	assert.True(t, mr.Exists("rate_limit:10.0.0.1"))
	assert.False(t, mr.Exists("rate_limit:203.0.113.0"))
}

func TestRateLimit_TrustedProxyForwardsClientIP(t *testing.T) {
	store, mr := cachetest.New(t)
	r := setupRouter(t, fakeDB{}, store, "", 1, "10.0.0.1")

	assert.Equal(t, http.StatusOK, doFrom(r, "10.0.0.1", "203.0.113.7"))
	assert.Equal(t, http.StatusOK, doFrom(r, "10.0.0.1", "203.0.113.8"))
	assert.Equal(t, http.StatusTooManyRequests, doFrom(r, "10.0.0.1", "203.0.113.7"))
	assert.True(t, mr.Exists("rate_limit:203.0.113.7"))
}

func TestNewRouter_RejectsInvalidProxy(t *testing.T) {
	_, err := NewRouter(zap.NewNop(), []string{"not-an-ip"})
	assert.Error(t, err)
}

func TestRateLimit_FailsOpenWithoutCache(t *testing.T) {
	r := setupRouter(t, fakeDB{}, cachetest.Down(t), "", 1)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", nil).Code)
	}
}

func TestRequestLogger_PropagatesRequestID(t *testing.T) {
	store, _ := cachetest.New(t)
	r := setupRouter(t, fakeDB{}, store, "", 0)

	w := do(r, http.MethodGet, "/health", map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = do(r, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	store, _ := cachetest.New(t, cache.WithMetrics(cache.NewMetrics(reg)))
	store.Get(context.Background(), "cache:missing")

	r := gin.New()
	RegisterPlatformRoutes(r, NewHealthHandler(fakeDB{}, store, zap.NewNop()), NewAdminHandler(store, zap.NewNop()), "", reg)

	w := do(r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "tripcache_"), w.Body.String())
}
