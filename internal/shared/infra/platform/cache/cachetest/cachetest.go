// Package cachetest levanta un Store contra un Redis en memoria para tests de
// los paquetes que usan la caché.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"github.com/davicafu/tripcache/internal/shared/infra/platform/cache"
)

// New devuelve un Store conectado a un miniredis que se cierra al acabar el test.
func New(t testing.TB, options ...cache.Option) (*cache.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := cache.New(context.Background(), cache.Options{
		URL:            "redis://" + mr.Addr(),
		MaxRetries:     1,
		ConnectTimeout: time.Second,
	}, zap.NewNop(), options...)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

// Down devuelve un Store que nunca llegó a conectar.
func Down(t testing.TB) *cache.Store {
	t.Helper()
	s := cache.New(context.Background(), cache.Options{
		URL:            "redis://127.0.0.1:1",
		MaxRetries:     1,
		ConnectTimeout: 100 * time.Millisecond,
	}, zap.NewNop())
	t.Cleanup(func() { _ = s.Close() })
	return s
}
