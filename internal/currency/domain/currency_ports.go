package domain

import (
	"context"
	"time"

	"github.com/davicafu/tripcache/internal/shared/infra/platform/cache"
)

// ---------- Interfaces (Ports) ----------

// RateProvider obtiene las tasas de un proveedor externo. Las tasas viajan como
// texto para no perder precisión.
type RateProvider interface {
	Latest(ctx context.Context, base string) (map[string]string, error)
}

// RateCache es la parte de la caché que usa el servicio de tipos de cambio.
type RateCache interface {
	NeedsRateUpdate(ctx context.Context) bool
	SetCurrencyRates(ctx context.Context, rates map[string]string, ttl time.Duration) cache.Result[bool]
	GetCurrencyRates(ctx context.Context) cache.Result[map[string]string]
	SetCurrencyRate(ctx context.Context, from, to, rate string, ttl time.Duration) cache.Result[bool]
	GetCurrencyRate(ctx context.Context, from, to string) cache.Result[string]
	GetManyCurrencyRates(ctx context.Context, pairs []cache.CurrencyPair) cache.Result[map[cache.CurrencyPair]string]
	GetWithFallback(ctx context.Context, key string, producer cache.Producer, ttl time.Duration) cache.Result[cache.Value]
}

var _ RateCache = (*cache.Store)(nil)

// SupportedCurrenciesKey guarda el catálogo serializado.
var SupportedCurrenciesKey = cache.NamespaceCache.Key("supported_currencies")
