package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/davicafu/tripcache/internal/currency/domain"
	"github.com/davicafu/tripcache/internal/shared/infra/platform/cache"
)

// RateService resuelve tipos de cambio con la caché delante del proveedor.
// Todas las tasas se calculan sobre la tabla de la moneda base.
type RateService struct {
	provider domain.RateProvider
	cache    domain.RateCache
	base     string
	log      *zap.Logger
}

func NewRateService(provider domain.RateProvider, c domain.RateCache, base string, log *zap.Logger) *RateService {
	if base == "" {
		base = domain.DefaultCurrency
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RateService{provider: provider, cache: c, base: strings.ToUpper(base), log: log}
}

func (s *RateService) Base() string { return s.base }

// RefreshIfStale descarga la tabla si la marca de actualización falta o tiene un día.
// Devuelve true si se descargó.
func (s *RateService) RefreshIfStale(ctx context.Context) (bool, error) {
	if !s.cache.NeedsRateUpdate(ctx) {
		return false, nil
	}
	if _, err := s.fetch(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RateService) fetch(ctx context.Context) (map[string]string, error) {
	rates, err := s.provider.Latest(ctx, s.base)
	if err != nil {
		s.log.Error("❌ exchange rate fetch failed", zap.String("base", s.base), zap.Error(err))
		return nil, fmt.Errorf("fetch rates for %s: %w", s.base, err)
	}

	// Sólo se guardan las monedas que la app sabe mostrar.
	table := make(map[string]string, len(rates))
	for code, rate := range rates {
		if domain.Supported(code) {
			table[strings.ToUpper(code)] = rate
		}
	}
	table[s.base] = "1"

	if res := s.cache.SetCurrencyRates(ctx, table, cache.DefaultRatesTTL); res.Ok() {
		s.log.Info("💱 exchange rates refreshed", zap.String("base", s.base), zap.Int("currencies", len(table)))
	}
	return table, nil
}

// Rates devuelve la tabla de la moneda base: de la caché si está, si no del proveedor.
func (s *RateService) Rates(ctx context.Context) (map[string]string, error) {
	if cached := s.cache.GetCurrencyRates(ctx); len(cached.Val()) > 0 {
		return cached.Val(), nil
	}
	return s.fetch(ctx)
}

// Rate devuelve cuántas unidades de to vale una unidad de from.
func (s *RateService) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	for _, code := range []string{from, to} {
		if !domain.Supported(code) {
			return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrUnsupportedCurrency, code)
		}
	}
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	if cached := s.cache.GetCurrencyRate(ctx, from, to).Val(); cached != "" {
		if rate, err := decimal.NewFromString(cached); err == nil {
			return rate, nil
		}
		s.log.Warn("unparsable cached rate, recomputing", zap.String("from", from), zap.String("to", to))
	}

	rates, err := s.Rates(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	rate, err := cross(rates, from, to)
	if err != nil {
		return decimal.Zero, err
	}

	s.cache.SetCurrencyRate(ctx, from, to, rate.String(), cache.DefaultRateTTL)
	return rate, nil
}

// RatesFrom devuelve la tasa de from a cada moneda de targets. Los pares ya
// cacheados salen de un único MGET; el resto se calcula con la tabla base y se
// guarda una hora.
func (s *RateService) RatesFrom(ctx context.Context, from string, targets []string) (map[string]decimal.Decimal, error) {
	from = strings.ToUpper(from)
	if !domain.Supported(from) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedCurrency, from)
	}

	out := make(map[string]decimal.Decimal, len(targets))
	pairs := make([]cache.CurrencyPair, 0, len(targets))
	for _, t := range targets {
		to := strings.ToUpper(strings.TrimSpace(t))
		if !domain.Supported(to) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedCurrency, t)
		}
		if to == from {
			out[to] = decimal.NewFromInt(1)
			continue
		}
		pairs = append(pairs, cache.CurrencyPair{From: from, To: to})
	}
	if len(pairs) == 0 {
		return out, nil
	}

	cached := s.cache.GetManyCurrencyRates(ctx, pairs).Val()
	var table map[string]string
	for _, p := range pairs {
		if rate, err := decimal.NewFromString(cached[p]); err == nil {
			out[p.To] = rate
			continue
		}
		if table == nil {
			var err error
			if table, err = s.Rates(ctx); err != nil {
				return nil, err
			}
		}
		rate, err := cross(table, p.From, p.To)
		if err != nil {
			return nil, err
		}
		s.cache.SetCurrencyRate(ctx, p.From, p.To, rate.String(), cache.DefaultRateTTL)
		out[p.To] = rate
	}
	return out, nil
}

// cross calcula from->to a partir de una tabla expresada en la moneda base.
func cross(rates map[string]string, from, to string) (decimal.Decimal, error) {
	fromRate, err := lookupRate(rates, from)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := lookupRate(rates, to)
	if err != nil {
		return decimal.Zero, err
	}
	return toRate.DivRound(fromRate, 10), nil
}

func lookupRate(rates map[string]string, code string) (decimal.Decimal, error) {
	raw, ok := rates[code]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrRateNotFound, code)
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s=%q", domain.ErrRateNotFound, code, raw)
	}
	return rate, nil
}

// Convert convierte amount de from a to y lo formatea en la moneda destino.
func (s *RateService) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*domain.Conversion, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	rate, err := s.Rate(ctx, from, to)
	if err != nil {
		return nil, err
	}

	to = strings.ToUpper(to)
	result := amount.Mul(rate)
	if info, ok := domain.Lookup(to); ok {
		result = result.Round(info.DecimalPlaces)
	}
	return &domain.Conversion{
		From:      strings.ToUpper(from),
		To:        to,
		Amount:    amount,
		Rate:      rate,
		Result:    result,
		Formatted: domain.Format(result, to),
	}, nil
}

// SupportedCurrencies devuelve el catálogo, cacheado un día.
func (s *RateService) SupportedCurrencies(ctx context.Context) []domain.CurrencyInfo {
	res := s.cache.GetWithFallback(ctx, domain.SupportedCurrenciesKey, func(context.Context) (interface{}, error) {
		return domain.Catalog(), nil
	}, 24*time.Hour)

	var out []domain.CurrencyInfo
	if err := res.Val().Decode(&out); err != nil {
		s.log.Warn("cached currency catalog unreadable, using built-in", zap.Error(err))
		return domain.Catalog()
	}
	return out
}
