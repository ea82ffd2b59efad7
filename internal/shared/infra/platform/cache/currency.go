package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// CurrencyRatesKey guarda la tabla completa código -> tasa (texto).
	CurrencyRatesKey = "currency:rates"
	// RatesLastUpdateKey guarda cuándo se escribió la tabla por última vez.
	RatesLastUpdateKey = "rates_last_update"

	DefaultRatesTTL = 24 * time.Hour
	DefaultRateTTL  = time.Hour
	ratesMaxAge     = 24 * time.Hour
)

// CurrencyPair identifica una tasa de conversión.
type CurrencyPair struct {
	From string
	To   string
}

func (p CurrencyPair) String() string { return p.From + ":" + p.To }

// NormalizeCurrency valida un código ISO de 3 letras y lo pasa a mayúsculas.
func NormalizeCurrency(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
		}
	}
	return c, nil
}

// RateKey devuelve la clave rate:{FROM}:{TO}.
func RateKey(from, to string) (string, error) {
	f, err := NormalizeCurrency(from)
	if err != nil {
		return "", err
	}
	t, err := NormalizeCurrency(to)
	if err != nil {
		return "", err
	}
	return NamespaceRate.Key(f, t), nil
}

// SetCurrencyRates guarda la tabla de tasas (como texto, para no perder precisión)
// y la marca rates_last_update en una sola transacción. ttl <= 0 usa 24h.
func (s *Store) SetCurrencyRates(ctx context.Context, rates map[string]string, ttl time.Duration) Result[bool] {
	const op = "set_currency_rates"
	if ttl <= 0 {
		ttl = DefaultRatesTTL
	}

	table := make(map[string]string, len(rates))
	for code, rate := range rates {
		c, err := NormalizeCurrency(code)
		if err != nil {
			return failResult(false, s.invalid(op, err))
		}
		table[c] = strings.TrimSpace(rate)
	}

	payload, err := encode(table)
	if err != nil {
		return failResult(false, s.failure(op, KindSerialization, err))
	}
	stamp, _ := encode(s.now().UTC().Format(time.RFC3339Nano))

	if err := s.do(ctx, op, func(ctx context.Context, c *redis.Client) error {
		_, err := c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, CurrencyRatesKey, payload, ttl)
			pipe.Set(ctx, RatesLastUpdateKey, stamp, 0)
			return nil
		})
		return err
	}); err != nil {
		return failResult(false, err)
	}
	s.metrics.observe(op, "ok")
	return okResult(true)
}

// GetCurrencyRates devuelve la tabla cacheada, o nil si no existe.
func (s *Store) GetCurrencyRates(ctx context.Context) Result[map[string]string] {
	const op = "get_currency_rates"
	res := s.Get(ctx, CurrencyRatesKey)
	if !res.Ok() {
		return failResult(map[string]string(nil), res.Err())
	}
	v := res.Val()
	if !v.Present() {
		return okResult(map[string]string(nil))
	}

	table, err := ratesFromJSON(v.Bytes())
	if err != nil {
		return failResult(map[string]string(nil), s.failure(op, KindSerialization, err))
	}
	return okResult(table)
}

// ratesFromJSON acepta tasas guardadas como texto o como número JSON, y siempre
// devuelve el texto exacto.
func ratesFromJSON(data []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	table := make(map[string]string, len(raw))
	for code, rate := range raw {
		switch r := rate.(type) {
		case string:
			table[code] = r
		case json.Number:
			table[code] = r.String()
		default:
			return nil, fmt.Errorf("rate for %s has unexpected type %T", code, rate)
		}
	}
	return table, nil
}

// SetCurrencyRate guarda una tasa individual como texto. ttl <= 0 usa 1h.
func (s *Store) SetCurrencyRate(ctx context.Context, from, to, rate string, ttl time.Duration) Result[bool] {
	key, err := RateKey(from, to)
	if err != nil {
		return failResult(false, s.invalid("set_currency_rate", err))
	}
	if ttl <= 0 {
		ttl = DefaultRateTTL
	}
	return s.Set(ctx, key, strings.TrimSpace(rate), ttl)
}

// GetCurrencyRate devuelve la tasa como texto, o "" si no está cacheada.
func (s *Store) GetCurrencyRate(ctx context.Context, from, to string) Result[string] {
	key, err := RateKey(from, to)
	if err != nil {
		return failResult("", s.invalid("get_currency_rate", err))
	}
	res := s.Get(ctx, key)
	if !res.Ok() {
		return failResult("", res.Err())
	}
	return okResult(res.Val().String())
}

// GetManyCurrencyRates lee varias tasas con un único MGET. Las ausentes quedan como "".
func (s *Store) GetManyCurrencyRates(ctx context.Context, pairs []CurrencyPair) Result[map[CurrencyPair]string] {
	const op = "get_many_currency_rates"
	out := make(map[CurrencyPair]string, len(pairs))
	keys := make([]string, len(pairs))
	for i, p := range pairs {
		key, err := RateKey(p.From, p.To)
		if err != nil {
			return failResult(map[CurrencyPair]string{}, s.invalid(op, err))
		}
		keys[i] = key
	}

	res := s.GetMany(ctx, keys)
	if !res.Ok() {
		return failResult(map[CurrencyPair]string{}, res.Err())
	}
	values := res.Val()
	for i, p := range pairs {
		out[p] = values[keys[i]].String()
	}
	return okResult(out)
}

// NeedsRateUpdate es true si la tabla nunca se escribió, la marca es ilegible,
// tiene un día o más, o la caché no está disponible.
func (s *Store) NeedsRateUpdate(ctx context.Context) bool {
	res := s.Get(ctx, RatesLastUpdateKey)
	if !res.Ok() || !res.Val().Present() {
		return true
	}

	last, err := time.Parse(time.RFC3339Nano, res.Val().String())
	if err != nil {
		_ = s.failure("needs_rate_update", KindSerialization, err)
		return true
	}
	return s.now().Sub(last) >= ratesMaxAge
}

// ClearCurrencyCache borra la tabla, las tasas individuales y la marca de actualización.
func (s *Store) ClearCurrencyCache(ctx context.Context) Result[int64] {
	return s.clear(ctx, "clear_currency_cache",
		[]Namespace{NamespaceCurrency, NamespaceRate}, RatesLastUpdateKey)
}
