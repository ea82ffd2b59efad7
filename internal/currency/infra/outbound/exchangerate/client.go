package exchangerate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/davicafu/tripcache/internal/currency/domain"
)

var ErrMissingAPIKey = errors.New("exchange rate api key not configured")

// leveledZap adapta zap al logger de retryablehttp. Los ERROR de reintentos
// intermedios bajan a WARN. La API key va en el path: nunca se loguea la URL.
type leveledZap struct {
	inner *zap.SugaredLogger
}

func (l leveledZap) Error(msg string, kv ...interface{}) { l.inner.Warnw(msg, scrub(kv)...) }
func (l leveledZap) Warn(msg string, kv ...interface{})  { l.inner.Warnw(msg, scrub(kv)...) }
func (l leveledZap) Info(msg string, kv ...interface{})  { l.inner.Infow(msg, scrub(kv)...) }
func (l leveledZap) Debug(msg string, kv ...interface{}) { l.inner.Debugw(msg, scrub(kv)...) }

// scrub quita los pares url/request que retryablehttp añade a sus logs.
func scrub(kv []interface{}) []interface{} {
	out := make([]interface{}, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok && (k == "url" || k == "request") {
			continue
		}
		out = append(out, kv[i], kv[i+1])
	}
	return out
}

// giveUp sustituye el error por defecto de retryablehttp, que incluye la URL.
func giveUp(resp *http.Response, err error, attempts int) (*http.Response, error) {
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		var urlErr *neturl.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("giving up after %d attempt(s): %w", attempts, err)
	}
	return nil, fmt.Errorf("giving up after %d attempt(s): status %d", attempts, resp.StatusCode)
}

// Client consulta ExchangeRate-API (v6). Implementa domain.RateProvider.
type Client struct {
	baseURL string
	apiKey  string
	http    *retryablehttp.Client
	log     *zap.Logger
}

var _ domain.RateProvider = (*Client)(nil)

type Option func(*Client)

// WithRetries ajusta reintentos y espera mínima (los tests usan valores pequeños).
func WithRetries(max int, waitMin time.Duration) Option {
	return func(c *Client) {
		c.http.RetryMax = max
		c.http.RetryWaitMin = waitMin
		if c.http.RetryWaitMax < waitMin {
			c.http.RetryWaitMax = waitMin
		}
	}
}

func NewClient(baseURL, apiKey string, log *zap.Logger, opts ...Option) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = time.Second
	rc.RetryWaitMax = 10 * time.Second
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.Logger = retryablehttp.LeveledLogger(leveledZap{log.Sugar()})
	rc.ErrorHandler = giveUp

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    rc,
		log:     log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type latestResponse struct {
	Result          string                 `json:"result"`
	ErrorType       string                 `json:"error-type"`
	BaseCode        string                 `json:"base_code"`
	ConversionRates map[string]json.Number `json:"conversion_rates"`
}

// Latest devuelve la tabla de tasas para base. Las tasas se devuelven tal cual
// vienen en el JSON, como texto.
func (c *Client) Latest(ctx context.Context, base string) (map[string]string, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	base = strings.ToUpper(base)
	url := fmt.Sprintf("%s/v6/%s/latest/%s", c.baseURL, c.apiKey, base)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange rate request %s: %w", base, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read exchange rate response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange rate api returned %d", resp.StatusCode)
	}

	var payload latestResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode exchange rate response: %w", err)
	}
	if payload.Result != "success" {
		return nil, fmt.Errorf("exchange rate api error: %s", payload.ErrorType)
	}

	rates := make(map[string]string, len(payload.ConversionRates))
	for code, rate := range payload.ConversionRates {
		rates[code] = rate.String()
	}
	c.log.Debug("exchange rates downloaded", zap.String("base", base), zap.Int("count", len(rates)))
	return rates, nil
}
