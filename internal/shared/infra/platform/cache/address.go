package cache

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// DefaultURL se usa cuando no hay dirección configurada o no es válida.
	DefaultURL = "redis://localhost:6380"
	// Puerto Redis nativo de Upstash; la URL https:// apunta a su API REST.
	upstashRedisPort = "6379"
)

// Options configura la conexión y la política de reintentos del Store.
type Options struct {
	URL   string
	Token string // contraseña si la URL no la trae (UPSTASH_REDIS_TOKEN)

	SocketTimeout  time.Duration
	ConnectTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	PoolSize       int

	TLSInsecureSkipVerify bool
}

// DefaultOptions: 5s de socket, 5s de conexión, 3 intentos separados 1s.
func DefaultOptions() Options {
	return Options{
		URL:            DefaultURL,
		SocketTimeout:  5 * time.Second,
		ConnectTimeout: 5 * time.Second,
		MaxRetries:     3,
		RetryDelay:     time.Second,
		PoolSize:       10,
	}
}

// NormalizeURL lleva cualquier formato aceptado al esquema nativo redis:// o rediss://.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultURL, nil
	}

	switch {
	case strings.HasPrefix(raw, "redis://"), strings.HasPrefix(raw, "rediss://"):
		return raw, nil
	case strings.HasPrefix(raw, "https://"):
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("parse upstash url: %w", err)
		}
		password, hasPassword := u.User.Password()
		if u.User == nil || u.User.Username() == "" || !hasPassword || password == "" || u.Hostname() == "" {
			return "", fmt.Errorf("upstash url needs user, password and host")
		}
		native := url.URL{
			Scheme: "rediss",
			User:   url.UserPassword(u.User.Username(), password),
			Host:   u.Hostname() + ":" + upstashRedisPort,
		}
		return native.String(), nil
	default:
		return "", fmt.Errorf("unrecognized redis url scheme in %q", redact(raw))
	}
}

// ResolveOptions traduce Options a las opciones de go-redis. TLS queda activado
// cuando la URL normalizada usa rediss://.
func ResolveOptions(o Options) (*redis.Options, error) {
	native, err := NormalizeURL(o.URL)
	if err != nil {
		return nil, err
	}

	opt, err := redis.ParseURL(native)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if opt.Password == "" && o.Token != "" {
		opt.Password = o.Token
		if opt.Username == "" {
			opt.Username = "default"
		}
	}

	opt.DialTimeout = o.ConnectTimeout
	opt.ReadTimeout = o.SocketTimeout
	opt.WriteTimeout = o.SocketTimeout
	if o.PoolSize > 0 {
		opt.PoolSize = o.PoolSize
	}
	// Un comando bloquea como mucho SocketTimeout: sin reintentos internos de go-redis.
	opt.MaxRetries = -1

	if opt.TLSConfig != nil && o.TLSInsecureSkipVerify {
		opt.TLSConfig.InsecureSkipVerify = true
	}
	if opt.TLSConfig != nil && opt.TLSConfig.MinVersion == 0 {
		opt.TLSConfig.MinVersion = tls.VersionTLS12
	}
	return opt, nil
}

// redact oculta la contraseña para poder loguear una URL.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
