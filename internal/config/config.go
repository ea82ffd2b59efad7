package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/davicafu/tripcache/internal/shared/infra/platform/cache"
)

type Config struct {
	// Caché
	Cache cache.Options

	// Persistencia y servidor
	DatabaseURL string
	HTTPPort    string
	LogLevel    string

	// Tipos de cambio
	ExchangeRateAPIKey  string
	ExchangeRateBaseURL string
	DefaultCurrency     string

	// Eventos
	UseKafka     bool
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Administración y límites
	AdminToken        string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// TrustedProxies son los únicos peers cuyo X-Forwarded-For se acepta. Vacío: ninguno.
	TrustedProxies []string
}

func LoadConfig() *Config {
	getEnv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	defaults := cache.DefaultOptions()

	return &Config{
		Cache: cache.Options{
			URL:                   getEnv("UPSTASH_REDIS_URL", cache.DefaultURL),
			Token:                 os.Getenv("UPSTASH_REDIS_TOKEN"),
			SocketTimeout:         getDuration("REDIS_SOCKET_TIMEOUT", defaults.SocketTimeout),
			ConnectTimeout:        getDuration("REDIS_CONNECT_TIMEOUT", defaults.ConnectTimeout),
			MaxRetries:            getInt("REDIS_MAX_RETRIES", defaults.MaxRetries),
			RetryDelay:            getDuration("REDIS_RETRY_DELAY", defaults.RetryDelay),
			PoolSize:              getInt("REDIS_POOL_SIZE", defaults.PoolSize),
			TLSInsecureSkipVerify: getBool("REDIS_TLS_INSECURE", false),
		},

		DatabaseURL: getEnv("DATABASE_URL", "sqlite://./tripcache.db"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		ExchangeRateAPIKey:  os.Getenv("EXCHANGERATE_API_KEY"),
		ExchangeRateBaseURL: getEnv("EXCHANGERATE_BASE_URL", "https://v6.exchangerate-api.com"),
		DefaultCurrency:     strings.ToUpper(getEnv("DEFAULT_CURRENCY", "MYR")),

		UseKafka:     getBool("USE_KAFKA", false),
		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "user-events"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "tripcache-user-cache"),

		AdminToken:        os.Getenv("ADMIN_TOKEN"),
		RateLimitRequests: getInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDuration("RATE_LIMIT_WINDOW", time.Minute),
		TrustedProxies:    splitList(os.Getenv("TRUSTED_PROXIES")),
	}
}

// getDuration acepta "1500ms", "5s"... o un número entero de segundos.
func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return b
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
