package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	config "github.com/davicafu/tripcache/internal/config"
	currencyApp "github.com/davicafu/tripcache/internal/currency/application"
	currencyHttp "github.com/davicafu/tripcache/internal/currency/infra/inbound/http"
	"github.com/davicafu/tripcache/internal/currency/infra/outbound/exchangerate"
	sharedBus "github.com/davicafu/tripcache/internal/shared/infra/platform/bus"
	infraEvents "github.com/davicafu/tripcache/internal/shared/infra/events"
	platformHttp "github.com/davicafu/tripcache/internal/shared/infra/http"
	"github.com/davicafu/tripcache/internal/shared/infra/platform/cache"
	"github.com/davicafu/tripcache/internal/shared/infra/platform/db"
	"github.com/davicafu/tripcache/internal/shared/infra/scheduler"
	userApp "github.com/davicafu/tripcache/internal/user/application"
	userDomain "github.com/davicafu/tripcache/internal/user/domain"
	userEvents "github.com/davicafu/tripcache/internal/user/infra/inbound/events"
	userHttp "github.com/davicafu/tripcache/internal/user/infra/inbound/http"
	userPostgres "github.com/davicafu/tripcache/internal/user/infra/outbound/db/postgre"
	userSQLite "github.com/davicafu/tripcache/internal/user/infra/outbound/db/sqlite"
	"github.com/davicafu/tripcache/pkg/logger"
)

const (
	rateRefreshInterval = time.Hour
	cacheCheckInterval  = 30 * time.Second
	shutdownTimeout     = 10 * time.Second
)

// ---------------- Main ----------------
func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.LogLevel) // inicializa zap
	log := logger.Logger()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------- DB ----------------
	conn, driver, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer conn.Close()

	var userRepo userDomain.UserRepository
	switch driver {
	case db.DriverPostgres:
		if err := userPostgres.InitPostgres(conn); err != nil {
			log.Fatal("failed to initialize Postgres", zap.Error(err))
		}
		userRepo = userPostgres.NewUserRepoPostgres(conn)
	default:
		if err := userSQLite.InitSQLite(conn); err != nil {
			log.Fatal("failed to initialize SQLite", zap.Error(err))
		}
		userRepo = userSQLite.NewUserRepoSQLite(conn)
	}
	log.Info("✅ database ready", zap.String("driver", string(driver)))

	// ---------------- Cache ----------------
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store := cache.New(ctx, cfg.Cache, log, cache.WithMetrics(cache.NewMetrics(registry)))
	defer store.Close()

	// ---------------- Events ---------------
	var (
		publisher     sharedBus.EventBus
		startConsumer func(handler infraEvents.MessageHandler) <-chan struct{}
	)

	if cfg.UseKafka {
		log.Info("🚀 Usando Kafka como bus de eventos", zap.Strings("brokers", cfg.KafkaBrokers))

		writer := infraEvents.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer writer.Close()
		publisher = infraEvents.NewKafkaPublisher(writer, log)

		reader := infraEvents.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID)
		defer reader.Close()
		startConsumer = func(handler infraEvents.MessageHandler) <-chan struct{} {
			return infraEvents.NewConsumerAdapter(reader, handler, log).Start(ctx)
		}
	} else {
		log.Info("⚡️ Usando bus de eventos en memoria (canales de Go)")

		bus := infraEvents.NewInMemoryEventBus(cfg.KafkaTopic)
		publisher = bus
		ch := bus.Subscribe(64)
		startConsumer = func(handler infraEvents.MessageHandler) <-chan struct{} {
			infraEvents.Consume(ctx, ch, handler)
			return ctx.Done()
		}
	}

	// --------------- Servicio --------------
	userService := userApp.NewUserService(userRepo, store, publisher, log)

	log.Info("🎧 Iniciando listener para eventos de usuario", zap.String("topic", cfg.KafkaTopic))
	consumerDone := startConsumer(userEvents.NewUserConsumer(userService, log))

	// --------------- Currency --------------
	rateClient := exchangerate.NewClient(cfg.ExchangeRateBaseURL, cfg.ExchangeRateAPIKey, log)
	rateService := currencyApp.NewRateService(rateClient, store, cfg.DefaultCurrency, log)

	// ------------ Workers ------------
	workers := []*scheduler.Worker{
		scheduler.NewWorker("rate-refresh", func(ctx context.Context) error {
			_, err := rateService.RefreshIfStale(ctx)
			return err
		}, rateRefreshInterval, log),
		scheduler.NewWorker("cache-connection", func(ctx context.Context) error {
			if !store.EnsureConnection(ctx) {
				return cache.ErrUnavailable
			}
			return nil
		}, cacheCheckInterval, log),
	}
	for _, w := range workers {
		go w.Start(ctx)
	}

	// ---------------- HTTP ----------------
	gin.SetMode(gin.ReleaseMode)
	router, err := platformHttp.NewRouter(log, cfg.TrustedProxies)
	if err != nil {
		log.Fatal("invalid TRUSTED_PROXIES", zap.Error(err))
	}

	platformHttp.RegisterPlatformRoutes(router,
		platformHttp.NewHealthHandler(userService, store, log),
		platformHttp.NewAdminHandler(store, log),
		cfg.AdminToken,
		registry,
	)

	api := router.Group("/", platformHttp.RateLimit(store, cfg.RateLimitRequests, cfg.RateLimitWindow, log))
	userHttp.RegisterUserRoutes(api, userHttp.NewUserHandler(userService))
	currencyHttp.RegisterCurrencyRoutes(api, currencyHttp.NewCurrencyHandler(rateService, log))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("🚀 Server running", zap.String("url", "http://localhost:"+cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("🛑 shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}

	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		log.Warn("event consumer did not stop in time")
	}
}
