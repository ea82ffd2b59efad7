package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/davicafu/tripcache/internal/shared/infra/utils"
)

// Store es el único punto de acceso a Redis. Es seguro para uso concurrente:
// el pool de go-redis se comparte y la atomicidad de cada comando la da Redis.
type Store struct {
	opts    Options
	log     *zap.Logger
	metrics *Metrics
	now     func() time.Time

	mu     sync.RWMutex
	client *redis.Client
	state  atomic.Int32
}

// New crea el Store y ejecuta la secuencia de conexión. Nunca falla: si Redis no
// responde tras los reintentos, el Store queda desconectado y todas sus
// operaciones devuelven valores neutros.
func New(ctx context.Context, opts Options, log *zap.Logger, options ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{opts: withDefaults(opts), log: log, now: time.Now}
	for _, o := range options {
		o(s)
	}
	s.connect(ctx)
	return s
}

func withDefaults(o Options) Options {
	d := DefaultOptions()
	if o.SocketTimeout <= 0 {
		o.SocketTimeout = d.SocketTimeout
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = d.ConnectTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = d.MaxRetries
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = d.RetryDelay
	}
	if o.PoolSize <= 0 {
		o.PoolSize = d.PoolSize
	}
	return o
}

// connect resuelve la dirección, abre un cliente y lo valida con PING hasta
// MaxRetries veces. Sustituye (y cierra) el cliente anterior.
func (s *Store) connect(ctx context.Context) bool {
	redisOpts, err := ResolveOptions(s.opts)
	if err != nil {
		s.log.Error("invalid cache address, using local default",
			zap.String("default", DefaultURL), zap.Error(err))
		fallback := s.opts
		fallback.URL = DefaultURL
		if redisOpts, err = ResolveOptions(fallback); err != nil {
			s.swap(nil, StateDisconnected)
			return false
		}
	}

	s.log.Debug("connecting to cache", zap.String("addr", redisOpts.Addr), zap.Bool("tls", redisOpts.TLSConfig != nil))
	client := redis.NewClient(redisOpts)

	err = utils.Retry(ctx, s.opts.MaxRetries, s.opts.RetryDelay, func(attempt int) error {
		pingCtx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
		defer cancel()

		if err := client.Ping(pingCtx).Err(); err != nil {
			s.log.Warn("cache connection attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", s.opts.MaxRetries),
				zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		s.log.Error("❌ cache unreachable after max retries, running without cache", zap.Error(err))
		_ = client.Close()
		s.swap(nil, StateDisconnected)
		return false
	}

	s.log.Info("✅ cache connected", zap.String("addr", redisOpts.Addr))
	s.swap(client, StateConnected)
	return true
}

func (s *Store) swap(client *redis.Client, state ConnState) {
	s.mu.Lock()
	old := s.client
	s.client = client
	s.state.Store(int32(state))
	s.mu.Unlock()

	if old != nil && old != client {
		_ = old.Close()
	}
}

func (s *Store) handle() *redis.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// State devuelve el último estado observado de la conexión.
func (s *Store) State() ConnState {
	return ConnState(s.state.Load())
}

// do ejecuta fn contra el cliente actual y convierte cualquier fallo en un *Error
// ya logueado. Es el equivalente explícito del antiguo decorador que tragaba errores.
func (s *Store) do(ctx context.Context, op string, fn func(ctx context.Context, c *redis.Client) error) error {
	c := s.handle()
	if c == nil {
		s.log.Debug("cache operation skipped", zap.String("op", op), zap.Error(ErrUnavailable))
		s.metrics.observe(op, KindConnection.String())
		return &Error{Op: op, Kind: KindConnection, Err: ErrUnavailable}
	}

	if err := fn(ctx, c); err != nil {
		kind := classify(err)
		if kind == KindConnection {
			s.markState(c, StateDisconnected)
		}
		return s.failure(op, kind, err)
	}

	s.markState(c, StateConnected)
	return nil
}

// markState actualiza el estado sólo si c sigue siendo el cliente vigente. Un
// comando que termina sobre un cliente ya sustituido por Reconnect no lo pisa.
func (s *Store) markState(c *redis.Client, state ConnState) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == c {
		s.state.Store(int32(state))
	}
}

func (s *Store) failure(op string, kind ErrorKind, err error) error {
	s.log.Warn("cache operation failed",
		zap.String("op", op),
		zap.Stringer("kind", kind),
		zap.Error(err))
	s.metrics.observe(op, kind.String())
	return &Error{Op: op, Kind: kind, Err: err}
}

// invalid devuelve un error de validación sin tocar el backend.
func (s *Store) invalid(op string, err error) error {
	s.metrics.observe(op, KindValidation.String())
	return &Error{Op: op, Kind: KindValidation, Err: err}
}

func (s *Store) decode(op, key string, raw []byte) Value {
	v, ok := decode(raw)
	if !ok {
		// Payload JSON corrupto: se devuelve el texto crudo en lugar de fallar.
		s.log.Warn("cache value is not valid json, returning raw text",
			zap.String("op", op), zap.String("key", key), zap.Stringer("kind", KindSerialization))
	}
	return v
}

// normTTL: en go-redis v8 una expiración negativa significa KEEPTTL; aquí ttl <= 0 es "sin expiración".
func normTTL(ttl time.Duration) time.Duration {
	if ttl < 0 {
		return 0
	}
	return ttl
}

// ---------------- Operaciones básicas ----------------

// Set guarda value bajo key. Textos y []byte se guardan como texto, enteros como
// contador nativo y el resto serializado a JSON. ttl <= 0 no expira.
func (s *Store) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) Result[bool] {
	const op = "set"
	if err := validateKey(key); err != nil {
		return failResult(false, s.invalid(op, err))
	}
	payload, err := encode(value)
	if errors.Is(err, ErrNilValue) {
		return failResult(false, s.invalid(op, err))
	}
	if err != nil {
		return failResult(false, s.failure(op, KindSerialization, err))
	}

	if err := s.do(ctx, op, func(ctx context.Context, c *redis.Client) error {
		return c.Set(ctx, key, payload, normTTL(ttl)).Err()
	}); err != nil {
		return failResult(false, err)
	}
	s.metrics.observe(op, "ok")
	return okResult(true)
}

// Get devuelve el valor guardado o un Value ausente si no existe o expiró.
func (s *Store) Get(ctx context.Context, key string) Result[Value] {
	const op = "get"
	if err := validateKey(key); err != nil {
		return failResult(Value{}, s.invalid(op, err))
	}

	var (
		raw   []byte
		found bool
	)
	if err := s.do(ctx, op, func(ctx context.Context, c *redis.Client) error {
		b, err := c.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		raw, found = b, true
		return nil
	}); err != nil {
		return failResult(Value{}, err)
	}

	if !found {
		s.metrics.observe(op, "miss")
		return okResult(Value{})
	}
	s.metrics.observe(op, "hit")
	return okResult(s.decode(op, key, raw))
}

// Delete borra key. Borrar una clave inexistente también es éxito.
func (s *Store) Delete(ctx context.Context, key string) Result[bool] {
	const op = "delete"
	if err := validateKey(key); err != nil {
		return failResult(false, s.invalid(op, err))
	}
	if err := s.do(ctx, op, func(ctx context.Context, c *redis.Client) error {
		return c.Del(ctx, key).Err()
	}); err != nil {
		return failResult(false, err)
	}
	s.metrics.observe(op, "ok")
	return okResult(true)
}

func (s *Store) Exists(ctx context.Context, key string) Result[bool] {
	const op = "exists"
	if err := validateKey(key); err != nil {
		return failResult(false, s.invalid(op, err))
	}
	var n int64
	if err := s.do(ctx, op, func(ctx context.Context, c *redis.Client) error {
		var err error
		n, err = c.Exists(ctx, key).Result()
		return err
	}); err != nil {
		return failResult(false, err)
	}
	s.metrics.observe(op, "ok")
	return okResult(n > 0)
}

// Expire fija o renueva el TTL de una clave existente. Devuelve false si la clave no existe.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) Result[bool] {
	const op = "expire"
	if err := validateKey(key); err != nil {
		return failResult(false, s.invalid(op, err))
	}
	if ttl <= 0 {
		return failResult(false, s.invalid(op, ErrInvalidTTL))
	}
	var updated bool
	if err := s.do(ctx, op, func(ctx context.Context, c *redis.Client) error {
		var err error
		updated, err = c.Expire(ctx, key, ttl).Result()
		return err
	}); err != nil {
		return failResult(false, err)
	}
	s.metrics.observe(op, "ok")
	return okResult(updated)
}

// Increment incrementa atómicamente el contador y devuelve el nuevo valor.
// Falla (KindProtocol) si la clave guarda algo que no es un entero.
func (s *Store) Increment(ctx context.Context, key string) Result[int64] {
	const op = "increment"
	if err := validateKey(key); err != nil {
		return failResult(int64(0), s.invalid(op, err))
	}
	var n int64
	if err := s.do(ctx, op, func(ctx context.Context, c *redis.Client) error {
		var err error
		n, err = c.Incr(ctx, key).Result()
		return err
	}); err != nil {
		return failResult(int64(0), err)
	}
	s.metrics.observe(op, "ok")
	return okResult(n)
}

// Producer calcula el valor cuando hay un miss. Devolver nil significa "no hay valor"
// y no se guarda nada.
type Producer func(ctx context.Context) (interface{}, error)

// GetWithFallback implementa cache-aside: si key está en caché se devuelve; si no,
// se llama a producer una vez, se guarda su resultado con ttl y se devuelve.
// Con misses concurrentes sobre la misma clave producer puede ejecutarse más de
// una vez; la caché es una optimización, no la fuente de verdad.
func (s *Store) GetWithFallback(ctx context.Context, key string, producer Producer, ttl time.Duration) Result[Value] {
	const op = "get_with_fallback"
	cached := s.Get(ctx, key)
	if cached.Kind() == KindValidation {
		return cached
	}
	if cached.Val().Present() {
		return cached
	}

	produced, err := producer(ctx)
	if err != nil {
		s.metrics.observe(op, KindFallback.String())
		return failResult(Value{}, &Error{Op: op, Kind: KindFallback, Err: err})
	}
	if produced == nil {
		return okResult(Value{})
	}

	payload, err := encode(produced)
	if err != nil {
		return failResult(Value{}, s.failure(op, KindSerialization, err))
	}
	v, _ := decode(payload)

	// Un fallo al escribir ya queda logueado por Set; el valor se devuelve igual.
	_ = s.Set(ctx, key, v, ttl)
	return okResult(v)
}

// GetStatus hace un PING. Nunca falla: cualquier error es false.
func (s *Store) GetStatus(ctx context.Context) bool {
	err := s.do(ctx, "ping", func(ctx context.Context, c *redis.Client) error {
		return c.Ping(ctx).Err()
	})
	return err == nil
}

// Reconnect repite la secuencia de conexión y devuelve la nueva disponibilidad.
func (s *Store) Reconnect(ctx context.Context) bool {
	s.log.Info("🔄 reconnecting cache")
	s.connect(ctx)
	return s.GetStatus(ctx)
}

// EnsureConnection reconecta sólo si el PING falla.
func (s *Store) EnsureConnection(ctx context.Context) bool {
	if s.GetStatus(ctx) {
		return true
	}
	s.log.Warn("cache connection lost, attempting to reconnect")
	return s.Reconnect(ctx)
}

// ClearAll vacía la base de datos entera. Sólo para contextos administrativos o tests.
func (s *Store) ClearAll(ctx context.Context) Result[bool] {
	const op = "clear_all"
	if err := s.do(ctx, op, func(ctx context.Context, c *redis.Client) error {
		return c.FlushDB(ctx).Err()
	}); err != nil {
		return failResult(false, err)
	}
	s.log.Warn("⚠️ cache cleared entirely")
	s.metrics.observe(op, "ok")
	return okResult(true)
}

// Close libera el cliente. El Store queda desconectado.
func (s *Store) Close() error {
	s.mu.Lock()
	c := s.client
	s.client = nil
	s.state.Store(int32(StateDisconnected))
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	return c.Close()
}
