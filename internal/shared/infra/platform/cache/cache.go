// Package cache implementa la capa de caché resiliente sobre Redis: conexión con
// reintentos, serialización etiquetada, namespaces de claves, operaciones por lotes
// con pipeline y un contrato "fail-soft": si Redis no está, cada operación devuelve
// su valor neutro en lugar de romper al llamador.
package cache

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConnState refleja la última observación sobre la conexión con Redis.
type ConnState int32

const (
	StateUnknown ConnState = iota
	StateConnected
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Option personaliza un Store.
type Option func(*Store)

// WithMetrics registra contadores de operaciones.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock sustituye time.Now (marcas de actualización de tasas).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Metrics cuenta operaciones por resultado: hit, miss, ok o la clase de error.
type Metrics struct {
	ops *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripcache",
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Cache operations by name and outcome.",
		}, []string{"op", "outcome"}),
	}
	reg.MustRegister(m.ops)
	return m
}

func (m *Metrics) observe(op, outcome string) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op, outcome).Inc()
}
