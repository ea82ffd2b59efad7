package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/go-redis/redis/v8"
)

// ErrorKind clasifica los fallos de la caché.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	// KindConnection: no se puede alcanzar o autenticar contra el backend.
	KindConnection
	// KindProtocol: el backend responde, pero con algo inesperado.
	KindProtocol
	// KindSerialization: el valor no se puede (de)serializar.
	KindSerialization
	// KindValidation: error de programación del llamador (clave vacía, namespace desconocido...).
	KindValidation
	// KindFallback: el productor de GetWithFallback devolvió un error.
	KindFallback
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConnection:
		return "connection"
	case KindProtocol:
		return "protocol"
	case KindSerialization:
		return "serialization"
	case KindValidation:
		return "validation"
	case KindFallback:
		return "fallback"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

var (
	ErrUnavailable      = errors.New("cache backend unavailable")
	ErrEmptyKey         = errors.New("empty key")
	ErrKeyTooLong       = errors.New("key too long")
	ErrNilValue         = errors.New("nil value")
	ErrInvalidTTL       = errors.New("ttl must be positive")
	ErrInvalidNamespace = errors.New("invalid namespace")
	ErrInvalidCurrency  = errors.New("invalid currency code")
)

// Error es el fallo que devuelve cada operación de Store dentro de su Result.
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cache %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf devuelve la clase de un error producido por la caché, o KindNone.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindNone
}

// IsValidation indica si err es un error de programación del llamador.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// classify decide si un error de go-redis es de conexión o de protocolo.
// redis.Nil no debe llegar aquí: es un miss, no un fallo.
func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, redis.ErrClosed),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return KindConnection
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindConnection
	}

	// Respuestas de error del servidor (WRONGTYPE, NOAUTH...) y respuestas ilegibles.
	return KindProtocol
}
