package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Namespace es el prefijo fijo de una categoría de claves. Todas las claves de
// una categoría lo comparten, así que borrar por prefijo no toca otras categorías.
type Namespace string

const (
	NamespaceCache     Namespace = "cache:"
	NamespaceUser      Namespace = "user:"
	NamespaceCurrency  Namespace = "currency:"
	NamespaceRate      Namespace = "rate:"
	NamespaceRateLimit Namespace = "rate_limit:"
	NamespaceSession   Namespace = "session:"
	NamespaceTemp      Namespace = "temp:"
)

var namespaces = map[Namespace]struct{}{
	NamespaceCache:     {},
	NamespaceUser:      {},
	NamespaceCurrency:  {},
	NamespaceRate:      {},
	NamespaceRateLimit: {},
	NamespaceSession:   {},
	NamespaceTemp:      {},
}

// Namespaces devuelve las categorías conocidas, ordenadas.
func Namespaces() []Namespace {
	out := make([]Namespace, 0, len(namespaces))
	for ns := range namespaces {
		out = append(out, ns)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseNamespace acepta "user" o "user:". Un prefijo desconocido es un error de validación.
func ParseNamespace(prefix string) (Namespace, error) {
	p := strings.TrimSpace(prefix)
	if p == "" {
		return "", fmt.Errorf("%w: empty prefix", ErrInvalidNamespace)
	}
	if !strings.HasSuffix(p, ":") {
		p += ":"
	}
	ns := Namespace(p)
	if _, ok := namespaces[ns]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidNamespace, prefix)
	}
	return ns, nil
}

// Key construye una clave dentro del namespace: Key("a", "b") -> "ns:a:b".
func (n Namespace) Key(parts ...string) string {
	return string(n) + strings.Join(parts, ":")
}

// Contains indica si key pertenece al namespace.
func (n Namespace) Contains(key string) bool {
	return strings.HasPrefix(key, string(n))
}

func (n Namespace) pattern() string {
	return string(n) + "*"
}

func (n Namespace) String() string { return string(n) }

const maxKeyLen = 1024

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if len(key) > maxKeyLen {
		return fmt.Errorf("%w: %d bytes", ErrKeyTooLong, len(key))
	}
	return nil
}
