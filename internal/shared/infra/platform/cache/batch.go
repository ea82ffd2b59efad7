package cache

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const scanCount = 500

// GetMany lee todas las claves con un único MGET. Las que no existen quedan
// como Value ausente en el mapa.
func (s *Store) GetMany(ctx context.Context, keys []string) Result[map[string]Value] {
	const op = "get_many"
	out := make(map[string]Value, len(keys))
	for _, k := range keys {
		if err := validateKey(k); err != nil {
			return failResult(map[string]Value{}, s.invalid(op, err))
		}
	}
	if len(keys) == 0 {
		return okResult(out)
	}

	var values []interface{}
	if err := s.do(ctx, op, func(ctx context.Context, c *redis.Client) error {
		var err error
		values, err = c.MGet(ctx, keys...).Result()
		return err
	}); err != nil {
		return failResult(map[string]Value{}, err)
	}

	for i, key := range keys {
		var raw []byte
		switch v := values[i].(type) {
		case string:
			raw = []byte(v)
		case []byte:
			raw = v
		default:
			out[key] = Value{}
			continue
		}
		out[key] = s.decode(op, key, raw)
	}
	s.metrics.observe(op, "ok")
	return okResult(out)
}

// SetMany escribe todas las entradas en un único pipeline, en orden de clave.
// Devuelve el éxito por clave; una entrada que no se puede serializar queda en
// false sin impedir el resto.
func (s *Store) SetMany(ctx context.Context, entries map[string]interface{}, ttl time.Duration) Result[map[string]bool] {
	const op = "set_many"
	status := make(map[string]bool, len(entries))
	keys := make([]string, 0, len(entries))
	for k := range entries {
		if err := validateKey(k); err != nil {
			return failResult(status, s.invalid(op, err))
		}
		status[k] = false
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payloads := make(map[string][]byte, len(keys))
	for _, k := range keys {
		payload, err := encode(entries[k])
		if err != nil {
			s.log.Warn("cache entry skipped", zap.String("op", op), zap.String("key", k),
				zap.Stringer("kind", KindSerialization), zap.Error(err))
			continue
		}
		payloads[k] = payload
	}
	if len(payloads) == 0 {
		return okResult(status)
	}

	cmds := make(map[string]*redis.StatusCmd, len(payloads))
	err := s.do(ctx, op, func(ctx context.Context, c *redis.Client) error {
		_, err := c.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, k := range keys {
				if payload, ok := payloads[k]; ok {
					cmds[k] = pipe.Set(ctx, k, payload, normTTL(ttl))
				}
			}
			return nil
		})
		return err
	})
	for k, cmd := range cmds {
		status[k] = cmd.Err() == nil
	}
	if err != nil {
		return failResult(status, err)
	}
	s.metrics.observe(op, "ok")
	return okResult(status)
}

// ClearNamespace borra todas las claves del namespace indicado por prefix. Un
// prefijo desconocido es un error de validación y no toca el backend.
// Devuelve el número de claves borradas.
func (s *Store) ClearNamespace(ctx context.Context, prefix string) Result[int64] {
	const op = "clear_namespace"
	ns, err := ParseNamespace(prefix)
	if err != nil {
		return failResult(int64(0), s.invalid(op, err))
	}
	return s.clear(ctx, op, []Namespace{ns})
}

// clear localiza con SCAN las claves de los namespaces y las borra, junto con
// extra, en un único pipeline.
func (s *Store) clear(ctx context.Context, op string, nss []Namespace, extra ...string) Result[int64] {
	var deleted int64
	if err := s.do(ctx, op, func(ctx context.Context, c *redis.Client) error {
		keys := append([]string(nil), extra...)
		for _, ns := range nss {
			found, err := scanKeys(ctx, c, ns)
			if err != nil {
				return err
			}
			keys = append(keys, found...)
		}
		if len(keys) == 0 {
			return nil
		}

		cmds, err := c.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for start := 0; start < len(keys); start += scanCount {
				end := start + scanCount
				if end > len(keys) {
					end = len(keys)
				}
				pipe.Del(ctx, keys[start:end]...)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, cmd := range cmds {
			if del, ok := cmd.(*redis.IntCmd); ok {
				deleted += del.Val()
			}
		}
		return nil
	}); err != nil {
		return failResult(int64(0), err)
	}

	s.log.Info("cache namespaces cleared",
		zap.String("op", op),
		zap.Stringers("namespaces", nss),
		zap.Int64("deleted", deleted))
	s.metrics.observe(op, "ok")
	return okResult(deleted)
}

func scanKeys(ctx context.Context, c *redis.Client, ns Namespace) ([]string, error) {
	var keys []string
	iter := c.Scan(ctx, 0, ns.pattern(), scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	return keys, nil
}
