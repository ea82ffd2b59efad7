package utils

import (
	"context"
	"time"
)

// Retry ejecuta fn hasta 'attempts' veces con una espera fija entre intentos.
// No espera después del último intento fallido. Devuelve el último error,
// o ctx.Err() si el contexto se cancela durante una espera.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func(attempt int) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		err = fn(i)
		if err == nil {
			return nil
		}
		if i == attempts {
			break
		}

		select {
		case <-time.After(delay):
			// espera antes del siguiente intento
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
