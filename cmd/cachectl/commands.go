package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/davicafu/tripcache/internal/config"
	"github.com/davicafu/tripcache/internal/shared/infra/platform/cache"
	"github.com/davicafu/tripcache/pkg/logger"
)

const commandTimeout = 30 * time.Second

var errCacheUnavailable = errors.New("cache unavailable")

// withStore abre la caché, ejecuta fn y la cierra.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, s *cache.Store, out io.Writer) error) error {
	logger.Init(logLevel)
	opts := config.LoadConfig().Cache
	if redisURL != "" {
		opts.URL = redisURL
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	s := cache.New(ctx, opts, logger.Logger())
	defer s.Close()

	return fn(ctx, s, cmd.OutOrStdout())
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Comprueba la conexión con Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, s *cache.Store, out io.Writer) error {
				if !s.GetStatus(ctx) {
					return errCacheUnavailable
				}
				fmt.Fprintln(out, "PONG")
				return nil
			})
		},
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Muestra el valor guardado en KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *cache.Store, out io.Writer) error {
				v, err := s.Get(ctx, args[0]).Result()
				if err != nil {
					return err
				}
				if !v.Present() {
					fmt.Fprintln(out, "(nil)")
					return nil
				}
				fmt.Fprintf(out, "%s\t%s\n", v.Type(), v.String())
				return nil
			})
		},
	}
}

func delCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del KEY...",
		Short: "Borra una o más claves",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *cache.Store, out io.Writer) error {
				// Delete es éxito también sin clave: el recuento sale de Exists.
				var deleted int
				for _, key := range args {
					existed, err := s.Exists(ctx, key).Result()
					if err != nil {
						return err
					}
					if err := s.Delete(ctx, key).Err(); err != nil {
						return err
					}
					if existed {
						deleted++
					}
				}
				fmt.Fprintf(out, "deleted %d key(s)\n", deleted)
				return nil
			})
		},
	}
}

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear NAMESPACE...",
		Short: "Borra todas las claves de uno o más namespaces (user, rate, session...)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *cache.Store, out io.Writer) error {
				return clearNamespaces(ctx, s, out, args...)
			})
		},
	}
}

func sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "Borra las sesiones y los datos temporales",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, s *cache.Store, out io.Writer) error {
				return clearNamespaces(ctx, s, out, cache.NamespaceSession.String(), cache.NamespaceTemp.String())
			})
		},
	}
}

func currencyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "currency",
		Short: "Borra la tabla de tipos de cambio y los pares cacheados",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, s *cache.Store, out io.Writer) error {
				n, err := s.ClearCurrencyCache(ctx).Result()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "currency: %d key(s) deleted\n", n)
				return nil
			})
		},
	}
}

func flushCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Vacía la base de datos de Redis entera",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				return errors.New("flush borra todas las claves: repite con --force")
			}
			return withStore(cmd, func(ctx context.Context, s *cache.Store, out io.Writer) error {
				if err := s.ClearAll(ctx).Err(); err != nil {
					return err
				}
				fmt.Fprintln(out, "OK")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Confirma el borrado total")
	return cmd
}

func clearNamespaces(ctx context.Context, s *cache.Store, out io.Writer, prefixes ...string) error {
	for _, p := range prefixes {
		n, err := s.ClearNamespace(ctx, p).Result()
		if err != nil {
			return fmt.Errorf("clear %s: %w", p, err)
		}
		fmt.Fprintf(out, "%s: %d key(s) deleted\n", p, n)
	}
	return nil
}
