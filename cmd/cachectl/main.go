package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	redisURL string
	logLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cachectl",
		Short: "Administración de la caché de tripcache",
		Long:  "Inspecciona y limpia la caché Redis de tripcache sin pasar por la API HTTP",
	}

	rootCmd.PersistentFlags().StringVar(&redisURL, "url", "", "Redis URL (por defecto UPSTASH_REDIS_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Nivel de log")
	rootCmd.AddCommand(
		pingCmd(),
		getCmd(),
		delCmd(),
		clearCmd(),
		sessionsCmd(),
		currencyCmd(),
		flushCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
