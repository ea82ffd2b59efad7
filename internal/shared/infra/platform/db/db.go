package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// Drivers registrados por nombre en database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Driver identifica el motor detrás de DATABASE_URL.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "pgx"
)

var ErrUnsupportedScheme = errors.New("unsupported database url scheme")

// Parse separa DATABASE_URL en driver y DSN.
// "sqlite://./app.db" -> (sqlite, "./app.db"); "sqlite://:memory:" -> (sqlite, ":memory:");
// "postgres://..." y "postgresql://..." se pasan tal cual a pgx.
func Parse(url string) (Driver, string, error) {
	url = strings.TrimSpace(url)
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		dsn := strings.TrimPrefix(url, "sqlite://")
		if dsn == "" {
			return "", "", fmt.Errorf("%w: empty sqlite path", ErrUnsupportedScheme)
		}
		return DriverSQLite, dsn, nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres, url, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, url)
	}
}

// Open abre y comprueba la conexión. SQLite queda limitado a una conexión abierta:
// con :memory: cada conexión sería una base de datos distinta.
func Open(ctx context.Context, url string) (*sql.DB, Driver, error) {
	driver, dsn, err := Parse(url)
	if err != nil {
		return nil, "", err
	}

	conn, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("ping %s: %w", driver, err)
	}
	return conn, driver, nil
}
