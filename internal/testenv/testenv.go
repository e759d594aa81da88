// Package testenv resolves the external services integration tests run
// against. Connection parameters come from environment variables with the
// conventional defaults, so a plain local Postgres or Redis is picked up
// without configuration. Tests that find their service unreachable should
// skip rather than fail.
package testenv

import (
	"fmt"
	"os"
)

// PostgresConnString returns the connection string integration tests
// should use. DATABASE_URL wins when set; otherwise the string is built
// from the standard PG* variables.
func PostgresConnString() string {
	if connStr := os.Getenv("DATABASE_URL"); connStr != "" {
		return connStr
	}

	host := getEnvOrDefault("PGHOST", "localhost")
	port := getEnvOrDefault("PGPORT", "5432")
	user := getEnvOrDefault("PGUSER", "postgres")
	password := getEnvOrDefault("PGPASSWORD", "postgres")
	database := getEnvOrDefault("PGDATABASE", "postgres")

	if password != "" {
		return fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			user, password, host, port, database,
		)
	}
	return fmt.Sprintf(
		"postgres://%s@%s:%s/%s?sslmode=disable",
		user, host, port, database,
	)
}

// RedisAddr returns the host:port integration tests should use,
// REDIS_ADDR or the local default.
func RedisAddr() string {
	return getEnvOrDefault("REDIS_ADDR", "localhost:6379")
}

// getEnvOrDefault retrieves an environment variable or returns a default
// value if the variable is not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
