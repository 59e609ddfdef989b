package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"
)

// Configured reports whether a Postgres connection is configured in this
// environment. Without one the service falls back to an in-memory store.
func Configured() bool {
	return os.Getenv("PAYMENTS_DB_HOST") != ""
}

// NewPostgres opens a pool against the configured database using the pgx
// stdlib driver.
func NewPostgres() (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		os.Getenv("PAYMENTS_DB_USERNAME"),
		os.Getenv("PAYMENTS_DB_PASSWORD"),
		os.Getenv("PAYMENTS_DB_HOST"),
		os.Getenv("PAYMENTS_DB_PORT"),
		os.Getenv("PAYMENTS_DB_DATABASE"),
	)

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// Health pings the database with a short deadline. Used by the health
// endpoint when a database is configured.
func Health(db *sql.DB) map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)
	if err := db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	dbStats := db.Stats()
	stats["open_connections"] = fmt.Sprintf("%d", dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprintf("%d", dbStats.InUse)
	stats["idle"] = fmt.Sprintf("%d", dbStats.Idle)
	return stats
}
