package database

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"
)

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Close terminates the database connection.
	Close()

	Queries() *Queries
}

type service struct {
	pool *pgxpool.Pool
	q    *Queries
}

// Queries implements Service.
func (s *service) Queries() *Queries {
	return s.q
}

var (
	database   = os.Getenv("VITALSAGE_DB_DATABASE")
	password   = os.Getenv("VITALSAGE_DB_PASSWORD")
	username   = os.Getenv("VITALSAGE_DB_USERNAME")
	port       = os.Getenv("VITALSAGE_DB_PORT")
	host       = os.Getenv("VITALSAGE_DB_HOST")
	schema     = os.Getenv("VITALSAGE_DB_SCHEMA")
	dbInstance *service
)

// NewService opens the connection pool. The engine runs degraded but
// functional without persistence, so a missing configuration is an error
// for the caller to handle rather than a fatal.
func NewService() (Service, error) {
	// Reuse Connection
	if dbInstance != nil {
		return dbInstance, nil
	}
	if host == "" || database == "" {
		return nil, fmt.Errorf("database not configured (VITALSAGE_DB_HOST / VITALSAGE_DB_DATABASE unset)")
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s", username, password, host, port, database, schema)
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	dbInstance = &service{
		pool: pool,
		q:    NewQueries(pool),
	}
	return dbInstance, nil
}

// Health checks the health of the database connection.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		log.Error().Err(err).Msg("db down")
		return stats
	}

	poolStats := s.pool.Stat()
	stats["status"] = "up"
	stats["total_conns"] = strconv.Itoa(int(poolStats.TotalConns()))
	stats["idle_conns"] = strconv.Itoa(int(poolStats.IdleConns()))
	stats["acquired_conns"] = strconv.Itoa(int(poolStats.AcquiredConns()))
	stats["max_conns"] = strconv.Itoa(int(poolStats.MaxConns()))
	stats["acquire_count"] = strconv.FormatInt(poolStats.AcquireCount(), 10)
	stats["acquire_duration_ms"] = strconv.FormatInt(poolStats.AcquireDuration().Milliseconds(), 10)
	stats["empty_acquire_count"] = strconv.FormatInt(poolStats.EmptyAcquireCount(), 10)

	if poolStats.AcquiredConns() > (poolStats.MaxConns() * 8 / 10) { // 80% capacity
		stats["message"] = "The database connection pool is experiencing heavy load."
	}
	if poolStats.EmptyAcquireCount() > 0 {
		stats["message"] = "The application has tried to acquire a connection from an empty pool. Consider increasing max connections."
	}

	return stats
}

// Close closes the database connection.
func (s *service) Close() {
	log.Info().Str("database", database).Msg("Disconnected from database")
	s.pool.Close()
}
