package database

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DBService owns the pooled Postgres connection shared by every repository.
type DBService struct {
	DB *sql.DB
}

// NewDBService opens the pool described by DB_CONNECTION_STRING and verifies
// the database is reachable.
func NewDBService() (*DBService, error) {
	connStr := os.Getenv("DB_CONNECTION_STRING")
	if connStr == "" {
		return nil, fmt.Errorf("DB_CONNECTION_STRING is not set")
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("could not open db connection: %w", err)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to the database: %w", err)
	}

	return &DBService{DB: db}, nil
}

// Health pings the database and reports its status for the health endpoint.
func (s *DBService) Health() map[string]string {
	if err := s.DB.Ping(); err != nil {
		return map[string]string{
			"status": "down",
			"error":  fmt.Sprintf("db down: %v", err),
		}
	}
	return map[string]string{"status": "up"}
}

// Close closes the underlying connection pool.
func (s *DBService) Close() error {
	return s.DB.Close()
}
