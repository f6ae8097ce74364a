// Package postgres keeps the JSON documents as rows of a single table.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"chat-relay/internal/config"
	"chat-relay/internal/logger"
	"chat-relay/internal/repository/storage"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Ensure PostgresDB implements storage.Backend
var _ storage.Backend = (*PostgresDB)(nil)

// PostgresDB stores each document as one jsonb row keyed by name
type PostgresDB struct {
	conn *sql.DB
}

// NewPostgresDB connects using the discrete DB_* settings
func NewPostgresDB(ctx context.Context, dbConfig config.DatabaseConfig) (*PostgresDB, error) {
	logger.Log.WithFields(logrus.Fields{
		"host": dbConfig.Host,
		"port": dbConfig.Port,
		"db":   dbConfig.Name,
	}).Info("Connecting to PostgreSQL")
	return Open(ctx, dbConfig.GetDSN())
}

// Open connects to dsn, checks the connection and applies migrations
func Open(ctx context.Context, dsn string) (*PostgresDB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	logger.Log.Info("Successfully connected to PostgreSQL")

	db := &PostgresDB{conn: conn}

	if err = db.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (p *PostgresDB) Close() error {
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// RunMigrations applies the embedded migrations using golang-migrate
func (p *PostgresDB) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("error opening migration source: %w", err)
	}

	driver, err := postgres.WithInstance(p.conn, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("error creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("error creating migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error running migrations: %w", err)
	}

	logger.Log.Info("Database migrations applied successfully")
	return nil
}

// Read returns the stored document body or storage.ErrNotExist
func (p *PostgresDB) Read(ctx context.Context, name string) ([]byte, error) {
	var body []byte
	err := p.conn.QueryRowContext(ctx, `SELECT body FROM documents WHERE name = $1`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("error reading document %s: %w", name, err)
	}
	return body, nil
}

// Write upserts the whole document
func (p *PostgresDB) Write(ctx context.Context, name string, data []byte) error {
	query := `
	INSERT INTO documents (name, body, updated_at)
	VALUES ($1, $2, CURRENT_TIMESTAMP)
	ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
	`
	if _, err := p.conn.ExecContext(ctx, query, name, string(data)); err != nil {
		return fmt.Errorf("error writing document %s: %w", name, err)
	}
	return nil
}
