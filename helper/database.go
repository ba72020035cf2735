package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the connection settings of the Postgres instance.
type DatabaseConfiguration struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	Database string `env:"DB_DATABASE"`
	Username string `env:"DB_USERNAME"`
	Password string `env:"DB_PASSWORD"`
	Schema   string `env:"DB_SCHEMA" envDefault:"public"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// NewDatabaseConfiguration reads the database configuration from the environment.
// A .env file in the working directory is loaded first if present.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	config := &DatabaseConfiguration{}
	if err := env.Parse(config); err != nil {
		return nil, NewError("parse database configuration", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that all required fields are set.
func (c *DatabaseConfiguration) Validate() error {
	if c.Host == "" || c.Port == "" || c.Database == "" || c.Username == "" {
		return NewError("database configuration validation", fmt.Errorf("host, port, database and username are required"))
	}
	return nil
}

// ConnectionString builds the lib/pq connection string.
func (c *DatabaseConfiguration) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode, c.Schema,
	)
}

// Database is a named connection pool with its logger.
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens and pings the database. An unreachable database is an error,
// there is no reconnect later on.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) (*Database, error) {
	if config == nil {
		return nil, NewError("database configuration validation", fmt.Errorf("database configuration is nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}

	instance, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, NewError("open database", err)
	}
	instance.SetMaxOpenConns(25)
	instance.SetMaxIdleConns(5)
	instance.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = RetryWithContext(ctx, 10, time.Second, func(ctx context.Context) error {
		return instance.PingContext(ctx)
	})
	if err != nil {
		_ = instance.Close()
		return nil, NewError("ping database", err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host), slog.String("database", config.Database))

	return &Database{
		Name:     name,
		Instance: instance,
		Logger:   logger,
	}, nil
}

// NewTestDatabase connects to the test database and exits the test binary on failure.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	logger := NewLogger(os.Stdout, "warn")
	db, err := NewDatabase("test", config, logger)
	if err != nil {
		log.Fatalf("error connecting to test database: %v", err)
	}
	return db
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	if d == nil || d.Instance == nil {
		return nil
	}
	return d.Instance.Close()
}
