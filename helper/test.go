package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDatabase      = "database"
	testUsername      = "user"
	testPassword      = "password"
	TestNeo4jPassword = "password123"
)

// MustStartPostgresContainer starts a pgvector enabled Postgres container.
// It returns the teardown function and the mapped port.
func MustStartPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(
		ctx,
		"pgvector/pgvector:pg17",
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUsername),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("error starting postgres container: %w", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return pgContainer.Terminate, "", fmt.Errorf("error getting mapped port: %w", err)
	}

	return pgContainer.Terminate, port.Port(), nil
}

// MustStartNeo4jContainer starts a Neo4j container and returns the bolt uri.
func MustStartNeo4jContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "neo4j:5",
		ExposedPorts: []string{"7687/tcp"},
		Env: map[string]string{
			"NEO4J_AUTH": "neo4j/" + TestNeo4jPassword,
		},
		WaitingFor: wait.ForLog("Started.").WithStartupTimeout(120 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("error starting neo4j container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return container.Terminate, "", fmt.Errorf("error getting container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "7687/tcp")
	if err != nil {
		return container.Terminate, "", fmt.Errorf("error getting mapped port: %w", err)
	}

	return container.Terminate, fmt.Sprintf("bolt://%s:%s", host, port.Port()), nil
}

// MustStartQdrantContainer starts a Qdrant container and returns its grpc port.
func MustStartQdrantContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "qdrant/qdrant:v1.13.2",
		ExposedPorts: []string{"6334/tcp"},
		WaitingFor:   wait.ForListeningPort("6334/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("error starting qdrant container: %w", err)
	}

	port, err := container.MappedPort(ctx, "6334/tcp")
	if err != nil {
		return container.Terminate, "", fmt.Errorf("error getting mapped port: %w", err)
	}

	return container.Terminate, port.Port(), nil
}

// SetTestDatabaseConfigEnvs sets the database environment variables for the test container.
func SetTestDatabaseConfigEnvs(t *testing.T, dbPort string) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", dbPort)
	t.Setenv("DB_DATABASE", testDatabase)
	t.Setenv("DB_USERNAME", testUsername)
	t.Setenv("DB_PASSWORD", testPassword)
	t.Setenv("DB_SCHEMA", "public")
	t.Setenv("DB_SSLMODE", "disable")
}

// RunWithPostgres runs the package tests against a fresh Postgres container
// and stores its mapped port in port. It returns the exit code of m.Run.
func RunWithPostgres(m *testing.M, port *string) int {
	teardown, dbPort, err := MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}
	*port = dbPort

	code := m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("error tearing down postgres container: %v", err)
		}
	}
	return code
}

// InitTestDatabase connects to the test container on port and runs
// initialize on the connection, e.g. to load the extensions.
func InitTestDatabase(t *testing.T, port string, initialize func(db *sql.DB) error) *Database {
	t.Helper()

	SetTestDatabaseConfigEnvs(t, port)
	config, err := NewDatabaseConfiguration()
	if err != nil {
		t.Fatalf("failed to create database configuration: %v", err)
	}
	database := NewTestDatabase(config)

	if initialize != nil {
		if err := initialize(database.Instance); err != nil {
			t.Fatalf("failed to initialize test database: %v", err)
		}
	}
	return database
}
