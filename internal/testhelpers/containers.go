// Package testhelpers starts a disposable PostgreSQL for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/epeers/fundsync/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	PostgresImage    = "postgres:16-alpine"
	RootUser         = "postgres"
	RootPassword     = "test_password"
	MaintenanceDB    = "postgres"
	containerStartup = 60 * time.Second
)

// TestDB holds the shared PostgreSQL container.
type TestDB struct {
	Container testcontainers.Container
	// Root reaches the maintenance database as the superuser.
	Root database.Config
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     RootUser,
			"POSTGRES_PASSWORD": RootPassword,
			"POSTGRES_DB":       MaintenanceDB,
		},
		// The entrypoint restarts the server once after init.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(containerStartup),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	portNum, err := strconv.Atoi(port.Port())
	if err != nil {
		return nil, fmt.Errorf("failed to parse container port: %w", err)
	}

	root := database.Config{
		Host:     host,
		Port:     portNum,
		Database: MaintenanceDB,
		User:     RootUser,
		Password: RootPassword,
		SSLMode:  "disable",
		PoolSize: 2,
	}

	// Verify connection with retry
	var lastErr error
	for i := 0; i < 10; i++ {
		conn, err := pgx.Connect(ctx, root.ConnString())
		if err == nil {
			conn.Close(ctx)
			return &TestDB{Container: container, Root: root}, nil
		}
		lastErr = err
		time.Sleep(500 * time.Millisecond)
	}
	return nil, fmt.Errorf("test database never accepted connections: %w", lastErr)
}

// UniqueName returns prefix followed by a random suffix that is a valid identifier.
func UniqueName(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// CreateDatabase creates an empty database with a unique name and drops it
// when the test ends. The returned config logs in as the superuser.
func (db *TestDB) CreateDatabase(t *testing.T) database.Config {
	t.Helper()
	ctx := context.Background()

	name := UniqueName("fund_test")
	db.exec(t, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize())

	t.Cleanup(func() {
		conn, err := pgx.Connect(ctx, db.Root.ConnString())
		if err != nil {
			return
		}
		defer conn.Close(ctx)
		_, _ = conn.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{name}.Sanitize()+" WITH (FORCE)")
	})

	return db.Root.WithDatabase(name)
}

// CreateSchemaDatabase is CreateDatabase with the fund tables applied.
func (db *TestDB) CreateSchemaDatabase(t *testing.T) database.Config {
	t.Helper()
	ctx := context.Background()

	cfg := db.CreateDatabase(t)
	script, err := os.ReadFile(SchemaPath())
	if err != nil {
		t.Fatalf("Failed to read schema: %v", err)
	}

	conn, err := pgx.Connect(ctx, cfg.ConnString())
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", cfg.Database, err)
	}
	defer conn.Close(ctx)

	// No arguments: the simple protocol runs every statement of the script.
	if _, err := conn.Exec(ctx, string(script)); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}
	return cfg
}

// Connect opens a single connection to cfg, closed when the test ends.
func Connect(t *testing.T, cfg database.Config) *pgx.Conn {
	t.Helper()
	ctx := context.Background()

	conn, err := pgx.Connect(ctx, cfg.ConnString())
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", cfg, err)
	}
	t.Cleanup(func() { conn.Close(ctx) })
	return conn
}

func (db *TestDB) exec(t *testing.T, sql string) {
	t.Helper()
	conn := Connect(t, db.Root)
	if _, err := conn.Exec(context.Background(), sql); err != nil {
		t.Fatalf("Failed to exec %q: %v", sql, err)
	}
}

// SchemaPath is the absolute path of sql/schema.sql in this repository.
func SchemaPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "sql", "schema.sql")
}
