package common

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestRabbitMQ starts a throwaway RabbitMQ container and returns its AMQP URL.
func TestRabbitMQ(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.12.11-management-alpine", rabbitmq.WithAdminUsername("guest"), rabbitmq.WithAdminPassword("guest"))
	if err != nil {
		t.Fatalf("could not start rabbitmq container: %v", err)
	}

	connURL, err := container.AmqpURL(ctx)
	if err != nil {
		t.Fatalf("could not get rabbitmq connection URL: %v", err)
	}

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Fatalf("could not terminate container: %v", err)
		}
	})

	return connURL
}

// TestDB starts a postgres container and applies the migrations. source is relative to the calling package, in the
// form "file://../../migrations".
func TestDB(source string, t *testing.T) *sql.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	c, err := postgres.Run(ctx,
		"docker.io/postgres:14.11-bookworm",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)))
	if err != nil {
		t.Fatalf("could not start postgres container: %v", err)
	}

	connURL, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	m, err := Migrate(source, connURL)
	if err != nil {
		t.Fatalf("could not run migrations: %v", err)
	}

	db, err := sql.Open("postgres", connURL)
	if err != nil {
		t.Fatalf("could not open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
		m.Drop()
		c.Terminate(ctx)
	})

	return db
}
