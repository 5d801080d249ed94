// Package coretest provides the Postgres test harness shared by every
// store's integration tests: skip-if-no-DSN against a pre-provisioned
// database (the teacher's postgres_integration_test.go idiom), or a
// throwaway container via testcontainers-go/modules/postgres when no DSN
// is configured and a container runtime is available.
package coretest

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/reliableworkqueue/workqueue/internal/db"
)

const dsnEnvVar = "WORKQUEUE_TEST_POSTGRES_DSN"

// OpenDB returns a ready-to-use *sql.DB with the core schema applied,
// skipping the calling test when neither WORKQUEUE_TEST_POSTGRES_DSN nor a
// usable container runtime is available.
func OpenDB(t *testing.T) *sql.DB {
	t.Helper()

	if dsn := os.Getenv(dsnEnvVar); dsn != "" {
		conn, err := db.Open(dsn)
		if err != nil {
			t.Fatalf("postgres open: %v", err)
		}
		t.Cleanup(func() { _ = conn.Close() })
		applySchema(t, conn)
		return conn
	}

	return openContainerDB(t)
}

func openContainerDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("workqueue_test"),
		postgres.WithUsername("workqueue"),
		postgres.WithPassword("workqueue"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("no %s set and no container runtime available: %v", dsnEnvVar, err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("container connection string: %v", err)
	}

	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("postgres open: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	applySchema(t, conn)
	return conn
}

func applySchema(t *testing.T, conn *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
}
