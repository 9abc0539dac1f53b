// Package common provides shared test infrastructure
package common

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RequireDocker skips the test unless container tests are enabled
func RequireDocker(t *testing.T) {
	t.Helper()
	if os.Getenv("IEXGATE_TEST_DOCKER") != "true" {
		t.Skip("Docker tests disabled (set IEXGATE_TEST_DOCKER=true to enable)")
	}
}

// startContainer starts req and resolves the host and mapped port
func startContainer(ctx context.Context, req testcontainers.ContainerRequest, port nat.Port) (testcontainers.Container, string, string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", "", err
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, "", "", fmt.Errorf("get host: %w", err)
	}

	mappedPort, err := container.MappedPort(ctx, port)
	if err != nil {
		container.Terminate(ctx)
		return nil, "", "", fmt.Errorf("get port: %w", err)
	}

	return container, host, mappedPort.Port(), nil
}

var (
	redisOnce sync.Once
	redisAddr string
	redisErr  error
)

// StartRedis starts a shared Redis container and returns its host:port address.
func StartRedis(t *testing.T) string {
	t.Helper()
	RequireDocker(t)

	redisOnce.Do(func() {
		req := testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("6379/tcp"),
				wait.ForLog("Ready to accept connections"),
			).WithDeadline(60 * time.Second),
		}

		_, host, port, err := startContainer(context.Background(), req, "6379/tcp")
		if err != nil {
			redisErr = fmt.Errorf("start Redis container: %w", err)
			return
		}
		redisAddr = fmt.Sprintf("%s:%s", host, port)
	})

	if redisErr != nil {
		t.Fatalf("Redis container failed: %v", redisErr)
	}
	return redisAddr
}

var (
	postgresOnce sync.Once
	postgresDSN  string
	postgresErr  error
)

// StartPostgres starts a shared PostgreSQL container and returns a connection string.
func StartPostgres(t *testing.T) string {
	t.Helper()
	RequireDocker(t)

	postgresOnce.Do(func() {
		req := testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "iexgate",
				"POSTGRES_PASSWORD": "iexgate",
				"POSTGRES_DB":       "iexgate",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(60 * time.Second),
		}

		_, host, port, err := startContainer(context.Background(), req, "5432/tcp")
		if err != nil {
			postgresErr = fmt.Errorf("start PostgreSQL container: %w", err)
			return
		}
		postgresDSN = fmt.Sprintf("postgres://iexgate:iexgate@%s:%s/iexgate?sslmode=disable", host, port)
	})

	if postgresErr != nil {
		t.Fatalf("PostgreSQL container failed: %v", postgresErr)
	}
	return postgresDSN
}
