package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"myretail/internal/config"
	"myretail/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
}

// SetupTestDB creates a PostgreSQL test container and a connection pool with
// the price schema applied.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := postgresContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}

	dbConfig := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "testuser",
		Password:        "testpass",
		Database:        "testdb",
		MaxConnections:  10,
		MinConnections:  2,
		MaxConnLifetime: 300,
	}

	pool, err := database.NewPool(ctx, dbConfig, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.Migrate(ctx, pool); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
	}
}

// CleanupDB removes all stored prices.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	if _, err := pool.Exec(context.Background(), "DELETE FROM prices"); err != nil {
		t.Logf("failed to clean table prices: %v", err)
	}
}

// FakeCatalog is an in-process stand-in for the product catalog service.
// Products map ids to titles; Raw overrides the response body for an id.
type FakeCatalog struct {
	mu       sync.Mutex
	Products map[int]string
	Raw      map[int]string
	Status   map[int]int
	Server   *httptest.Server
}

// NewFakeCatalog starts a catalog server that is closed when the test ends.
func NewFakeCatalog(t *testing.T) *FakeCatalog {
	t.Helper()

	c := &FakeCatalog{
		Products: make(map[int]string),
		Raw:      make(map[int]string),
		Status:   make(map[int]int),
	}
	c.Server = httptest.NewServer(http.HandlerFunc(c.serve))
	t.Cleanup(c.Server.Close)
	return c
}

func (c *FakeCatalog) serve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/v2/pdp/tcin/"))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if status, ok := c.Status[id]; ok {
		w.WriteHeader(status)
		return
	}
	if raw, ok := c.Raw[id]; ok {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, raw)
		return
	}
	title, ok := c.Products[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"product":{"item":{"productDescription":{"title":%q}}}}`, title)
}
