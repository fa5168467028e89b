package postgres_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	pagehandler "github.com/sjaconsulting/static-page-handler"
	"github.com/sjaconsulting/static-page-handler/database/postgres"
)

var (
	testPool     *pgxpool.Pool
	testPoolOnce sync.Once
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	assert.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// getSharedTestDatabase returns a shared database pool for all tests.
// Reusing one container keeps the suite fast; tests isolate through unique
// table names instead.
func getSharedTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testPoolOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("testdb"),
			pgcontainer.WithUsername("testuser"),
			pgcontainer.WithPassword("testpass"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			t.Fatalf("failed to start postgres container: %v", err)
		}

		connectionStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			_ = testcontainers.TerminateContainer(pgContainer)
			t.Fatalf("failed to get connection string: %v", err)
		}

		pool, err := pgxpool.New(ctx, connectionStr)
		if err != nil {
			_ = testcontainers.TerminateContainer(pgContainer)
			t.Fatalf("could not connect to database: %v", err)
		}

		testPool = pool
	})

	return testPool
}

// setupTestRepo creates a repo with a unique table name for test isolation.
func setupTestRepo(t *testing.T) *postgres.Repo {
	t.Helper()

	ctx := context.Background()
	pool := getSharedTestDatabase(t)

	tables := pagehandler.Tables{Objects: fmt.Sprintf("objects_%s", getRandomString(t))}

	err := postgres.Migrate(ctx, pool, tables)
	require.NoError(t, err, "migrate")

	err = postgres.ValidateSchema(ctx, pool, tables)
	require.NoError(t, err, "validate schema")

	repo, err := postgres.NewRepo(pool, tables)
	require.NoError(t, err, "new repo")

	t.Cleanup(func() {
		_ = postgres.DropTables(context.Background(), pool, tables)
	})

	return repo
}

func testEntry(key string) pagehandler.ObjectEntry {
	return pagehandler.ObjectEntry{
		Key:          key,
		Size:         42,
		ETag:         "etag-" + key,
		ContentType:  "text/plain",
		CacheControl: "max-age=60",
	}
}
