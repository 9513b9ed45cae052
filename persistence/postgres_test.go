package persistence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// pgDSN is set when TYSIAC_PG_TESTS=1 and a container is running.
var pgDSN string

func TestMain(m *testing.M) {
	if os.Getenv("TYSIAC_PG_TESTS") != "1" {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("tysiac"),
		postgres.WithUsername("tysiac"),
		postgres.WithPassword("tysiac"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		panic(err)
	}

	pgDSN, err = postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}

	code := m.Run()

	// Cleanup
	postgresContainer.Terminate(ctx)
	os.Exit(code)
}

func requirePostgres(t *testing.T) string {
	t.Helper()
	if pgDSN == "" {
		t.Skip("set TYSIAC_PG_TESTS=1 to run against a postgres container")
	}
	return pgDSN
}

func TestPostgreSQLStore(t *testing.T) {
	dsn := requirePostgres(t)
	store, err := OpenPostgreSQL(dsn)
	require.NoError(t, err)
	defer store.Close()

	testStoreContract(t, store)
}

func TestGormPostgreSQLStore(t *testing.T) {
	dsn := requirePostgres(t)
	// goose owns the schema; GORM's auto-migrate must accept it as is.
	migrated, err := OpenPostgreSQL(dsn)
	require.NoError(t, err)
	migrated.Close()

	store, err := OpenGormPostgreSQL(dsn)
	require.NoError(t, err)
	defer store.Close()

	testStoreContract(t, store)
}
