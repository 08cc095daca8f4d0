package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/feedcore/internal/platform/postgres"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// DatabaseURLEnv overrides the container with an existing database.
const DatabaseURLEnv = "FEED_TEST_DATABASE_URL"

var (
	dbOnce sync.Once
	dbURL  string
	dbErr  error
)

// GetTestDatabaseURL returns the URL of a migrated test database, starting
// a PostgreSQL container on first use unless FEED_TEST_DATABASE_URL is set.
func GetTestDatabaseURL(t testing.TB) string {
	t.Helper()

	dbOnce.Do(func() {
		ctx := context.Background()
		if url := os.Getenv(DatabaseURLEnv); url != "" {
			dbURL = url
		} else {
			dbURL, dbErr = startPostgres(ctx)
			if dbErr != nil {
				return
			}
		}
		dbErr = migrate(ctx, dbURL)
	})

	if dbErr != nil {
		t.Fatalf("test database unavailable: %v", dbErr)
	}
	return dbURL
}

// GetTestDBWithT opens a connection to the test database and closes it when
// the test ends.
func GetTestDBWithT(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", GetTestDatabaseURL(t))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}
	return db
}

// CleanupDB truncates every application table.
func CleanupDB(t testing.TB, db *sql.DB) {
	t.Helper()

	_, err := db.Exec(`TRUNCATE TABLE job_audit, failed_jobs, likes, comments, posts, users CASCADE`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

// WithTx runs fn inside a transaction that is always rolled back, so tests
// sharing one database stay isolated.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	fn(t, tx)
}

func startPostgres(ctx context.Context) (string, error) {
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("feed_test"),
		tcpostgres.WithUsername("feed"),
		tcpostgres.WithPassword("feed"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start postgres container: %w", err)
	}
	return container.ConnectionString(ctx, "sslmode=disable")
}

func migrate(ctx context.Context, url string) error {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	quiet := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return postgres.Migrate(ctx, db, "up", quiet)
}
