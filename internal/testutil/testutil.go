// Package testutil connects integration tests to real Redis and Postgres
// instances. Tests are skipped when the instances are not reachable unless
// TEST_REQUIRE_INFRA is set.
package testutil

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/propertyhub/api/pkg/postgres"
	"github.com/redis/go-redis/v9"
)

func requireInfra() bool {
	v, _ := strconv.ParseBool(os.Getenv("TEST_REQUIRE_INFRA"))
	return v
}

func skipOrFail(t testing.TB, format string, args ...interface{}) {
	t.Helper()
	if requireInfra() {
		t.Fatalf(format, args...)
	}
	t.Skipf(format, args...)
}

// RedisAddr returns TEST_REDIS_ADDR or the local default
func RedisAddr() string {
	if addr := os.Getenv("TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// RedisDB is the database index tests use; it is flushed before each test.
func RedisDB() int {
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
	}
	return 14
}

// SetupTestRedis returns a client on an empty test database
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: RedisAddr(), DB: RedisDB()})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		skipOrFail(t, "redis not available at %s: %v", RedisAddr(), err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush test redis: %v", err)
	}

	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("warning: failed to close redis client: %v", err)
		}
	})
	return client
}

// SetupTestPostgres connects to TEST_DATABASE_URL
func SetupTestPostgres(t testing.TB) *postgres.Postgres {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		skipOrFail(t, "TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pg, err := postgres.New(ctx, url, postgres.MaxPoolSize(4), postgres.ConnAttempts(1))
	if err != nil {
		skipOrFail(t, "postgres not available: %v", err)
	}
	t.Cleanup(pg.Close)
	return pg
}
