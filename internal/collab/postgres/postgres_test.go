package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/rcliao/agentcore/internal/collab"
	"github.com/rcliao/agentcore/internal/collab/collabtest"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("AGENTCORE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("AGENTCORE_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := New(ctx, connStr(t))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	// Clean all rows before each test for isolation.
	if _, err := s.db.ExecContext(ctx, `TRUNCATE documents, migrations`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore(t *testing.T) {
	connStr(t)
	collabtest.Run(t, func(t *testing.T) collab.Store { return newTestStore(t) })
}

func TestNewInvalidDSN(t *testing.T) {
	connStr(t)
	_, err := New(context.Background(), "host=invalid port=9999 user=bad dbname=bad sslmode=disable connect_timeout=1")
	if err == nil {
		t.Fatal("expected error for unreachable database")
	}
}
