package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/clausewise/clausewise/internal/config"
	"github.com/clausewise/clausewise/internal/db"
)

func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "clausewise",
		Password: "clausewise_pass",
		DBName:   "clausewise_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}

// TestVector pads the given leading values out to the migration's
// embedding dimension.
func TestVector(leading ...float32) []float32 {
	vec := make([]float32, 1024)
	copy(vec, leading)
	return vec
}
