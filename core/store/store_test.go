package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"bastion-icc/config"
	"bastion-icc/core/utils"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.AppConfig{
		DBDriver: "sqlite",
		DBPath:   filepath.Join(t.TempDir(), "test.db"),
	}
	logger := utils.NewSilentLogger()
	db, err := NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := ApplyMigrations(context.Background(), db, cfg, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
