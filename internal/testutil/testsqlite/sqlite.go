package testsqlite

import (
	"path/filepath"
	"testing"

	"github.com/chirino/social-service/internal/plugin/store/gormstore"
	"github.com/chirino/social-service/internal/plugin/store/sqlite"
)

// NewStore opens a migrated SQLite database in a per-test temp dir.
func NewStore(tb testing.TB) *gormstore.Store {
	tb.Helper()
	db, err := sqlite.Open(filepath.Join(tb.TempDir(), "social.db"))
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	if err := sqlite.Migrate(db); err != nil {
		tb.Fatalf("migrate sqlite: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gormstore.New(db)
}
