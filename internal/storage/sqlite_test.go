//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteStoreRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "omicsim.db")
	store := NewSQLiteStore(dbPath)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	exerciseRunStore(t, store)
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Fatal("expected missing path error")
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	if _, _, err := NewSQLiteStore("x.db").GetRun(context.Background(), "r"); err == nil {
		t.Fatal("expected uninitialized store error")
	}
}
