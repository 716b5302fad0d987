package snapshot

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreSaveLoad(t *testing.T) {
	store := newTestSQLiteStore(t)
	snap := mustBuild(t, testInputs())
	ctx := context.Background()

	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, ok, err := store.Load(ctx, snap.AnalysisID)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected stored snapshot to be found")
	}
	if got.AnalysisID != snap.AnalysisID {
		t.Errorf("loaded analysis_id = %s, want %s", got.AnalysisID, snap.AnalysisID)
	}
	if got.Rules.RuleVersion != snap.Rules.RuleVersion {
		t.Errorf("loaded rule_version = %s, want %s", got.Rules.RuleVersion, snap.Rules.RuleVersion)
	}
}

func TestSQLiteStoreIdempotentSave(t *testing.T) {
	store := newTestSQLiteStore(t)
	snap := mustBuild(t, testInputs())
	ctx := context.Background()

	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("first Save returned error: %v", err)
	}
	if err := store.Save(ctx, snap); err != nil {
		t.Errorf("second Save of identical snapshot returned error: %v", err)
	}
}

func TestSQLiteStoreDivergentContent(t *testing.T) {
	store := newTestSQLiteStore(t)
	snap := mustBuild(t, testInputs())
	ctx := context.Background()

	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	tampered := snap
	tampered.AsOf = "2024-03-02"
	err := store.Save(ctx, tampered)
	if !errors.Is(err, ErrConsistency) {
		t.Fatalf("expected ErrConsistency for divergent content, got %v", err)
	}
}

func TestSQLiteStoreLoadMissing(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, ok, err := store.Load(context.Background(), "missing-id")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if ok {
		t.Error("expected missing snapshot to report ok=false")
	}
}
