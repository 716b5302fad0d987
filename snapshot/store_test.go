package snapshot

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStoreSaveLoad(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "snapshots"))
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
	if got.Symbol != snap.Symbol || got.AsOf != snap.AsOf {
		t.Errorf("loaded snapshot fields differ: %s %s", got.Symbol, got.AsOf)
	}
	if len(got.MarketData.Bars) != len(snap.MarketData.Bars) {
		t.Errorf("expected %d bars, got %d", len(snap.MarketData.Bars), len(got.MarketData.Bars))
	}
}

func TestFileStoreIdempotentSave(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "snapshots"))
	snap := mustBuild(t, testInputs())
	ctx := context.Background()

	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("first Save returned error: %v", err)
	}
	if err := store.Save(ctx, snap); err != nil {
		t.Errorf("second Save of identical snapshot returned error: %v", err)
	}
}

func TestFileStoreDivergentContent(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "snapshots"))
	snap := mustBuild(t, testInputs())
	ctx := context.Background()

	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	tampered := snap
	tampered.CompanyName = "Apple Incorporated"
	err := store.Save(ctx, tampered)
	if !errors.Is(err, ErrConsistency) {
		t.Fatalf("expected ErrConsistency for divergent content, got %v", err)
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "snapshots"))

	_, ok, err := store.Load(context.Background(), strings.Repeat("0", 64))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if ok {
		t.Error("expected missing snapshot to report ok=false")
	}
}
