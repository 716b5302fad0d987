package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/YKunlee/Financial-Research-Agent/config"
	"github.com/YKunlee/Financial-Research-Agent/snapshot"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "companies.csv")
	csv := "symbol,market,company_name,aliases\nAAPL,NASDAQ,Apple Inc.,apple\n"
	if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
		t.Fatalf("write companies: %v", err)
	}

	return &config.Config{
		RedisHost: "localhost",
		RedisPort: "0", // unreachable on purpose, forces the in-memory fallback
		Snapshot: config.SnapshotConfig{
			Backend:    "file",
			Dir:        filepath.Join(dir, "snapshots"),
			SQLitePath: filepath.Join(dir, "snapshots.db"),
		},
		Analysis:     config.AnalysisConfig{LookbackDays: 180, MinBars: 60},
		CompaniesCSV: csvPath,
		AliasesJSON:  filepath.Join(dir, "aliases.json"),
	}
}

func TestNewWiresPipeline(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	if a.Agent() == nil {
		t.Error("expected agent to be wired")
	}
	if a.Store() == nil {
		t.Error("expected snapshot store to be wired")
	}
}

func TestNewMissingCompanyTable(t *testing.T) {
	cfg := testConfig(t)
	cfg.CompaniesCSV = filepath.Join(t.TempDir(), "missing.csv")

	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for missing company table")
	}
}

func TestNewStoreBackends(t *testing.T) {
	cfg := testConfig(t)

	cfg.Snapshot.Backend = "file"
	store, err := newStore(cfg)
	if err != nil {
		t.Fatalf("file backend: %v", err)
	}
	if _, ok := store.(*snapshot.FileStore); !ok {
		t.Errorf("expected *FileStore, got %T", store)
	}
	store.Close()

	cfg.Snapshot.Backend = "sqlite"
	store, err = newStore(cfg)
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	if _, ok := store.(*snapshot.SQLiteStore); !ok {
		t.Errorf("expected *SQLiteStore, got %T", store)
	}
	store.Close()

	cfg.Snapshot.Backend = "etcd"
	if _, err := newStore(cfg); err == nil {
		t.Error("expected error for unknown backend")
	}
}
