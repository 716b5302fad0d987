package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/YKunlee/Financial-Research-Agent/jsonutil"
	"github.com/YKunlee/Financial-Research-Agent/models"
)

// SQLiteStore persists snapshot documents to a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs
// migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so API readers do not block pipeline writers.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("✅ SQLite snapshot store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			analysis_id TEXT PRIMARY KEY,
			symbol      TEXT NOT NULL,
			as_of       TEXT NOT NULL,
			document    TEXT NOT NULL,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_symbol_as_of ON snapshots(symbol, as_of)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Save inserts the snapshot document, verifying any existing record under
// the same analysis id.
func (s *SQLiteStore) Save(ctx context.Context, snap models.AnalysisSnapshot) error {
	data, err := jsonutil.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing string
	err = s.db.QueryRowContext(ctx,
		`SELECT document FROM snapshots WHERE analysis_id = ?`, snap.AnalysisID,
	).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO snapshots (analysis_id, symbol, as_of, document, created_at)
			 VALUES (?,?,?,?,?)`,
			snap.AnalysisID, snap.Symbol, snap.AsOf, string(data), time.Now().Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("lookup snapshot: %w", err)
	}

	if existing == string(data) {
		return nil
	}
	return fmt.Errorf("%s: %w", snap.AnalysisID, ErrConsistency)
}

// Load reads the snapshot stored under analysisID, if any.
func (s *SQLiteStore) Load(ctx context.Context, analysisID string) (models.AnalysisSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var document string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM snapshots WHERE analysis_id = ?`, analysisID,
	).Scan(&document)
	if err == sql.ErrNoRows {
		return models.AnalysisSnapshot{}, false, nil
	}
	if err != nil {
		return models.AnalysisSnapshot{}, false, fmt.Errorf("lookup snapshot: %w", err)
	}

	var snap models.AnalysisSnapshot
	if err := json.Unmarshal([]byte(document), &snap); err != nil {
		return models.AnalysisSnapshot{}, false, fmt.Errorf("decode snapshot %s: %w", analysisID, err)
	}
	return snap, true, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
