package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/YKunlee/Financial-Research-Agent/jsonutil"
	"github.com/YKunlee/Financial-Research-Agent/models"
)

// ErrConsistency signals a reproducibility violation: a record already
// exists under the same analysis id with different content. This halts
// the pipeline, since it indicates non-determinism or a missing version
// bump.
var ErrConsistency = errors.New("snapshot content conflicts with existing analysis_id")

// Store persists snapshots keyed by analysis id. Save is a verified
// no-op when the id already exists with byte-identical content and fails
// with ErrConsistency when the content diverges; silent overwrite is
// forbidden. Load reports absence via the bool return.
type Store interface {
	Save(ctx context.Context, snap models.AnalysisSnapshot) error
	Load(ctx context.Context, analysisID string) (models.AnalysisSnapshot, bool, error)
	Close() error
}

// FileStore keeps one <analysis_id>.json per snapshot in a flat
// directory. The directory is append-only from the pipeline's
// perspective.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Save writes the snapshot document, verifying any existing record.
func (s *FileStore) Save(ctx context.Context, snap models.AnalysisSnapshot) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshots dir: %w", err)
	}

	data, err := jsonutil.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	path := filepath.Join(s.dir, snap.AnalysisID+".json")
	existing, err := os.ReadFile(path)
	if err == nil {
		if bytes.Equal(existing, data) {
			return nil
		}
		return fmt.Errorf("%s: %w", snap.AnalysisID, ErrConsistency)
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("read existing snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot stored under analysisID, if any.
func (s *FileStore) Load(ctx context.Context, analysisID string) (models.AnalysisSnapshot, bool, error) {
	path := filepath.Join(s.dir, analysisID+".json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return models.AnalysisSnapshot{}, false, nil
	}
	if err != nil {
		return models.AnalysisSnapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}

	var snap models.AnalysisSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.AnalysisSnapshot{}, false, fmt.Errorf("decode snapshot %s: %w", analysisID, err)
	}
	return snap, true, nil
}

// Close is a no-op for the file-backed store.
func (s *FileStore) Close() error {
	return nil
}
