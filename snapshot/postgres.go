package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/YKunlee/Financial-Research-Agent/jsonutil"
	"github.com/YKunlee/Financial-Research-Agent/models"
)

// SnapshotRecord is the stored row for one snapshot document. The
// document column keeps the exact serialized bytes so consistency checks
// compare what was actually written.
type SnapshotRecord struct {
	AnalysisID string    `gorm:"column:analysis_id;primaryKey"`
	Symbol     string    `gorm:"column:symbol;index:idx_snapshots_symbol_as_of"`
	AsOf       string    `gorm:"column:as_of;index:idx_snapshots_symbol_as_of"`
	Document   string    `gorm:"column:document;type:text"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// TableName sets the snapshots table name.
func (SnapshotRecord) TableName() string {
	return "analysis_snapshots"
}

// PostgresStore persists snapshot documents to PostgreSQL via GORM.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore establishes the database connection and migrates the
// snapshots table.
func NewPostgresStore(host, port, dbname, user, password string) (*PostgresStore, error) {
	dsn := fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		host, port, dbname, user, password)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Silent logging for production
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&SnapshotRecord{}); err != nil {
		return nil, fmt.Errorf("migrate snapshots table: %w", err)
	}

	log.Println("✅ Postgres snapshot store connected")
	return &PostgresStore{db: db}, nil
}

// Save inserts the snapshot document, verifying any existing record under
// the same analysis id.
func (s *PostgresStore) Save(ctx context.Context, snap models.AnalysisSnapshot) error {
	data, err := jsonutil.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	var existing SnapshotRecord
	err = s.db.WithContext(ctx).First(&existing, "analysis_id = ?", snap.AnalysisID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record := SnapshotRecord{
			AnalysisID: snap.AnalysisID,
			Symbol:     snap.Symbol,
			AsOf:       snap.AsOf,
			Document:   string(data),
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup snapshot: %w", err)
	}

	if existing.Document == string(data) {
		return nil
	}
	return fmt.Errorf("%s: %w", snap.AnalysisID, ErrConsistency)
}

// Load reads the snapshot stored under analysisID, if any.
func (s *PostgresStore) Load(ctx context.Context, analysisID string) (models.AnalysisSnapshot, bool, error) {
	var record SnapshotRecord
	err := s.db.WithContext(ctx).First(&record, "analysis_id = ?", analysisID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.AnalysisSnapshot{}, false, nil
	}
	if err != nil {
		return models.AnalysisSnapshot{}, false, fmt.Errorf("lookup snapshot: %w", err)
	}

	var snap models.AnalysisSnapshot
	if err := json.Unmarshal([]byte(record.Document), &snap); err != nil {
		return models.AnalysisSnapshot{}, false, fmt.Errorf("decode snapshot %s: %w", analysisID, err)
	}
	return snap, true, nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
