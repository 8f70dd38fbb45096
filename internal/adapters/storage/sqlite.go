// Package storage persists exported hashcat 22000 lines to SQLite via
// GORM. The core emits lines as plain strings; this adapter is the only
// place that knows they are ever written to disk.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rook-sec/fourway22000/internal/core/domain"
	"github.com/rook-sec/fourway22000/internal/core/export"
)

// LineKind distinguishes a persisted WPA*01 row from a WPA*02 row.
type LineKind string

const (
	KindPMKID LineKind = "pmkid"
	KindEAPOL LineKind = "eapol"
)

// ExportedLineModel is the GORM model for one persisted hashcat 22000
// line. Lines are immutable once written: a handshake record that later
// completes writes a new row rather than mutating an old one, so the
// table is a full history of everything ever exported in this run.
type ExportedLineModel struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	CaptureRunID string `gorm:"index"`
	ObservedAt   time.Time
	APMAC        string `gorm:"index"`
	ClientMAC    string `gorm:"index"`
	ESSID        string
	Kind         string `gorm:"index"`
	Line         string
}

// SQLiteStore is the GORM/SQLite-backed export sink.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (creating if necessary) the SQLite database at
// path and migrates the export-line schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %q: %w", path, err)
	}

	if err := db.AutoMigrate(&ExportedLineModel{}); err != nil {
		return nil, fmt.Errorf("migrate export schema: %w", err)
	}

	// WAL allows the web surface to read concurrently with capture writes.
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA busy_timeout=5000;")
	db.Exec("PRAGMA synchronous=NORMAL;")

	db.Exec("CREATE INDEX IF NOT EXISTS idx_exported_lines_ap ON exported_line_models(ap_mac)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_exported_lines_run ON exported_line_models(capture_run_id)")

	return &SQLiteStore{db: db}, nil
}

// SaveExport serializes rec via export.Export22000 and persists each
// eligible line (zero, one, or two rows) tagged with runID. It returns
// the number of rows written.
func (s *SQLiteStore) SaveExport(ctx context.Context, runID uuid.UUID, rec *domain.HandshakeRecord) (int, error) {
	var rows []ExportedLineModel
	now := time.Now()
	if rec.LastMsg != nil {
		now = rec.LastMsg.Timestamp()
	}

	base := ExportedLineModel{
		CaptureRunID: runID.String(),
		ObservedAt:   now,
		APMAC:        macOrEmpty(rec.MacAP),
		ClientMAC:    macOrEmpty(rec.MacClient),
		ESSID:        essidOrEmpty(rec.ESSID),
	}

	out, ok := export.Export22000(rec)
	if !ok {
		return 0, nil
	}

	if rec.PMKID != nil && rec.MacAP != nil && rec.MacClient != nil && rec.ESSID != nil {
		row := base
		row.Kind = string(KindPMKID)
		row.Line = firstLine(out)
		rows = append(rows, row)
	}
	if rec.Complete() {
		row := base
		row.Kind = string(KindEAPOL)
		row.Line = lastLine(out)
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return 0, nil
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return 0, fmt.Errorf("save exported lines: %w", err)
	}
	return len(rows), nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

func lastLine(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '\n' {
			return s[i+1:]
		}
	}
	return s
}

func macOrEmpty(m *domain.MacAddress) string {
	if m == nil {
		return ""
	}
	return m.String()
}

func essidOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ListRun returns every line persisted under runID, oldest first.
func (s *SQLiteStore) ListRun(ctx context.Context, runID uuid.UUID) ([]ExportedLineModel, error) {
	var rows []ExportedLineModel
	err := s.db.WithContext(ctx).
		Where("capture_run_id = ?", runID.String()).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list run %s: %w", runID, err)
	}
	return rows, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
