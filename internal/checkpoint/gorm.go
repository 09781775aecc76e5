package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type checkpointRow struct {
	SessionToken string    `gorm:"primaryKey;size:191"`
	State        []byte    `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (checkpointRow) TableName() string {
	return "workflow_checkpoints"
}

// GormStore stores checkpoints through GORM on sqlite or postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the database and migrates the checkpoint table.
func NewGormStore(driver, dsn string) (*GormStore, error) {
	gormDB, err := openGorm(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm store: %w", err)
	}
	if err := gormDB.AutoMigrate(&checkpointRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate checkpoints: %w", err)
	}
	return &GormStore{db: gormDB}, nil
}

// Load returns the stored state for sessionToken, or ErrNotFound.
func (s *GormStore) Load(ctx context.Context, sessionToken string) ([]byte, error) {
	if err := validateToken(sessionToken); err != nil {
		return nil, err
	}

	var row checkpointRow
	err := s.db.WithContext(ctx).
		Where("session_token = ?", sessionToken).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return row.State, nil
}

// Save upserts the state for sessionToken.
func (s *GormStore) Save(ctx context.Context, sessionToken string, data []byte) error {
	if err := validateToken(sessionToken); err != nil {
		return err
	}

	row := checkpointRow{
		SessionToken: sessionToken,
		State:        data,
		UpdatedAt:    time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_token"}},
			DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Delete removes the checkpoint for sessionToken. Deleting a missing checkpoint is not an error.
func (s *GormStore) Delete(ctx context.Context, sessionToken string) error {
	err := s.db.WithContext(ctx).
		Where("session_token = ?", sessionToken).
		Delete(&checkpointRow{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	return sqlDB.Close()
}

func openGorm(driver, dsn string) (*gorm.DB, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" {
		driver = DriverSQLite
	}
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		if driver != DriverSQLite {
			return nil, fmt.Errorf("dsn is required for driver %q", driver)
		}
		dsn = "checkpoints.db"
	}

	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	switch driver {
	case DriverSQLite:
		if err := ensureSQLiteDir(dsn); err != nil {
			return nil, err
		}
		return gorm.Open(sqlite.Open(dsn), cfg)
	case DriverPostgres:
		return gorm.Open(postgres.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

func ensureSQLiteDir(dsn string) error {
	lower := strings.ToLower(dsn)
	if lower == ":memory:" || strings.HasPrefix(lower, "file:") {
		return nil
	}
	path := dsn
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create sqlite db dir: %w", err)
	}
	return nil
}
