// Package persist saves and restores the per-unit settings and wear that
// survive between sessions.
package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned by Load when no record exists for a unit.
var ErrNotFound = errors.New("unit record not found")

// UnitRecord is the persisted state of one wheel unit. Stress time is
// transient and deliberately absent.
type UnitRecord struct {
	ID string `gorm:"primaryKey"`

	// Motor
	GearRatio     float64
	OutputLimit   float64
	MotorLocked   bool
	MotorInverted bool
	SteerInverted bool
	SteerLocked   bool
	HalfTrack     bool

	// Brakes
	BrakeLimit float64

	// Steering
	SteeringLocked    bool
	SteeringInverted  bool
	SteeringLimitLow  float64
	SteeringLimitHigh float64
	SteeringResponse  float64
	SteeringBias      float64

	// Wear
	MotorWear      float64
	WheelWear      float64
	SuspensionWear float64

	State     string
	UpdatedAt time.Time
}

// TableName pins the table name.
func (UnitRecord) TableName() string {
	return "wheel_units"
}

// Store loads and saves unit records.
type Store interface {
	Save(ctx context.Context, records []UnitRecord) error
	Load(ctx context.Context, id string) (UnitRecord, error)
	LoadAll(ctx context.Context) ([]UnitRecord, error)
	Close() error
}

// SQLiteStore is a Store backed by a pure-Go SQLite database.
type SQLiteStore struct {
	db *gorm.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and migrates the
// schema. An empty path opens a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %q: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB: %w", err)
	}
	// Each in-memory connection is its own database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&UnitRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save upserts every record in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, records []UnitRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&records).Error
	})
	if err != nil {
		return fmt.Errorf("saving %d unit records: %w", len(records), err)
	}
	return nil
}

// Load returns the record for id, or ErrNotFound.
func (s *SQLiteStore) Load(ctx context.Context, id string) (UnitRecord, error) {
	var rec UnitRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return UnitRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return UnitRecord{}, fmt.Errorf("loading unit %s: %w", id, err)
	}
	return rec, nil
}

// LoadAll returns every stored record ordered by ID.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]UnitRecord, error) {
	var recs []UnitRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("loading unit records: %w", err)
	}
	return recs, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
