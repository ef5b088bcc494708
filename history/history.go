// Package history records completed downloads in a local sqlite database.
package history

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"moul.io/zapgorm2"
)

type Record struct {
	ID          uint `gorm:"primarykey"`
	UID         string
	Source      string
	Destination string
	Bytes       int64
	Duration    time.Duration
	CreatedAt   time.Time
}

type Store struct {
	db *gorm.DB
}

func Open(path string, logger *zap.Logger) (*Store, error) {
	gormLogger := zapgorm2.New(logger)
	gormLogger.SetAsDefault()
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}
	return &Store{db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Add records a completed download.
func (s *Store) Add(record *Record) error {
	return s.db.Create(record).Error
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	var records []Record
	err := s.db.Order("created_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// BySource returns all records for a source URL, newest first.
func (s *Store) BySource(source string) ([]Record, error) {
	var records []Record
	err := s.db.Where("source = ?", source).Order("created_at DESC").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
