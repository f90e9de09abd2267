package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"tickwatch/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists end-of-day aggregates and user configuration.
// Raw tick history is never written here.
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a new SQLite storage instance at the given path
func NewStorage(dbPath string) (*Storage, error) {
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.DailyStat{}, &domain.AppConfig{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// DefaultDBPath resolves the database file path based on OS
func DefaultDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "TickWatch", "data", "tickwatch.db"), nil
}

// ======================================================================================
// Daily Stat Operations
// ======================================================================================

// SaveDailyStats persists one end-of-day aggregate row per symbol
func (s *Storage) SaveDailyStats(stats []domain.DailyStat) error {
	if len(stats) == 0 {
		return nil
	}
	return s.db.Create(&stats).Error
}

// DailyStatsBySymbol retrieves the most recent aggregates for a symbol
func (s *Storage) DailyStatsBySymbol(symbol string, limit int) ([]domain.DailyStat, error) {
	var stats []domain.DailyStat
	q := s.db.Where("symbol = ?", symbol).Order("date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&stats).Error
	return stats, err
}

// DailyStatsByDate retrieves all symbol aggregates for a trading day
func (s *Storage) DailyStatsByDate(date string) ([]domain.DailyStat, error) {
	var stats []domain.DailyStat
	err := s.db.Where("date = ?", date).Order("symbol ASC").Find(&stats).Error
	return stats, err
}

// ======================================================================================
// Config Operations
// ======================================================================================

// SaveConfig saves a user configuration
func (s *Storage) SaveConfig(key, value string) error {
	config := domain.AppConfig{
		Key:   key,
		Value: value,
	}
	return s.db.Save(&config).Error
}

// LoadConfigMap loads all user configurations as a map
func (s *Storage) LoadConfigMap() (map[string]string, error) {
	var configs []domain.AppConfig
	if err := s.db.Find(&configs).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, cfg := range configs {
		result[cfg.Key] = cfg.Value
	}
	return result, nil
}
