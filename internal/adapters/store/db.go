package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dkeye/Chatter/internal/domain"
)

// Open connects to the sqlite database at path, migrates the schema and
// seeds the default category. ":memory:" is pinned to one connection so
// every query sees the same database.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&CategoryRecord{}, &RoomRecord{}, &MessageRecord{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	if err := seed(db); err != nil {
		return nil, err
	}
	log.Info().Str("module", "store").Str("path", path).Msg("database ready")
	return db, nil
}

func seed(db *gorm.DB) error {
	var c CategoryRecord
	err := db.First(&c, "id = ?", string(domain.DefaultCategory)).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("seed categories: %w", err)
	}
	c = CategoryRecord{ID: string(domain.DefaultCategory), Name: "General", CreatedAt: time.Now()}
	if err := db.Create(&c).Error; err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	return nil
}
