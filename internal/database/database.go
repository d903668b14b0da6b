package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/siteeye/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	db   *gorm.DB
	once sync.Once
)

// Initialize opens the SQLite database and migrates the schema. Safe
// to call more than once; only the first call does work.
func Initialize(dbPath string) error {
	var initErr error
	once.Do(func() {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			initErr = fmt.Errorf("failed to create database directory: %w", err)
			return
		}

		var err error
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
		if err != nil {
			initErr = fmt.Errorf("failed to connect to database: %w", err)
			return
		}

		initErr = Migrate(db)
	})

	return initErr
}

// Migrate runs the schema migration on any gorm handle. Exposed so
// tests can migrate in-memory databases.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Project{},
		&models.Employee{},
		&models.TaskAssignment{},
		&models.AttendanceRecord{},
		&models.GeofenceEvent{},
		&models.Alert{},
		&models.EscalationEvent{},
		&models.User{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	if db == nil {
		panic("Database not initialized. Call Initialize() first")
	}
	return db
}

// Close closes the database connection
func Close() error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}

	return sqlDB.Close()
}
