package db

import (
	"fmt"
	"inkwell/internal/config"
	"inkwell/internal/models"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database. Postgres is the production
// store; sqlite serves local development and tests.
func Open(cfg config.Database) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormLogger := logger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}

// Migrate creates or updates every table the application uses.
func Migrate(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Post{},
		&models.Comment{},
		&models.Follow{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// DefaultGroups are created on first start so new installs have somewhere to post.
var DefaultGroups = []models.Group{
	{Title: "General", Slug: "general", Description: "Anything that does not fit elsewhere"},
	{Title: "Writing", Slug: "writing", Description: "Craft, drafts and feedback"},
}

// SeedGroups creates the given groups when the table is still empty.
func SeedGroups(conn *gorm.DB, groups []models.Group) error {
	var count int64
	if err := conn.Model(&models.Group{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 || len(groups) == 0 {
		return nil
	}

	for _, g := range groups {
		if err := conn.Create(&g).Error; err != nil {
			return fmt.Errorf("failed to create group %s: %w", g.Slug, err)
		}
	}
	return nil
}
