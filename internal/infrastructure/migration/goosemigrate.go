package migration

import (
	"fmt"
	"path/filepath"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"parceldesk/internal/shared/logger"
)

// GooseMigrate applies the versioned SQLite scripts with goose.
type GooseMigrate struct {
	dir string
	log logger.Interface
}

func NewGooseMigrate(dir string, log logger.Interface) *GooseMigrate {
	return &GooseMigrate{
		dir: dir,
		log: log.Named("goose"),
	}
}

func (m *GooseMigrate) Name() string {
	return "goose"
}

func (m *GooseMigrate) Run(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	dir := filepath.Join(m.dir, "sqlite")
	m.log.Infow("applying sqlite migrations", "dir", dir)
	if err := goose.Up(sqlDB, dir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	m.log.Infow("sqlite migrations complete")
	return nil
}
