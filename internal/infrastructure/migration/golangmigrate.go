package migration

import (
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"

	"parceldesk/internal/shared/logger"
)

// GolangMigrate applies the versioned MySQL scripts with golang-migrate.
type GolangMigrate struct {
	dir string
	log logger.Interface
}

func NewGolangMigrate(dir string, log logger.Interface) *GolangMigrate {
	return &GolangMigrate{
		dir: dir,
		log: log.Named("golang-migrate"),
	}
}

func (m *GolangMigrate) Name() string {
	return "golang-migrate"
}

func (m *GolangMigrate) Run(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	driver, err := migratemysql.WithInstance(sqlDB, &migratemysql.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	sourceURL := "file://" + filepath.Join(m.dir, "mysql")
	migrator, err := migrate.NewWithDatabaseInstance(sourceURL, "mysql", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	m.log.Infow("applying mysql migrations", "source", sourceURL)
	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := migrator.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	m.log.Infow("mysql migrations complete", "version", version, "dirty", dirty)
	return nil
}
