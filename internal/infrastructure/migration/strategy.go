// Package migration manages database schema for the SQL backends. Schema
// changes ship as versioned SQL scripts per dialect; development setups can
// instead auto-migrate from the gorm models.
package migration

import (
	"gorm.io/gorm"

	"parceldesk/internal/shared/logger"
)

// Strategy runs schema migrations one way. Which strategy applies depends on
// the backend dialect and whether the deployment is allowed to auto-migrate.
type Strategy interface {
	Name() string
	Run(db *gorm.DB) error
}

// Options selects a migration strategy.
type Options struct {
	// Dialect is "mysql" or "sqlite".
	Dialect string
	// Dir is the root of the versioned SQL scripts, with one subdirectory
	// per dialect.
	Dir string
	// AutoMigrate switches to schema sync from the gorm models, for
	// development only.
	AutoMigrate bool
}

// ForOptions picks the strategy: gorm auto-migration when requested,
// otherwise versioned SQL scripts via golang-migrate (MySQL) or goose
// (SQLite).
func ForOptions(opts Options, log logger.Interface) Strategy {
	if opts.AutoMigrate {
		return NewGormAutoMigrate(log)
	}
	if opts.Dialect == "sqlite" {
		return NewGooseMigrate(opts.Dir, log)
	}
	return NewGolangMigrate(opts.Dir, log)
}
