package migration

import (
	"fmt"

	"gorm.io/gorm"

	"parceldesk/internal/infrastructure/persistence/models"
	"parceldesk/internal/shared/logger"
)

// GormAutoMigrate syncs the schema from the persistence models. It only adds
// missing tables, columns and indexes, never drops, so it is acceptable for
// development but not for production rollouts.
type GormAutoMigrate struct {
	log logger.Interface
}

func NewGormAutoMigrate(log logger.Interface) *GormAutoMigrate {
	return &GormAutoMigrate{log: log.Named("automigrate")}
}

func (m *GormAutoMigrate) Name() string {
	return "gorm-automigrate"
}

func (m *GormAutoMigrate) Run(db *gorm.DB) error {
	m.log.Infow("running gorm auto-migration")

	err := db.AutoMigrate(
		&models.AccountModel{},
		&models.TicketModel{},
		&models.TicketCommentModel{},
		&models.BroadcastLogModel{},
	)
	if err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	m.log.Infow("auto-migration complete")
	return nil
}
