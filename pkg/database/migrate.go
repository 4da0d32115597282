package database

import (
	"gorm.io/gorm"

	"github.com/kacamatagratis/kacamatagratis/pkg/models"
)

// MigrateDB creates or updates the campaign tables.
func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Participant{},
		&models.Event{},
		&models.NotificationLog{},
		&models.MessageTemplate{},
		&models.DripSenderKey{},
		&models.AutomationSettings{},
		&models.LandingPageSetting{},
	)
}
