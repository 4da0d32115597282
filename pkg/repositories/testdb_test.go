package repositories

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kacamatagratis/kacamatagratis/pkg/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Participant{},
		&models.Event{},
		&models.NotificationLog{},
		&models.MessageTemplate{},
		&models.DripSenderKey{},
		&models.AutomationSettings{},
		&models.LandingPageSetting{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
