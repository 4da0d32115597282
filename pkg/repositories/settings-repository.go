package repositories

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kacamatagratis/kacamatagratis/pkg/models"
)

type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetAutomation returns the singleton settings row, creating it with
// defaults on first access.
func (r *SettingsRepository) GetAutomation() (*models.AutomationSettings, error) {
	s := models.AutomationSettings{
		ID:                       1,
		WelcomeDelayMinutes:      5,
		EventReminderHoursBefore: 1,
		AutomationEnabled:        true,
		EngineIntervalSeconds:    60,
	}
	if err := r.db.Where("id = ?", 1).FirstOrCreate(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SettingsRepository) UpdateAutomation(s *models.AutomationSettings) error {
	s.ID = 1
	return r.db.Save(s).Error
}

func (r *SettingsRepository) UpsertLanding(key, value string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.LandingPageSetting{Key: key, Value: value}).Error
}

func (r *SettingsRepository) ListLanding() (map[string]string, error) {
	var rows []models.LandingPageSetting
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}
