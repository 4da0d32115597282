package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/kacamatagratis/kacamatagratis/pkg/models"
	"github.com/kacamatagratis/kacamatagratis/pkg/repositories"
)

type SettingsService struct {
	repo *repositories.SettingsRepository
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{repo: repositories.NewSettingsRepository(db)}
}

func (s *SettingsService) GetAutomation() (*models.AutomationSettings, error) {
	return s.repo.GetAutomation()
}

func (s *SettingsService) UpdateAutomation(in *models.AutomationSettings) error {
	if in.WelcomeDelayMinutes < 0 || in.ReferrerAlertDelayMinutes < 0 {
		return errors.New("delays cannot be negative")
	}
	if in.EventReminderHoursBefore < 1 {
		return errors.New("event reminder window must be at least 1 hour")
	}
	if in.EngineIntervalSeconds < 10 {
		return errors.New("engine interval must be at least 10 seconds")
	}
	return s.repo.UpdateAutomation(in)
}

func (s *SettingsService) ListLanding() (map[string]string, error) {
	return s.repo.ListLanding()
}

func (s *SettingsService) UpsertLanding(key, value string) error {
	if key == "" {
		return errors.New("setting key is required")
	}
	return s.repo.UpsertLanding(key, value)
}
